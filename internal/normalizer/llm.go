package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNoText is returned when the completion stream ends without any text.
var ErrNoText = errors.New("completion produced no text")

// Completer streams a text completion for a single user prompt.
// fn is called once per non-empty fragment, in order.
type Completer interface {
	Stream(ctx context.Context, prompt string, fn func(fragment string) error) error
}

// LLMNormalizer delegates parsing to a text-completion service.
type LLMNormalizer struct {
	completer Completer
	log       zerolog.Logger
}

// NewLLMNormalizer creates a normalizer backed by completer.
func NewLLMNormalizer(completer Completer, log zerolog.Logger) *LLMNormalizer {
	return &LLMNormalizer{
		completer: completer,
		log:       log,
	}
}

// Normalize implements Normalizer.
func (n *LLMNormalizer) Normalize(ctx context.Context, csvText string) ([]domain.Transaction, error) {
	var sb strings.Builder
	err := n.StreamRaw(ctx, csvText, func(fragment string) error {
		sb.WriteString(fragment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw := sb.String()
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoText
	}
	n.log.Debug().Int("chars", len(raw)).Msg("Completion received")

	parsed, err := decodeModelJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("llm normalizer: %w", err)
	}

	items, err := modelRecords(parsed)
	if err != nil {
		return nil, fmt.Errorf("llm normalizer: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(items))
	for i, item := range items {
		tx, err := transformModelRecord(item)
		if err != nil {
			n.log.Warn().Err(err).Int("index", i).Msg("Rejecting model record")
			continue
		}
		txs = append(txs, tx)
	}

	if rejected := len(items) - len(txs); rejected > 0 {
		n.log.Warn().Int("rejected", rejected).Int("accepted", len(txs)).Msg("Model output contained invalid records")
	}

	return txs, nil
}

// StreamRaw implements Streamer. Fragments are forwarded unmodified.
func (n *LLMNormalizer) StreamRaw(ctx context.Context, csvText string, fn func(fragment string) error) error {
	if err := n.completer.Stream(ctx, buildNormalizePrompt(csvText), fn); err != nil {
		return fmt.Errorf("llm normalizer: completion: %w", err)
	}
	return nil
}

// decodeModelJSON unmarshals a completion that should be JSON but may arrive
// wrapped in markdown fences or surrounded by prose.
func decodeModelJSON(raw string) (interface{}, error) {
	s := stripFences(raw)

	var parsed interface{}
	err := json.Unmarshal([]byte(s), &parsed)
	if err == nil {
		return parsed, nil
	}

	// Prose around the payload: keep the outermost array or object and try once more.
	if inner, ok := outermost(s); ok {
		if json.Unmarshal([]byte(inner), &parsed) == nil {
			return parsed, nil
		}
	}
	return nil, fmt.Errorf("unmarshal JSON: %w", err)
}

// stripFences removes ```json ... ``` or ``` ... ``` wrappers.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// The opening line carries the optional language tag.
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// outermost returns the span from the first opening bracket to its last closing
// counterpart. Arrays win over objects when the array starts first.
func outermost(s string) (string, bool) {
	arr := strings.Index(s, "[")
	obj := strings.Index(s, "{")

	open, close := "[", "]"
	if arr == -1 || (obj != -1 && obj < arr) {
		open, close = "{", "}"
	}

	start := strings.Index(s, open)
	end := strings.LastIndex(s, close)
	if start == -1 || end <= start {
		return "", false
	}
	return strings.TrimSpace(s[start : end+1]), true
}

// modelRecords finds the record list in decoded output. Models are asked for a
// bare array but sometimes answer {"transactions": [...]}; an object qualifies
// when exactly one of its values is an array.
func modelRecords(parsed interface{}) ([]interface{}, error) {
	switch v := parsed.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		var (
			found []interface{}
			n     int
		)
		for _, field := range v {
			if items, ok := field.([]interface{}); ok {
				found = items
				n++
			}
		}
		if n == 1 {
			return found, nil
		}
		return nil, fmt.Errorf("model output object holds %d arrays, want exactly one", n)
	default:
		return nil, fmt.Errorf("model output is %T, want JSON array", parsed)
	}
}
