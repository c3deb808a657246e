package normalizer

import (
	"context"
	"fmt"

	"github.com/dvloznov/spending-dashboard/internal/config"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/rs/zerolog"
)

// Normalizer converts raw statement CSV text into transactions.
type Normalizer interface {
	Normalize(ctx context.Context, csvText string) ([]domain.Transaction, error)
}

// Streamer is implemented by normalizers that can forward the raw
// completion text as it arrives.
type Streamer interface {
	StreamRaw(ctx context.Context, csvText string, fn func(fragment string) error) error
}

// New returns the normalizer selected by cfg.Normalizer.
// completer is only used by the llm strategy and may be nil otherwise.
func New(cfg *config.Config, completer Completer, log zerolog.Logger) (Normalizer, error) {
	switch cfg.Normalizer {
	case config.NormalizerCSV:
		return NewCSVNormalizer(cfg.Rules.CurrencyPrefix, log), nil
	case config.NormalizerLLM:
		if completer == nil {
			return nil, fmt.Errorf("normalizer: llm strategy requires a completer")
		}
		return NewLLMNormalizer(completer, log), nil
	default:
		return nil, fmt.Errorf("normalizer: unknown strategy %q", cfg.Normalizer)
	}
}

var (
	_ Normalizer = (*CSVNormalizer)(nil)
	_ Normalizer = (*LLMNormalizer)(nil)
	_ Streamer   = (*LLMNormalizer)(nil)
)
