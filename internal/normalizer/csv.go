package normalizer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// minFields is the number of positional columns a data row must carry.
const minFields = 5

// CSVNormalizer parses statements directly.
// Columns are positional: date, description, category, type, value.
type CSVNormalizer struct {
	currencyPrefix string
	log            zerolog.Logger
}

// NewCSVNormalizer creates a direct-parse normalizer that strips currencyPrefix from values.
func NewCSVNormalizer(currencyPrefix string, log zerolog.Logger) *CSVNormalizer {
	return &CSVNormalizer{
		currencyPrefix: strings.TrimSpace(currencyPrefix),
		log:            log,
	}
}

// Normalize implements Normalizer.
func (n *CSVNormalizer) Normalize(ctx context.Context, csvText string) ([]domain.Transaction, error) {
	r := csv.NewReader(strings.NewReader(csvText))
	r.FieldsPerRecord = -1

	var (
		txs      []domain.Transaction
		short    int
		rejected int
	)

	for row := 0; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv normalizer: %w", err)
		}

		if row == 0 {
			continue
		}
		line, _ := r.FieldPos(0)

		if len(record) < minFields {
			short++
			n.log.Debug().Int("line", line).Int("fields", len(record)).Msg("Dropping short CSV row")
			continue
		}

		value, err := ParseAmount(record[4], n.currencyPrefix)
		if err != nil {
			rejected++
			n.log.Warn().Err(err).Int("line", line).Str("value", record[4]).Msg("Rejecting CSV row with unparsable value")
			continue
		}

		txs = append(txs, domain.Transaction{
			Date:        strings.TrimSpace(record[0]),
			Description: strings.TrimSpace(record[1]),
			Category:    strings.TrimSpace(record[2]),
			Type:        strings.TrimSpace(record[3]),
			Value:       value,
		})
	}

	n.log.Debug().
		Int("transactions", len(txs)).
		Int("short_rows", short).
		Int("rejected_rows", rejected).
		Msg("CSV normalized")

	return txs, nil
}

// ParseAmount converts a statement amount such as "R$ 1.234,56" into a
// non-negative float. When both separators appear, the last one is the
// decimal separator.
func ParseAmount(raw, currencyPrefix string) (float64, error) {
	s := strings.TrimSpace(raw)
	if currencyPrefix != "" {
		s = strings.Replace(s, currencyPrefix, "", 1)
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}

	return d.Abs().InexactFloat64(), nil
}
