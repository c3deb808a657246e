package normalizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

// transformModelRecord validates one element of the model's JSON array.
func transformModelRecord(item interface{}) (domain.Transaction, error) {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return domain.Transaction{}, fmt.Errorf("record is %T, want object", item)
	}

	date, err := getStringField(obj, "date", true)
	if err != nil {
		return domain.Transaction{}, err
	}
	desc, err := getStringField(obj, "description", true)
	if err != nil {
		return domain.Transaction{}, err
	}
	category, err := getStringField(obj, "category", false)
	if err != nil {
		return domain.Transaction{}, err
	}
	txType, err := getStringField(obj, "type", false)
	if err != nil {
		return domain.Transaction{}, err
	}
	value, err := getAmountField(obj, "value")
	if err != nil {
		return domain.Transaction{}, err
	}

	if category == "" {
		category = domain.UncategorizedCategory
	}
	if txType == "" {
		txType = domain.TypeExpense
	}

	return domain.Transaction{
		Date:        date,
		Description: desc,
		Category:    category,
		Type:        strings.ToLower(txType),
		Value:       value,
	}, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if required && s == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

// getAmountField accepts JSON numbers and numeric strings.
func getAmountField(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}

	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		if strings.HasPrefix(strings.TrimSpace(val), "-") {
			return 0, fmt.Errorf("field %q is negative: %s", key, val)
		}
		parsed, err := ParseAmount(val, "")
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("field %q is not finite", key)
	}
	if f < 0 {
		return 0, fmt.Errorf("field %q is negative: %v", key, f)
	}
	return f, nil
}
