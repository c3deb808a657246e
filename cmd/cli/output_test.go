package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/spending-dashboard/internal/analytics"
	"github.com/dvloznov/spending-dashboard/internal/config"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	text.DisableColors()
}

func sampleData() domain.TransactionsByPeriod {
	return domain.TransactionsByPeriod{
		"2024-01": {
			{Date: "2024-01-05", Description: "MARKET", Category: "Food", Type: domain.TypeExpense, Value: 100},
			{Date: "2024-01-06 08:30:00", Description: "UBER *TRIP", Category: "Transport", Type: domain.TypeExpense, Value: 20},
		},
		"2024-02": {
			{Date: "2024-02-05", Description: "RENT", Category: "Housing", Type: domain.TypeExpense, Value: 900},
		},
	}
}

func TestRenderReport(t *testing.T) {
	report := analytics.Summarize(sampleData(), []domain.Period{"2024-01", "2024-02"}, analytics.DefaultRideRules())

	var buf bytes.Buffer
	renderReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "January 2024")
	assert.Contains(t, out, "February 2024")
	assert.Contains(t, out, "1020.00")
	assert.Contains(t, out, "Housing (100.0%)")
	assert.Contains(t, out, "February 2024 vs January 2024: 780.00 (650.0%)")
	assert.Contains(t, out, "Rides")
	assert.Contains(t, out, "most trips happen in the morning")
}

func TestRenderReportWithoutData(t *testing.T) {
	report := analytics.Summarize(sampleData(), nil, analytics.DefaultRideRules())

	var buf bytes.Buffer
	renderReport(&buf, report)

	assert.Equal(t, analytics.NoDataMessage+"\n", buf.String())
}

func TestRenderRidesWithoutTrips(t *testing.T) {
	var buf bytes.Buffer
	renderRides(&buf, nil)
	assert.Contains(t, buf.String(), "No ride transactions")
}

func TestRenderBreakdown(t *testing.T) {
	data := sampleData()
	data["2024-02"] = append(data["2024-02"], domain.Transaction{
		Date: "2024-02-10", Description: "PAGAMENTO ON LINE", Category: "OUTROS", Type: domain.TypeExpense, Value: 1500,
	})
	rules := analytics.DefaultBreakdownRules()
	rules.Subscriptions = []analytics.KeywordGroup{{Name: "Housing", Keywords: []string{"rent"}}}

	var buf bytes.Buffer
	renderBreakdown(&buf, analytics.Breakdown(data, []domain.Period{"2024-01", "2024-02"}, rules))
	out := buf.String()

	assert.Contains(t, out, "Spent 1020.00 excluding 1 card payments totalling 1500.00")
	assert.Contains(t, out, "Transport")
	assert.Contains(t, out, "Uber")
	assert.Contains(t, out, "Subscriptions")
	assert.Contains(t, out, "88.2%")

	buf.Reset()
	renderBreakdown(&buf, analytics.Breakdown(data, []domain.Period{"2023-01"}, rules))
	assert.Equal(t, analytics.NoDataMessage+"\n", buf.String())
}

func TestParsePeriodList(t *testing.T) {
	periods, err := parsePeriodList("2024-01, 2024-03,,")
	require.NoError(t, err)
	assert.Equal(t, []domain.Period{"2024-01", "2024-03"}, periods)

	_, err = parsePeriodList("2024-01,March")
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestNormalizeFiles(t *testing.T) {
	dir := t.TempDir()
	jan := filepath.Join(dir, "statement-2024-01.csv")
	require.NoError(t, os.WriteFile(jan, []byte("date,description,category,type,value\n2024-01-05,MARKET,Food,expense,\"R$ 10,50\"\n"), 0o644))

	cfg := &config.Config{Normalizer: config.NormalizerCSV, Rules: config.DefaultRules()}
	data, err := normalizeFiles(t.Context(), cfg, zerolog.Nop(), []string{jan})
	require.NoError(t, err)

	require.Len(t, data["2024-01"], 1)
	assert.Equal(t, 10.5, data["2024-01"][0].Value)
}

func TestReadUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	up, err := readUpload(path, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "march.csv", up.Filename)
	assert.Equal(t, domain.Period("2024-03"), up.Period)

	_, err = readUpload(path, "03/2024")
	assert.Error(t, err)
}
