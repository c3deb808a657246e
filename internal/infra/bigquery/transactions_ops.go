package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

// Dataset locates the dataset holding the transactions table.
type Dataset struct {
	ProjectID string
	DatasetID string
}

func (d Dataset) table() string {
	return "`" + d.ProjectID + "." + d.DatasetID + "." + transactionsTable + "`"
}

// EnsureTableWithClient creates the transactions table when it does not exist yet.
func EnsureTableWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) error {
	table := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(transactionsTable)

	_, err := table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		Clustering: &bigquery.Clustering{
			Fields: []string{"user_id", "period"},
		},
	}
	if err := table.Create(ctx, meta); err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	return nil
}

// InsertTransactionWithClient inserts one row with a DML statement.
// DML keeps the row out of the streaming buffer so it can be deleted right away on re-ingest.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *TransactionRow) error {
	q := client.Query(`
		INSERT INTO ` + ds.table() + ` (
			transaction_id, user_id, period,
			transaction_date, raw_date,
			description, category, type, amount,
			source, uploaded_at
		)
		VALUES (
			@transaction_id, @user_id, @period,
			@transaction_date, @raw_date,
			@description, @category, @type, @amount,
			@source, @uploaded_at
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "period", Value: row.Period},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "raw_date", Value: row.RawDate},
		{Name: "description", Value: row.Description},
		{Name: "category", Value: row.Category},
		{Name: "type", Value: row.Type},
		{Name: "amount", Value: row.Amount},
		{Name: "source", Value: row.Source},
		{Name: "uploaded_at", Value: row.UploadedAt},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertTransactionWithClient: %w", err)
	}
	return nil
}

// QueryTransactionsByUserWithClient returns every row owned by userID.
func QueryTransactionsByUserWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT
			transaction_id,
			user_id,
			period,
			transaction_date,
			raw_date,
			description,
			category,
			type,
			amount,
			source,
			uploaded_at
		FROM ` + ds.table() + `
		WHERE user_id = @user_id
		ORDER BY period, uploaded_at
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByUser: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByUser: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// ListPeriodsWithClient returns the distinct periods stored for userID, ascending.
func ListPeriodsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]string, error) {
	q := client.Query(`
		SELECT DISTINCT period
		FROM ` + ds.table() + `
		WHERE user_id = @user_id
		ORDER BY period
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPeriods: query read: %w", err)
	}

	var periods []string
	for {
		var row struct {
			Period string `bigquery:"period"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListPeriods: iter next: %w", err)
		}
		periods = append(periods, row.Period)
	}

	return periods, nil
}

// DeleteTransactionsWithClient removes a user's rows for one period and returns the affected row count.
func DeleteTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, period string) (int, error) {
	q := client.Query(`
		DELETE FROM ` + ds.table() + `
		WHERE user_id = @user_id
		  AND period = @period
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "period", Value: period},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("DeleteTransactions: run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("DeleteTransactions: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("DeleteTransactions: job error: %w", err)
	}

	var affected int
	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok && qs.NumDMLAffectedRows > 0 {
		affected = int(qs.NumDMLAffectedRows)
	}
	if affected == 0 {
		return 0, fmt.Errorf("DeleteTransactions: period %s for %s: %w", period, userID, store.ErrNotFound)
	}
	return affected, nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
