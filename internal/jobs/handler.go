package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/ingest"
	"github.com/rs/zerolog"
)

// StoredIngester is the part of the ingest service a worker needs.
type StoredIngester interface {
	IngestStored(ctx context.Context, userID string, period domain.Period, uri string) (ingest.Result, error)
}

// NewIngestHandler returns a JobHandler that normalizes and persists stored statements.
func NewIngestHandler(svc StoredIngester, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job Job) error {
		j, ok := job.(*NormalizeStatementJob)
		if !ok {
			return fmt.Errorf("unsupported job type %q", job.GetType())
		}

		log.Info().
			Str("job_id", j.JobID).
			Str("user_id", j.UserID).
			Str("period", string(j.Period)).
			Msg("Processing statement job")

		res, err := svc.IngestStored(ctx, j.UserID, j.Period, j.StatementURI)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", j.StatementURI, err)
		}
		j.Saved = res.Count
		return nil
	}
}
