package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/ingest"
	"github.com/dvloznov/spending-dashboard/internal/jobs"
	"github.com/dvloznov/spending-dashboard/internal/statements"
	"github.com/rs/zerolog"
)

// UploadsHandler handles statement uploads and reprocessing.
type UploadsHandler struct {
	svc       *ingest.Service
	publisher jobs.Publisher
	maxBytes  int64
	log       zerolog.Logger
}

// NewUploadsHandler creates a new uploads handler. publisher may be nil, which disables async uploads.
func NewUploadsHandler(svc *ingest.Service, publisher jobs.Publisher, maxBytes int64, log zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{svc: svc, publisher: publisher, maxBytes: maxBytes, log: log}
}

// Upload handles POST /api/uploads.
// Each multipart "files" part is one statement; its period comes from the filename.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	log := requestLogger(r, h.log, session.UserID)

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Expected a multipart form with one or more files")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, `At least one "files" part is required`)
		return
	}

	uploads := make([]ingest.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			log.Error().Err(err).Str("file", fh.Filename).Msg("Failed to read uploaded file")
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read %s", fh.Filename))
			return
		}
		uploads = append(uploads, ingest.Upload{Filename: fh.Filename, Data: data})
	}

	results, err := h.svc.IngestBatch(r.Context(), session.UserID, uploads)
	if err != nil {
		log.Error().Err(err).Int("files", len(uploads)).Msg("Failed to ingest statements")
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to ingest statements",
			"details": err.Error(),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uploads": results,
	})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type asyncUploadRequest struct {
	Period   string `json:"period"`
	CSVText  string `json:"csvText"`
	Filename string `json:"filename"`
}

// UploadAsync handles POST /api/uploads/async.
// The statement is stored first and a job is enqueued to normalize it.
func (h *UploadsHandler) UploadAsync(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	log := requestLogger(r, h.log, session.UserID)

	if h.publisher == nil || !h.svc.HasStatementStore() {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Asynchronous uploads are not enabled")
		return
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	var req asyncUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.CSVText) == "" {
		middleware.WriteError(w, http.StatusBadRequest, MissingCSVTextMessage)
		return
	}

	up := ingest.Upload{Filename: req.Filename, Data: []byte(req.CSVText)}
	if req.Period != "" {
		p, err := domain.ParsePeriod(req.Period)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		up.Period = p
	}

	stored, err := h.svc.Store(r.Context(), session.UserID, up)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store statement")
		return
	}

	job := &jobs.NormalizeStatementJob{
		UserID:       session.UserID,
		Period:       stored.Period,
		StatementURI: stored.StatementURI,
		Filename:     stored.File,
	}
	if err := h.publisher.PublishNormalizeStatement(r.Context(), job); err != nil {
		log.Error().Err(err).Str("statement_uri", stored.StatementURI).Msg("Failed to enqueue statement job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue statement job")
		return
	}

	log.Info().
		Str("job_id", job.JobID).
		Str("period", string(job.Period)).
		Msg("Statement job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":        job.JobID,
		"status":        job.Status,
		"period":        job.Period,
		"statement_uri": job.StatementURI,
	})
}

// Reingest handles POST /api/periods/{period}/reingest.
func (h *UploadsHandler) Reingest(w http.ResponseWriter, r *http.Request, period domain.Period) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	log := requestLogger(r, h.log, session.UserID)

	res, err := h.svc.Reingest(r.Context(), session.UserID, period)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidPeriod):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ingest.ErrNoStatementStore):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Statement storage is not configured")
		return
	case errors.Is(err, statements.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "No stored statement for period")
		return
	default:
		log.Error().Err(err).Str("period", string(period)).Msg("Failed to reingest period")
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to reingest period",
			"details": err.Error(),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, res)
}
