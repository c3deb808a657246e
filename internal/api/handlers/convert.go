package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/normalizer"
	"github.com/rs/zerolog"
)

// MissingCSVTextMessage is returned when a conversion request carries no CSV text.
const MissingCSVTextMessage = `The function must be called with a "csvText" argument.`

// ConvertHandler exposes the normalizer over HTTP.
type ConvertHandler struct {
	normalizer normalizer.Normalizer
	maxBytes   int64
	log        zerolog.Logger
}

// NewConvertHandler creates a new convert handler.
func NewConvertHandler(n normalizer.Normalizer, maxBytes int64, log zerolog.Logger) *ConvertHandler {
	return &ConvertHandler{normalizer: n, maxBytes: maxBytes, log: log}
}

type convertRequest struct {
	Data *struct {
		CSVText string `json:"csvText"`
	} `json:"data"`
	CSVText string `json:"csvText"`
}

func (c convertRequest) text() string {
	if c.Data != nil && c.Data.CSVText != "" {
		return c.Data.CSVText
	}
	return c.CSVText
}

// Convert handles POST /api/convert.
// With ?stream=true the raw completion text is streamed as it arrives.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, h.log, "")

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, MissingCSVTextMessage)
		return
	}

	csvText := req.text()
	if strings.TrimSpace(csvText) == "" {
		middleware.WriteError(w, http.StatusBadRequest, MissingCSVTextMessage)
		return
	}

	if r.URL.Query().Get("stream") == "true" {
		h.stream(w, r, csvText, log)
		return
	}

	txs, err := h.normalizer.Normalize(r.Context(), csvText)
	if err != nil {
		log.Error().Err(err).Msg("Failed to process CSV data")
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to process CSV data",
			"details": err.Error(),
		})
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	log.Info().Int("count", len(txs)).Msg("CSV converted")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    txs,
	})
}

func (h *ConvertHandler) stream(w http.ResponseWriter, r *http.Request, csvText string, log zerolog.Logger) {
	streamer, ok := h.normalizer.(normalizer.Streamer)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Streaming requires the llm normalizer")
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	err := streamer.StreamRaw(r.Context(), csvText, func(fragment string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(fragment)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err == nil && !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		log.Error().Err(err).Bool("partial", started).Msg("Streaming conversion failed")
		if !started {
			middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Failed to process CSV data",
				"details": err.Error(),
			})
		}
	}
}
