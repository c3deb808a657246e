package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/analytics"
	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
	"github.com/dvloznov/spending-dashboard/internal/config"
	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/infra/memory"
	"github.com/dvloznov/spending-dashboard/internal/ingest"
	"github.com/dvloznov/spending-dashboard/internal/jobs"
	"github.com/dvloznov/spending-dashboard/internal/jobs/inmemory"
	"github.com/dvloznov/spending-dashboard/internal/statements"
	"github.com/dvloznov/spending-dashboard/internal/store/storetest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNormalizer turns every non-empty line into one expense worth 1.
type fakeNormalizer struct {
	NormalizeFunc func(ctx context.Context, csvText string) ([]domain.Transaction, error)
}

func (f *fakeNormalizer) Normalize(ctx context.Context, csvText string) ([]domain.Transaction, error) {
	if f.NormalizeFunc != nil {
		return f.NormalizeFunc(ctx, csvText)
	}
	var txs []domain.Transaction
	for _, line := range strings.Split(csvText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		txs = append(txs, domain.Transaction{
			Date:        "2024-01-10",
			Description: line,
			Category:    "Food",
			Type:        domain.TypeExpense,
			Value:       1,
		})
	}
	return txs, nil
}

type fakeStreamer struct {
	fakeNormalizer
	fragments []string
	err       error
}

func (f *fakeStreamer) StreamRaw(ctx context.Context, csvText string, fn func(fragment string) error) error {
	for _, frag := range f.fragments {
		if err := fn(frag); err != nil {
			return err
		}
	}
	return f.err
}

func newRequest(method, target string, body io.Reader, userID string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if userID != "" {
		req = req.WithContext(middleware.WithSession(req.Context(), middleware.Session{UserID: userID}))
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type testEnv struct {
	repo      *memory.Repository
	svc       *ingest.Service
	jobStore  *inmemory.Store
	queue     *inmemory.Queue
	uploads   *UploadsHandler
	jobs      *JobsHandler
	dashboard *DashboardHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := memory.NewRepository()
	stmts, err := statements.NewDirStore(filepath.Join(t.TempDir(), "statements"))
	require.NoError(t, err)

	svc := ingest.NewService(repo, stmts, &fakeNormalizer{}, zerolog.Nop())
	svc.Now = func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC) }

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, jobStore, zerolog.Nop())
	t.Cleanup(func() { queue.Close() })

	return &testEnv{
		repo:      repo,
		svc:       svc,
		jobStore:  jobStore,
		queue:     queue,
		uploads:   NewUploadsHandler(svc, queue, 1<<20, zerolog.Nop()),
		jobs:      NewJobsHandler(jobStore, zerolog.Nop()),
		dashboard: NewDashboardHandler(repo, config.DefaultRules(), zerolog.Nop()),
	}
}

func multipartBody(t *testing.T, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestConvert(t *testing.T) {
	t.Run("missing csv text", func(t *testing.T) {
		h := NewConvertHandler(&fakeNormalizer{}, 1<<20, zerolog.Nop())
		for _, body := range []string{`{}`, `{"data":{}}`, `{"csvText":"  "}`, `not json`} {
			rec := httptest.NewRecorder()
			h.Convert(rec, newRequest(http.MethodPost, "/api/convert", strings.NewReader(body), ""))

			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			var resp map[string]string
			decode(t, rec, &resp)
			assert.Equal(t, MissingCSVTextMessage, resp["error"])
		}
	})

	t.Run("wrapped and flat bodies", func(t *testing.T) {
		h := NewConvertHandler(&fakeNormalizer{}, 1<<20, zerolog.Nop())
		for _, body := range []string{
			`{"data":{"csvText":"MARKET\nBAKERY"}}`,
			`{"csvText":"MARKET\nBAKERY"}`,
		} {
			rec := httptest.NewRecorder()
			h.Convert(rec, newRequest(http.MethodPost, "/api/convert", strings.NewReader(body), ""))

			require.Equal(t, http.StatusOK, rec.Code, body)
			var resp struct {
				Success bool                 `json:"success"`
				Data    []domain.Transaction `json:"data"`
			}
			decode(t, rec, &resp)
			assert.True(t, resp.Success)
			require.Len(t, resp.Data, 2)
			assert.Equal(t, "MARKET", resp.Data[0].Description)
		}
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		norm := &fakeNormalizer{NormalizeFunc: func(ctx context.Context, csvText string) ([]domain.Transaction, error) {
			return nil, nil
		}}
		h := NewConvertHandler(norm, 1<<20, zerolog.Nop())
		rec := httptest.NewRecorder()
		h.Convert(rec, newRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"csvText":"x"}`), ""))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"data":[]`)
	})

	t.Run("normalizer failure", func(t *testing.T) {
		norm := &fakeNormalizer{NormalizeFunc: func(ctx context.Context, csvText string) ([]domain.Transaction, error) {
			return nil, errors.New("model unavailable")
		}}
		h := NewConvertHandler(norm, 1<<20, zerolog.Nop())
		rec := httptest.NewRecorder()
		h.Convert(rec, newRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"csvText":"x"}`), ""))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var resp map[string]string
		decode(t, rec, &resp)
		assert.Equal(t, "Failed to process CSV data", resp["error"])
		assert.Equal(t, "model unavailable", resp["details"])
	})

	t.Run("body too large", func(t *testing.T) {
		h := NewConvertHandler(&fakeNormalizer{}, 16, zerolog.Nop())
		rec := httptest.NewRecorder()
		body := `{"csvText":"` + strings.Repeat("x", 64) + `"}`
		h.Convert(rec, newRequest(http.MethodPost, "/api/convert", strings.NewReader(body), ""))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("stream requires a streamer", func(t *testing.T) {
		h := NewConvertHandler(&fakeNormalizer{}, 1<<20, zerolog.Nop())
		rec := httptest.NewRecorder()
		h.Convert(rec, newRequest(http.MethodPost, "/api/convert?stream=true", strings.NewReader(`{"csvText":"x"}`), ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("stream writes fragments", func(t *testing.T) {
		h := NewConvertHandler(&fakeStreamer{fragments: []string{`[{"date":`, `"2024-01-10"}]`}}, 1<<20, zerolog.Nop())
		rec := httptest.NewRecorder()
		h.Convert(rec, newRequest(http.MethodPost, "/api/convert?stream=true", strings.NewReader(`{"csvText":"x"}`), ""))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `[{"date":"2024-01-10"}]`, rec.Body.String())
		assert.True(t, rec.Flushed)
	})

	t.Run("stream failure before output", func(t *testing.T) {
		h := NewConvertHandler(&fakeStreamer{err: errors.New("quota exceeded")}, 1<<20, zerolog.Nop())
		rec := httptest.NewRecorder()
		h.Convert(rec, newRequest(http.MethodPost, "/api/convert?stream=true", strings.NewReader(`{"csvText":"x"}`), ""))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "quota exceeded")
	})
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t, map[string]string{
		"statement-2024-01.csv": "MARKET\nBAKERY",
		"statement-2024-02.csv": "RENT",
	})
	req := newRequest(http.MethodPost, "/api/uploads", body, "alice")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.uploads.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Uploads []ingest.Result `json:"uploads"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Uploads, 2)

	counts := map[domain.Period]int{}
	for _, u := range resp.Uploads {
		counts[u.Period] = u.Count
	}
	assert.Equal(t, map[domain.Period]int{"2024-01": 2, "2024-02": 1}, counts)

	periods, err := env.repo.ListPeriods(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.Period{"2024-01", "2024-02"}, periods)
}

func TestUploadErrors(t *testing.T) {
	env := newTestEnv(t)

	t.Run("requires session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.uploads.Upload(rec, newRequest(http.MethodPost, "/api/uploads", strings.NewReader(""), ""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.uploads.Upload(rec, newRequest(http.MethodPost, "/api/uploads", strings.NewReader("{}"), "alice"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no files", func(t *testing.T) {
		body, contentType := multipartBody(t, nil)
		req := newRequest(http.MethodPost, "/api/uploads", body, "alice")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		env.uploads.Upload(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUploadAsync(t *testing.T) {
	env := newTestEnv(t)

	body := `{"period":"2024-03","csvText":"MARKET\nBAKERY","filename":"march.csv"}`
	rec := httptest.NewRecorder()
	env.uploads.UploadAsync(rec, newRequest(http.MethodPost, "/api/uploads/async", strings.NewReader(body), "alice"))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp map[string]string
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp["job_id"])
	assert.Equal(t, string(jobs.JobStatusPending), resp["status"])
	assert.Equal(t, "2024-03", resp["period"])
	assert.True(t, strings.HasPrefix(resp["statement_uri"], "file://"))

	job, err := env.jobStore.GetJob(context.Background(), resp["job_id"])
	require.NoError(t, err)
	assert.Equal(t, "alice", job.UserID)
	assert.Equal(t, domain.Period("2024-03"), job.Period)
	assert.Equal(t, "march.csv", job.Filename)

	t.Run("invalid period", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.uploads.UploadAsync(rec, newRequest(http.MethodPost, "/api/uploads/async",
			strings.NewReader(`{"period":"March","csvText":"x"}`), "alice"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing csv text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.uploads.UploadAsync(rec, newRequest(http.MethodPost, "/api/uploads/async",
			strings.NewReader(`{"period":"2024-03"}`), "alice"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("disabled without publisher", func(t *testing.T) {
		h := NewUploadsHandler(env.svc, nil, 0, zerolog.Nop())
		rec := httptest.NewRecorder()
		h.UploadAsync(rec, newRequest(http.MethodPost, "/api/uploads/async", strings.NewReader(body), "alice"))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestReingest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Ingest(ctx, "alice", ingest.Upload{Filename: "2024-01.csv", Data: []byte("MARKET\nBAKERY")})
	require.NoError(t, err)
	_, err = env.svc.Ingest(ctx, "alice", ingest.Upload{Filename: "2024-01.csv", Data: []byte("MARKET\nBAKERY")})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	env.uploads.Reingest(rec, newRequest(http.MethodPost, "/api/periods/2024-01/reingest", nil, "alice"), "2024-01")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res ingest.Result
	decode(t, rec, &res)
	assert.Equal(t, 4, res.Replaced)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []string{"2024-01.csv"}, res.Files)

	t.Run("no statement", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.uploads.Reingest(rec, newRequest(http.MethodPost, "/api/periods/2023-12/reingest", nil, "alice"), "2023-12")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid period", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.uploads.Reingest(rec, newRequest(http.MethodPost, "/api/periods/jan/reingest", nil, "alice"), "jan")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestJobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	own := &jobs.NormalizeStatementJob{UserID: "alice", Period: "2024-01", StatementURI: "file:///a"}
	other := &jobs.NormalizeStatementJob{UserID: "bob", Period: "2024-01", StatementURI: "file:///b"}
	require.NoError(t, env.queue.PublishNormalizeStatement(ctx, own))
	require.NoError(t, env.queue.PublishNormalizeStatement(ctx, other))

	t.Run("get own job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.jobs.GetJob(rec, newRequest(http.MethodGet, "/api/jobs/"+own.JobID, nil, "alice"), own.JobID)

		require.Equal(t, http.StatusOK, rec.Code)
		var job jobs.NormalizeStatementJob
		decode(t, rec, &job)
		assert.Equal(t, own.JobID, job.JobID)
		assert.Equal(t, jobs.JobStatusPending, job.Status)
	})

	t.Run("other user's job is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.jobs.GetJob(rec, newRequest(http.MethodGet, "/api/jobs/"+other.JobID, nil, "alice"), other.JobID)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.jobs.GetJob(rec, newRequest(http.MethodGet, "/api/jobs/nope", nil, "alice"), "nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list is scoped to the caller", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.jobs.ListJobs(rec, newRequest(http.MethodGet, "/api/jobs?period=2024-01", nil, "alice"))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Jobs  []jobs.NormalizeStatementJob `json:"jobs"`
			Count int                          `json:"count"`
		}
		decode(t, rec, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, own.JobID, resp.Jobs[0].JobID)
	})

	t.Run("bad filters", func(t *testing.T) {
		for _, target := range []string{"/api/jobs?limit=-1", "/api/jobs?offset=x", "/api/jobs?period=2024"} {
			rec := httptest.NewRecorder()
			env.jobs.ListJobs(rec, newRequest(http.MethodGet, target, nil, "alice"))
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})
}

func seed(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	records := []domain.StoredTransaction{
		storetest.Record("alice", "2024-01", "MARKET", 100),
		storetest.Record("alice", "2024-02", "RENT", 900),
		storetest.Record("alice", "2024-03", "MARKET", 50),
		storetest.Record("alice", "2024-04", "BAKERY", 20),
		storetest.Record("alice", "2024-05", "MARKET", 80),
		storetest.Record("bob", "2024-05", "SECRET", 1),
	}
	ride := storetest.Record("alice", "2024-05", "UBER TRIP", 30)
	ride.Date = "2024-05-04 22:15:00"
	records = append(records, ride)
	for _, rec := range records {
		require.NoError(t, env.repo.SaveTransaction(ctx, rec))
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	t.Run("default window", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.dashboard.Dashboard(rec, newRequest(http.MethodGet, "/api/dashboard", nil, "alice"))

		require.Equal(t, http.StatusOK, rec.Code)
		var view struct {
			HasData   bool            `json:"has_data"`
			Periods   []domain.Period `json:"periods"`
			PiePeriod domain.Period   `json:"pie_period"`
		}
		decode(t, rec, &view)
		assert.True(t, view.HasData)
		assert.Equal(t, []domain.Period{"2024-02", "2024-03", "2024-04", "2024-05"}, view.Periods)
		assert.Equal(t, domain.Period("2024-05"), view.PiePeriod)
	})

	t.Run("explicit selection", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.dashboard.Dashboard(rec, newRequest(http.MethodGet, "/api/dashboard?periods=2024-03,2024-01,2024-03", nil, "alice"))

		require.Equal(t, http.StatusOK, rec.Code)
		var view struct {
			Periods []domain.Period `json:"periods"`
		}
		decode(t, rec, &view)
		assert.Equal(t, []domain.Period{"2024-01", "2024-03"}, view.Periods)
	})

	t.Run("empty selection has no data", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.dashboard.Dashboard(rec, newRequest(http.MethodGet, "/api/dashboard?periods=", nil, "alice"))

		require.Equal(t, http.StatusOK, rec.Code)
		var view struct {
			HasData bool   `json:"has_data"`
			Message string `json:"message"`
		}
		decode(t, rec, &view)
		assert.False(t, view.HasData)
		assert.NotEmpty(t, view.Message)
	})

	t.Run("invalid period", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.dashboard.Dashboard(rec, newRequest(http.MethodGet, "/api/dashboard?periods=2024-13", nil, "alice"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.dashboard.Dashboard(rec, newRequest(http.MethodGet, "/api/dashboard?periods=2024-01", nil, "carol"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"has_data":false`)
	})
}

func TestSummaryAndRides(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	t.Run("summary", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.dashboard.Summary(rec, newRequest(http.MethodGet, "/api/summary?periods=2024-04,2024-05", nil, "alice"))

		require.Equal(t, http.StatusOK, rec.Code)
		var report struct {
			HasData bool    `json:"has_data"`
			Total   float64 `json:"total"`
			Count   int     `json:"count"`
			Rides   *struct {
				TripCount int `json:"trip_count"`
			} `json:"rides"`
		}
		decode(t, rec, &report)
		assert.True(t, report.HasData)
		assert.Equal(t, 130.0, report.Total)
		assert.Equal(t, 3, report.Count)
		require.NotNil(t, report.Rides)
		assert.Equal(t, 1, report.Rides.TripCount)
	})

	t.Run("rides", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.dashboard.Rides(rec, newRequest(http.MethodGet, "/api/rides?periods=2024-05", nil, "alice"))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Rides struct {
				TripCount      int    `json:"trip_count"`
				WeekendTrips   int    `json:"weekend_trips"`
				MostCommonTime string `json:"most_common_time"`
			} `json:"rides"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, 1, resp.Rides.TripCount)
		assert.Equal(t, 1, resp.Rides.WeekendTrips)
		assert.Equal(t, "night", resp.Rides.MostCommonTime)
	})

	t.Run("no rides", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.dashboard.Rides(rec, newRequest(http.MethodGet, "/api/rides?periods=2024-01", nil, "alice"))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]interface{}
		decode(t, rec, &resp)
		assert.Nil(t, resp["rides"])
		assert.NotEmpty(t, resp["message"])
	})
}

func TestBreakdown(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)
	ctx := context.Background()

	payment := storetest.Record("alice", "2024-05", "PAGAMENTO ON LINE", 1200)
	payment.Category = "OUTROS"
	fuel := storetest.Record("alice", "2024-05", "POSTO BRISTOL", 150)
	fuel.Category = "Transporte"
	require.NoError(t, env.repo.SaveTransaction(ctx, payment))
	require.NoError(t, env.repo.SaveTransaction(ctx, fuel))

	rec := httptest.NewRecorder()
	env.dashboard.Breakdown(rec, newRequest(http.MethodGet, "/api/breakdown?periods=2024-05", nil, "alice"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		HasData          bool    `json:"has_data"`
		TotalSpent       float64 `json:"total_spent"`
		CardPayments     float64 `json:"card_payments"`
		CardPaymentCount int     `json:"card_payment_count"`
		Transport        []struct {
			Name   string  `json:"name"`
			Amount float64 `json:"amount"`
		} `json:"transport"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.HasData)
	assert.Equal(t, 260.0, resp.TotalSpent)
	assert.Equal(t, 1200.0, resp.CardPayments)
	assert.Equal(t, 1, resp.CardPaymentCount)
	require.Len(t, resp.Transport, 1)
	assert.Equal(t, "Gas", resp.Transport[0].Name)
	assert.Equal(t, 150.0, resp.Transport[0].Amount)

	rec = httptest.NewRecorder()
	env.dashboard.Breakdown(rec, newRequest(http.MethodGet, "/api/breakdown?periods=", nil, "alice"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), analytics.NoDataMessage)

	rec = httptest.NewRecorder()
	env.dashboard.Breakdown(rec, newRequest(http.MethodGet, "/api/breakdown?periods=May", nil, "alice"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopExpenses(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	rec := httptest.NewRecorder()
	env.dashboard.TopExpenses(rec, newRequest(http.MethodGet, "/api/top-expenses?limit=2", nil, "alice"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Expenses []domain.Transaction `json:"expenses"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Expenses, 2)
	assert.Equal(t, "RENT", resp.Expenses[0].Description)
	assert.Equal(t, "MARKET", resp.Expenses[1].Description)

	rec = httptest.NewRecorder()
	env.dashboard.TopExpenses(rec, newRequest(http.MethodGet, "/api/top-expenses?limit=many", nil, "alice"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionsPeriodsAndDelete(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	rec := httptest.NewRecorder()
	env.dashboard.Transactions(rec, newRequest(http.MethodGet, "/api/transactions", nil, "alice"))
	require.Equal(t, http.StatusOK, rec.Code)
	var grouped struct {
		Periods map[domain.Period][]domain.Transaction `json:"periods"`
	}
	decode(t, rec, &grouped)
	assert.Len(t, grouped.Periods, 5)
	assert.Len(t, grouped.Periods["2024-05"], 2)

	rec = httptest.NewRecorder()
	env.dashboard.DeletePeriod(rec, newRequest(http.MethodDelete, "/api/periods/2024-05", nil, "alice"), "2024-05")
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted struct {
		Deleted int `json:"deleted"`
	}
	decode(t, rec, &deleted)
	assert.Equal(t, 2, deleted.Deleted)

	rec = httptest.NewRecorder()
	env.dashboard.Periods(rec, newRequest(http.MethodGet, "/api/periods", nil, "alice"))
	require.Equal(t, http.StatusOK, rec.Code)
	var periods struct {
		Periods []domain.Period `json:"periods"`
	}
	decode(t, rec, &periods)
	assert.Equal(t, []domain.Period{"2024-01", "2024-02", "2024-03", "2024-04"}, periods.Periods)

	bob, err := env.repo.ListPeriods(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []domain.Period{"2024-05"}, bob)

	rec = httptest.NewRecorder()
	env.dashboard.DeletePeriod(rec, newRequest(http.MethodDelete, "/api/periods/2024-05", nil, "alice"), "2024-05")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Period not found")

	rec = httptest.NewRecorder()
	env.dashboard.DeletePeriod(rec, newRequest(http.MethodDelete, "/api/periods/May", nil, "alice"), "May")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeAndHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Me(rec, newRequest(http.MethodGet, "/api/me", nil, "alice"))
	require.Equal(t, http.StatusOK, rec.Code)
	var s middleware.Session
	decode(t, rec, &s)
	assert.Equal(t, "alice", s.UserID)

	rec = httptest.NewRecorder()
	Me(rec, newRequest(http.MethodGet, "/api/me", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	Health(rec, newRequest(http.MethodGet, "/health", nil, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
