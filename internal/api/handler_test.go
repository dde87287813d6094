package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ClubSend/internal/api"
	"ClubSend/internal/db/dbtest"
	"ClubSend/internal/jobs"
	"ClubSend/internal/models"
	"ClubSend/internal/sender"
	"ClubSend/internal/worker"
)

type stubAnnouncer struct {
	result sender.Result
	panics bool
}

func (a *stubAnnouncer) Send(context.Context, uuid.UUID, string) (sender.Result, error) {
	if a.panics {
		panic("template exploded")
	}
	return a.result, nil
}

type HandlerTestSuite struct {
	suite.Suite
	store     *dbtest.MemStore
	svc       *jobs.Service
	announcer *stubAnnouncer
	queue     chan *models.EmailJob
	router    *gin.Engine
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.store = dbtest.NewMemStore()
	s.announcer = &stubAnnouncer{result: sender.Result{Success: true, SuccessCount: 2}}
	s.svc = &jobs.Service{Store: s.store, Sender: s.announcer, Log: zap.NewNop()}
	s.queue = make(chan *models.EmailJob, 2)

	s.router = s.newRouter(api.RouterConfig{TriggerRate: rate.Inf, TriggerBurst: 1})
}

func (s *HandlerTestSuite) newRouter(cfg api.RouterConfig) *gin.Engine {
	h := &api.Handler{
		Jobs:       s.svc,
		Dispatcher: &worker.Dispatcher{Runner: s.svc, Queue: s.queue, Log: zap.NewNop()},
		Log:        zap.NewNop(),
	}
	return api.NewRouter(h, cfg, zap.NewNop())
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) do(router *gin.Engine, method, url string, body any, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			s.Require().NoError(json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (s *HandlerTestSuite) enqueue() uuid.UUID {
	job, err := s.svc.Enqueue(context.Background(), uuid.NewString(), "")
	s.Require().NoError(err)
	return job.ID
}

// ================================================================================
// Enqueue
// ================================================================================

func (s *HandlerTestSuite) TestEnqueue() {
	s.Run("success: returns job id", func() {
		rec, body := s.do(s.router, http.MethodPost, "/api/email-jobs",
			map[string]any{"eventId": uuid.NewString(), "customMessage": "Bring balls"}, nil)

		s.Equal(http.StatusOK, rec.Code)
		s.Equal(true, body["success"])
		s.Equal("Email job queued", body["message"])

		id, err := uuid.Parse(body["jobId"].(string))
		s.Require().NoError(err)
		job, err := s.svc.Status(context.Background(), id)
		s.Require().NoError(err)
		s.Equal(models.StatusQueued, job.Status)
	})

	cases := []struct {
		name string
		body any
	}{
		{"missing eventId", map[string]any{"customMessage": "hi"}},
		{"malformed eventId", map[string]any{"eventId": "42"}},
		{"message too long", map[string]any{"eventId": uuid.NewString(), "customMessage": strings.Repeat("a", jobs.MaxMessageLength+1)}},
		{"malformed json", "{"},
	}
	for _, tc := range cases {
		s.Run("bad request: "+tc.name, func() {
			rec, body := s.do(s.router, http.MethodPost, "/api/email-jobs", tc.body, nil)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal(false, body["success"])
		})
	}
}

// ================================================================================
// Status
// ================================================================================

func (s *HandlerTestSuite) TestStatus() {
	s.Run("success: returns stored job", func() {
		id := s.enqueue()

		rec, body := s.do(s.router, http.MethodGet, "/api/email-jobs/"+id.String(), nil, nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal(true, body["success"])

		job := body["job"].(map[string]any)
		s.Equal(id.String(), job["id"])
		s.Equal("queued", job["status"])
	})

	s.Run("not found", func() {
		rec, body := s.do(s.router, http.MethodGet, "/api/email-jobs/"+uuid.NewString(), nil, nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal(false, body["success"])
		s.Equal("job not found", body["message"])
	})

	s.Run("malformed id", func() {
		rec, _ := s.do(s.router, http.MethodGet, "/api/email-jobs/nope", nil, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// ================================================================================
// Process
// ================================================================================

func (s *HandlerTestSuite) TestProcess_NoQueuedJob() {
	for _, url := range []string{"/api/process-email-jobs", "/api/process-email-jobs?wait=true"} {
		rec, body := s.do(s.router, http.MethodPost, url, nil, nil)
		s.Equal(http.StatusOK, rec.Code, url)
		s.Equal("No queued email jobs", body["message"])
		s.NotContains(body, "success")
	}
}

func (s *HandlerTestSuite) TestProcess_DispatchesToPool() {
	id := s.enqueue()

	rec, body := s.do(s.router, http.MethodPost, "/api/process-email-jobs", nil, nil)
	s.Equal(http.StatusAccepted, rec.Code)
	s.Equal(true, body["success"])
	s.Equal("Email job started", body["message"])
	s.Equal(id.String(), body["jobId"])

	s.Require().Len(s.queue, 1)
	job, err := s.svc.Status(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(models.StatusProcessing, job.Status)
}

func (s *HandlerTestSuite) TestProcess_QueueFull() {
	s.queue <- &models.EmailJob{ID: uuid.New()}
	s.queue <- &models.EmailJob{ID: uuid.New()}
	id := s.enqueue()

	rec, body := s.do(s.router, http.MethodPost, "/api/process-email-jobs", nil, nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Equal(false, body["success"])

	job, err := s.svc.Status(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(models.StatusQueued, job.Status)
}

func (s *HandlerTestSuite) TestProcess_Wait() {
	id := s.enqueue()

	rec, body := s.do(s.router, http.MethodPost, "/api/process-email-jobs?wait=true", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, body["success"])
	s.Equal("Email job completed", body["message"])

	result := body["result"].(map[string]any)
	s.Equal(true, result["success"])
	s.EqualValues(2, result["successCount"])
	s.EqualValues(0, result["failureCount"])

	job, err := s.svc.Status(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, job.Status)
}

func (s *HandlerTestSuite) TestProcess_WaitSetupFailure() {
	s.announcer.result = sender.Result{Error: "no recipients found"}
	id := s.enqueue()

	rec, body := s.do(s.router, http.MethodPost, "/api/process-email-jobs?wait=true", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(false, body["success"])
	s.Equal("no recipients found", body["result"].(map[string]any)["error"])

	job, err := s.svc.Status(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, job.Status)
}

func (s *HandlerTestSuite) TestProcess_WaitPanicStillAnswers() {
	s.announcer.panics = true
	id := s.enqueue()

	rec, body := s.do(s.router, http.MethodPost, "/api/process-email-jobs?wait=true", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(false, body["success"])

	job, err := s.svc.Status(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, job.Status)
}

func (s *HandlerTestSuite) TestProcess_CronSecret() {
	router := s.newRouter(api.RouterConfig{TriggerRate: rate.Inf, TriggerBurst: 1, CronSecret: "s3cret"})

	rec, _ := s.do(router, http.MethodPost, "/api/process-email-jobs", nil, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(router, http.MethodPost, "/api/process-email-jobs", nil,
		http.Header{"Authorization": {"Bearer wrong"}})
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, body := s.do(router, http.MethodPost, "/api/process-email-jobs", nil,
		http.Header{"Authorization": {"Bearer s3cret"}})
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("No queued email jobs", body["message"])
}

func (s *HandlerTestSuite) TestProcess_RateLimited() {
	router := s.newRouter(api.RouterConfig{TriggerRate: rate.Limit(0.001), TriggerBurst: 2})

	for i := 0; i < 2; i++ {
		rec, _ := s.do(router, http.MethodPost, "/api/process-email-jobs", nil, nil)
		s.Equal(http.StatusOK, rec.Code)
	}

	rec, body := s.do(router, http.MethodPost, "/api/process-email-jobs", nil, nil)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal(false, body["success"])
}

// ================================================================================
// Ambient
// ================================================================================

func (s *HandlerTestSuite) TestHealth() {
	rec, body := s.do(s.router, http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", body["status"])
}

func (s *HandlerTestSuite) TestRequestID() {
	rec, _ := s.do(s.router, http.MethodGet, "/health", nil, nil)
	s.Len(rec.Header().Get("X-Request-ID"), 26)

	rec, _ = s.do(s.router, http.MethodGet, "/health", nil, http.Header{"X-Request-Id": {"abc"}})
	s.Equal("abc", rec.Header().Get("X-Request-ID"))
}

func (s *HandlerTestSuite) TestRecovery() {
	s.router.GET("/boom", func(*gin.Context) { panic("boom") })

	rec, body := s.do(s.router, http.MethodGet, "/boom", nil, nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal(false, body["success"])
}
