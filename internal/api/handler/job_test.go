package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/careerforge/careerforge/internal/api/middleware"
	"github.com/careerforge/careerforge/internal/config"
	"github.com/careerforge/careerforge/internal/domain"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/careerforge/careerforge/internal/repository"
	"github.com/careerforge/careerforge/internal/service"
	"github.com/careerforge/careerforge/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type nopParser struct{}

func (nopParser) ParseTemplate(ctx context.Context, in domain.ParseTemplateInput) (*domain.ResumeContent, string, error) {
	return &domain.ResumeContent{}, "", nil
}

func (nopParser) ParseLinkedInURL(ctx context.Context, in domain.ParseLinkedInURLInput) (*domain.ResumeContent, string, error) {
	return &domain.ResumeContent{}, "", nil
}

func (nopParser) ParseLinkedInZip(ctx context.Context, in domain.ParseLinkedInZipInput) (*domain.ResumeContent, string, error) {
	return &domain.ResumeContent{}, "", nil
}

type nopRenderer struct{}

func (nopRenderer) Render(ctx context.Context, resume *domain.Resume, template string) ([]byte, error) {
	return []byte("pdf"), nil
}

type nopScorer struct{}

func (nopScorer) ScoreResume(ctx context.Context, resumeText, jobDescription string, rewrite bool) *domain.ATSReport {
	return nil
}

func (nopScorer) EvaluateInterview(ctx context.Context, role, transcript string) *domain.InterviewReport {
	return nil
}

type stubStorage struct {
	objects map[string][]byte
}

var _ storage.ObjectStorage = (*stubStorage)(nil)

func newStubStorage() *stubStorage {
	return &stubStorage{objects: map[string][]byte{}}
}

func (s *stubStorage) EnsureBucket(ctx context.Context) error { return nil }

func (s *stubStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, ct string) error {
	data, _ := io.ReadAll(r)
	s.objects[key] = data
	return nil
}

func (s *stubStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *stubStorage) GetURL(key string) string { return "https://cdn.test/" + key }

func (s *stubStorage) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *stubStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

type gatewayFixture struct {
	router     *gin.Engine
	users      *repository.UserRepository
	resumes    *repository.ResumeRepository
	jobs       *repository.JobRepository
	interviews *repository.InterviewRepository
	evals      *repository.EvaluationRepository
	storage    *stubStorage
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	// A single connection keeps the in-memory database alive for the whole test.
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}

	jobs := repository.NewJobRepository(db)
	users := repository.NewUserRepository(db)
	resumes := repository.NewResumeRepository(db)
	interviews := repository.NewInterviewRepository(db)
	evals := repository.NewEvaluationRepository(db)
	store := newStubStorage()

	// The executor is never started: accepted jobs sit in the queue, which is
	// exactly what the gateway tests need.
	executor := service.NewExecutor(
		jobs, resumes, interviews, evals,
		nopParser{}, nopRenderer{}, nopScorer{}, store,
		logger.New(&logger.Config{Level: "error", Output: io.Discard}),
		&service.ExecutorConfig{Workers: 1, QueueSize: 32},
	)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	h := NewJobHandler(jobs, users, resumes, interviews, executor)
	jh := NewJudgeHandler(jobs, users, interviews, evals, executor)
	rh := NewResumeHandler(resumes, store)
	r.POST("/api/v1/jobs/:kind", h.Create)
	r.GET("/api/v1/jobs/:kind/:jobId", h.Status)
	r.POST("/api/v1/judge/evaluate", jh.Evaluate)
	r.GET("/api/v1/judge/interview/:id/aggregated", jh.Aggregated)
	r.GET("/api/v1/resumes/:id/artifact", rh.Artifact)

	return &gatewayFixture{
		router:     r,
		users:      users,
		resumes:    resumes,
		jobs:       jobs,
		interviews: interviews,
		evals:      evals,
		storage:    store,
	}
}

func (f *gatewayFixture) request(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *gatewayFixture) seedResume(t *testing.T, userID string) *domain.Resume {
	t.Helper()
	resume := &domain.Resume{ID: uuid.New().String(), UserID: userID, RawText: "text"}
	if err := f.resumes.Create(context.Background(), resume); err != nil {
		t.Fatalf("failed to seed resume: %v", err)
	}
	return resume
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestJobGateway_MissingIdentity(t *testing.T) {
	f := newGatewayFixture(t)
	w := f.request(t, "POST", "/api/v1/jobs/ats-score", "", `{"resume_id":"x"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestJobGateway_UnknownKind(t *testing.T) {
	f := newGatewayFixture(t)
	w := f.request(t, "POST", "/api/v1/jobs/mine-bitcoin", "user-1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["message"] == "" {
		t.Error("expected an error message")
	}
}

func TestJobGateway_AcceptsAndDeduplicates(t *testing.T) {
	f := newGatewayFixture(t)
	resume := f.seedResume(t, "user-1")
	payload := `{"resume_id":"` + resume.ID + `"}`

	first := f.request(t, "POST", "/api/v1/jobs/ats-score", "user-1", payload)
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", first.Code, first.Body.String())
	}
	firstBody := decodeBody(t, first)
	if firstBody["status"] != string(domain.JobStatusPending) {
		t.Errorf("expected pending status, got %v", firstBody["status"])
	}

	// Second submission while the first is active returns the existing job.
	second := f.request(t, "POST", "/api/v1/jobs/ats-score", "user-1", payload)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d: %s", second.Code, second.Body.String())
	}
	secondBody := decodeBody(t, second)
	if secondBody["jobId"] != firstBody["jobId"] {
		t.Errorf("expected existing job id %v, got %v", firstBody["jobId"], secondBody["jobId"])
	}
}

func TestJobGateway_ResumeOwnership(t *testing.T) {
	f := newGatewayFixture(t)
	resume := f.seedResume(t, "someone-else")

	w := f.request(t, "POST", "/api/v1/jobs/ats-score", "user-1", `{"resume_id":"`+resume.ID+`"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's resume, got %d", w.Code)
	}
}

func TestJobGateway_QuotaExceeded(t *testing.T) {
	f := newGatewayFixture(t)
	resume := f.seedResume(t, "user-1")
	payload := `{"resume_id":"` + resume.ID + `"}`

	// Free plan: 3 ATS checks per month. The dedup claim is per resource, so
	// each submission targets a fresh resume.
	for i := 0; i < 3; i++ {
		r := f.seedResume(t, "user-1")
		w := f.request(t, "POST", "/api/v1/jobs/ats-score", "user-1", `{"resume_id":"`+r.ID+`"}`)
		if w.Code != http.StatusAccepted {
			t.Fatalf("submission %d: expected 202, got %d: %s", i, w.Code, w.Body.String())
		}
	}

	w := f.request(t, "POST", "/api/v1/jobs/ats-score", "user-1", payload)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["limit"] != float64(3) || body["used"] != float64(3) {
		t.Errorf("expected limit=3 used=3, got limit=%v used=%v", body["limit"], body["used"])
	}
	if body["planId"] != "free" {
		t.Errorf("expected planId free, got %v", body["planId"])
	}
}

func TestJobGateway_ParseJobsAreNotGated(t *testing.T) {
	f := newGatewayFixture(t)

	// Well past any free-plan quota.
	for i := 0; i < 6; i++ {
		w := f.request(t, "POST", "/api/v1/jobs/parse-linkedin-url", "user-1", `{"profile_url":"https://linkedin.com/in/jane"}`)
		if w.Code != http.StatusAccepted {
			t.Fatalf("submission %d: expected 202, got %d: %s", i, w.Code, w.Body.String())
		}
	}
}

func TestJobGateway_StatusEndpoint(t *testing.T) {
	f := newGatewayFixture(t)
	resume := f.seedResume(t, "user-1")

	created := f.request(t, "POST", "/api/v1/jobs/ats-score", "user-1", `{"resume_id":"`+resume.ID+`"}`)
	jobID := decodeBody(t, created)["jobId"].(string)

	w := f.request(t, "GET", "/api/v1/jobs/ats-score/"+jobID, "user-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != string(domain.JobStatusPending) {
		t.Errorf("expected pending, got %v", body["status"])
	}
	if _, hasResult := body["result"]; hasResult {
		t.Error("expected no result field while pending")
	}

	// Kind mismatch in the path is a 404.
	if w := f.request(t, "GET", "/api/v1/jobs/render-pdf/"+jobID, "user-1", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for kind mismatch, got %d", w.Code)
	}
	// Another user's job is a 404.
	if w := f.request(t, "GET", "/api/v1/jobs/ats-score/"+jobID, "user-2", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign job, got %d", w.Code)
	}
}

func TestJobGateway_LinkedInURLRequiresHTTPS(t *testing.T) {
	f := newGatewayFixture(t)
	w := f.request(t, "POST", "/api/v1/jobs/parse-linkedin-url", "user-1", `{"profile_url":"http://linkedin.com/in/jane"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for plain http, got %d", w.Code)
	}
}
