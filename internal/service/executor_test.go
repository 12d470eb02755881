package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/careerforge/careerforge/internal/config"
	"github.com/careerforge/careerforge/internal/domain"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/careerforge/careerforge/internal/repository"
	"github.com/careerforge/careerforge/internal/storage"
	"github.com/google/uuid"
)

// ============================================
// Test doubles
// ============================================

type fakeParser struct {
	content *domain.ResumeContent
	raw     string
	err     error
}

func (p *fakeParser) ParseTemplate(ctx context.Context, in domain.ParseTemplateInput) (*domain.ResumeContent, string, error) {
	return p.content, p.raw, p.err
}

func (p *fakeParser) ParseLinkedInURL(ctx context.Context, in domain.ParseLinkedInURLInput) (*domain.ResumeContent, string, error) {
	return p.content, p.raw, p.err
}

func (p *fakeParser) ParseLinkedInZip(ctx context.Context, in domain.ParseLinkedInZipInput) (*domain.ResumeContent, string, error) {
	return p.content, p.raw, p.err
}

type fakeRenderer struct {
	pdf []byte
	err error
}

func (r *fakeRenderer) Render(ctx context.Context, resume *domain.Resume, template string) ([]byte, error) {
	return r.pdf, r.err
}

// fakeScorer with nil reports simulates an unavailable upstream.
type fakeScorer struct {
	ats       *domain.ATSReport
	interview *domain.InterviewReport
}

func (s *fakeScorer) ScoreResume(ctx context.Context, resumeText, jobDescription string, rewrite bool) *domain.ATSReport {
	return s.ats
}

func (s *fakeScorer) EvaluateInterview(ctx context.Context, role, transcript string) *domain.InterviewReport {
	return s.interview
}

type fakeStorage struct {
	uploads map[string][]byte
}

var _ storage.ObjectStorage = (*fakeStorage)(nil)

func (s *fakeStorage) EnsureBucket(ctx context.Context) error { return nil }

func (s *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	data, _ := io.ReadAll(reader)
	s.uploads[key] = data
	return nil
}

func (s *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s.uploads[key]))), nil
}

func (s *fakeStorage) GetURL(key string) string { return "https://cdn.test/" + key }

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(s.uploads, key)
	return nil
}

func (s *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.uploads[key]
	return ok, nil
}

// ============================================
// Fixture
// ============================================

type executorFixture struct {
	executor   *Executor
	jobs       *repository.JobRepository
	resumes    *repository.ResumeRepository
	interviews *repository.InterviewRepository
	evals      *repository.EvaluationRepository

	parser   *fakeParser
	renderer *fakeRenderer
	scorer   *fakeScorer
	storage  *fakeStorage
}

func newExecutorFixture(t *testing.T) *executorFixture {
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

	f := &executorFixture{
		jobs:       repository.NewJobRepository(db),
		resumes:    repository.NewResumeRepository(db),
		interviews: repository.NewInterviewRepository(db),
		evals:      repository.NewEvaluationRepository(db),
		parser:     &fakeParser{content: &domain.ResumeContent{Name: "Jane Doe"}, raw: "Jane Doe resume text"},
		renderer:   &fakeRenderer{pdf: []byte("%PDF-1.4 test")},
		scorer:     &fakeScorer{},
		storage:    &fakeStorage{},
	}
	f.executor = NewExecutor(
		f.jobs, f.resumes, f.interviews, f.evals,
		f.parser, f.renderer, f.scorer, f.storage,
		logger.New(&logger.Config{Level: "error", Output: io.Discard}),
		&ExecutorConfig{Workers: 1, QueueSize: 8},
	)
	return f
}

func (f *executorFixture) createJob(t *testing.T, kind domain.JobKind, resourceID string, input interface{}) *domain.JobRecord {
	t.Helper()
	encoded, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("failed to encode input: %v", err)
	}
	job := &domain.JobRecord{
		ID:         uuid.New().String(),
		UserID:     "user-1",
		ResourceID: resourceID,
		Kind:       kind,
		Status:     domain.JobStatusPending,
		Input:      string(encoded),
	}
	if err := f.jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	return job
}

func (f *executorFixture) runJob(t *testing.T, jobID string) *domain.JobRecord {
	t.Helper()
	f.executor.run(context.Background(), jobID)
	job, err := f.jobs.GetByID(context.Background(), jobID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	return job
}

// ============================================
// Tests
// ============================================

func TestExecutor_ParseTemplateCreatesResume(t *testing.T) {
	f := newExecutorFixture(t)

	job := f.createJob(t, domain.JobKindParseTemplate, "", domain.ParseTemplateInput{
		FilePath: "uploads/resume.pdf",
		FileName: "resume.pdf",
		MIMEType: "application/pdf",
	})
	done := f.runJob(t, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (error=%q)", done.Status, done.Error)
	}
	if done.Progress != 100 {
		t.Errorf("expected progress 100, got %d", done.Progress)
	}

	var out domain.ParseOutput
	if err := json.Unmarshal([]byte(done.Result), &out); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if out.ResumeID == "" {
		t.Fatal("expected a resume id in the result")
	}
	if done.ResourceID != out.ResumeID {
		t.Errorf("expected job linked to resume %s, got %s", out.ResumeID, done.ResourceID)
	}

	resume, err := f.resumes.GetByID(context.Background(), out.ResumeID)
	if err != nil {
		t.Fatalf("expected resume to exist: %v", err)
	}
	if resume.Content.Name != "Jane Doe" {
		t.Errorf("expected parsed content persisted, got %+v", resume.Content)
	}
	if resume.Source != "upload" {
		t.Errorf("expected source upload, got %q", resume.Source)
	}
}

func TestExecutor_RenderStoresArtifact(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	resume := &domain.Resume{ID: uuid.New().String(), UserID: "user-1", Title: "My resume", RawText: "text"}
	if err := f.resumes.Create(ctx, resume); err != nil {
		t.Fatalf("failed to seed resume: %v", err)
	}

	job := f.createJob(t, domain.JobKindRenderPDF, resume.ID, domain.RenderInput{ResumeID: resume.ID, Template: "modern"})
	done := f.runJob(t, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (error=%q)", done.Status, done.Error)
	}

	var out domain.RenderOutput
	if err := json.Unmarshal([]byte(done.Result), &out); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if _, ok := f.storage.uploads[out.ArtifactKey]; !ok {
		t.Errorf("expected artifact uploaded under %q", out.ArtifactKey)
	}

	reloaded, _ := f.resumes.GetByID(ctx, resume.ID)
	if reloaded.ArtifactKey != out.ArtifactKey {
		t.Errorf("expected artifact key written back to resume, got %q", reloaded.ArtifactKey)
	}
	if done.Active != nil {
		t.Error("expected active claim released after completion")
	}
}

func TestExecutor_RenderReplacesPreviousArtifact(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	resume := &domain.Resume{ID: uuid.New().String(), UserID: "user-1", Title: "My resume", RawText: "text"}
	if err := f.resumes.Create(ctx, resume); err != nil {
		t.Fatalf("failed to seed resume: %v", err)
	}

	first := f.createJob(t, domain.JobKindRenderPDF, resume.ID, domain.RenderInput{ResumeID: resume.ID, Template: "modern"})
	if done := f.runJob(t, first.ID); done.Status != domain.JobStatusCompleted {
		t.Fatalf("first render: expected completed, got %s (error=%q)", done.Status, done.Error)
	}
	firstKey, _ := f.resumes.GetByID(ctx, resume.ID)

	second := f.createJob(t, domain.JobKindRenderPDF, resume.ID, domain.RenderInput{ResumeID: resume.ID, Template: "classic"})
	if done := f.runJob(t, second.ID); done.Status != domain.JobStatusCompleted {
		t.Fatalf("second render: expected completed, got %s (error=%q)", done.Status, done.Error)
	}

	reloaded, _ := f.resumes.GetByID(ctx, resume.ID)
	if reloaded.ArtifactKey == firstKey.ArtifactKey {
		t.Fatal("expected a fresh artifact key for the second render")
	}
	if _, ok := f.storage.uploads[reloaded.ArtifactKey]; !ok {
		t.Errorf("expected new artifact stored under %q", reloaded.ArtifactKey)
	}
	// The superseded artifact was cleaned up.
	if _, ok := f.storage.uploads[firstKey.ArtifactKey]; ok {
		t.Errorf("expected previous artifact %q deleted", firstKey.ArtifactKey)
	}
}

func TestExecutor_ATSFallsBackWhenScorerUnavailable(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	resume := &domain.Resume{ID: uuid.New().String(), UserID: "user-1", RawText: "resume text"}
	if err := f.resumes.Create(ctx, resume); err != nil {
		t.Fatalf("failed to seed resume: %v", err)
	}

	// Scorer returns nil: upstream outage. The job must still complete.
	job := f.createJob(t, domain.JobKindATSScore, resume.ID, domain.ScoreInput{ResumeID: resume.ID})
	done := f.runJob(t, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed despite scorer outage, got %s (error=%q)", done.Status, done.Error)
	}

	var report domain.ATSReport
	if err := json.Unmarshal([]byte(done.Result), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if !report.Generated {
		t.Error("expected fallback report flagged as generated")
	}
	if report.Score < 70 || report.Score >= 100 {
		t.Errorf("expected fallback score in [70, 100), got %d", report.Score)
	}
}

func TestExecutor_ATSUsesRealReportWhenAvailable(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.scorer.ats = &domain.ATSReport{Score: 88, Summary: "solid"}

	resume := &domain.Resume{ID: uuid.New().String(), UserID: "user-1", RawText: "resume text"}
	if err := f.resumes.Create(ctx, resume); err != nil {
		t.Fatalf("failed to seed resume: %v", err)
	}

	job := f.createJob(t, domain.JobKindATSScore, resume.ID, domain.ScoreInput{ResumeID: resume.ID})
	done := f.runJob(t, job.ID)

	var report domain.ATSReport
	if err := json.Unmarshal([]byte(done.Result), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Score != 88 || report.Generated {
		t.Errorf("expected the scorer's own report, got %+v", report)
	}
}

func TestExecutor_InterviewEvaluateMarksEvaluated(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	iv := &domain.Interview{ID: uuid.New().String(), UserID: "user-1", Role: "backend engineer", Status: domain.InterviewStatusCompleted}
	if err := f.interviews.Create(ctx, iv); err != nil {
		t.Fatalf("failed to seed interview: %v", err)
	}
	answer := &domain.InterviewAnswer{ID: uuid.New().String(), InterviewID: iv.ID, Position: 1, Question: "Tell me about a project", Transcript: "I built a service"}
	if err := f.interviews.AddAnswer(ctx, answer); err != nil {
		t.Fatalf("failed to seed answer: %v", err)
	}

	job := f.createJob(t, domain.JobKindInterviewEvaluate, iv.ID, domain.EvaluateInput{InterviewID: iv.ID})
	done := f.runJob(t, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (error=%q)", done.Status, done.Error)
	}

	reloaded, _ := f.interviews.GetByID(ctx, iv.ID)
	if reloaded.Status != domain.InterviewStatusEvaluated {
		t.Errorf("expected interview evaluated, got %s", reloaded.Status)
	}
	if reloaded.Report == "" {
		t.Error("expected report stored on interview")
	}
}

func TestExecutor_InterviewEvaluateFailsWithoutAnswers(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	iv := &domain.Interview{ID: uuid.New().String(), UserID: "user-1", Status: domain.InterviewStatusCompleted}
	if err := f.interviews.Create(ctx, iv); err != nil {
		t.Fatalf("failed to seed interview: %v", err)
	}

	job := f.createJob(t, domain.JobKindInterviewEvaluate, iv.ID, domain.EvaluateInput{InterviewID: iv.ID})
	done := f.runJob(t, job.ID)

	if done.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if done.Error == "" {
		t.Error("expected error message on failed job")
	}

	// The interview itself is untouched: evaluated tracks job completion.
	reloaded, _ := f.interviews.GetByID(ctx, iv.ID)
	if reloaded.Status != domain.InterviewStatusCompleted {
		t.Errorf("expected interview status unchanged, got %s", reloaded.Status)
	}
}

func TestExecutor_JudgeEvaluateCompletesEvaluation(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.scorer.interview = &domain.InterviewReport{
		Scores:         map[string]float64{"technical": 82},
		Strengths:      []string{"clear answers"},
		Recommendation: domain.RecommendationHire,
	}

	iv := &domain.Interview{ID: uuid.New().String(), UserID: "user-1", Role: "backend engineer", Status: domain.InterviewStatusCompleted}
	if err := f.interviews.Create(ctx, iv); err != nil {
		t.Fatalf("failed to seed interview: %v", err)
	}
	answer := &domain.InterviewAnswer{ID: uuid.New().String(), InterviewID: iv.ID, Position: 1, Question: "Q", Transcript: "A"}
	if err := f.interviews.AddAnswer(ctx, answer); err != nil {
		t.Fatalf("failed to seed answer: %v", err)
	}

	eval, err := f.evals.GetOrCreate(ctx, &domain.JudgeEvaluation{
		ID:          uuid.New().String(),
		InterviewID: iv.ID,
		JudgeID:     "judge-1",
		Weight:      1,
	})
	if err != nil {
		t.Fatalf("failed to seed evaluation: %v", err)
	}

	job := f.createJob(t, domain.JobKindJudgeEvaluate, eval.ID, domain.JudgeInput{InterviewID: iv.ID, JudgeID: "judge-1"})
	done := f.runJob(t, job.ID)

	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (error=%q)", done.Status, done.Error)
	}

	reloaded, _ := f.evals.GetByID(ctx, eval.ID)
	if reloaded.Status != domain.JobStatusCompleted {
		t.Errorf("expected evaluation completed, got %s", reloaded.Status)
	}
	if reloaded.Scores["technical"] != 82 {
		t.Errorf("expected judge scores persisted, got %+v", reloaded.Scores)
	}
	if reloaded.Recommendation != domain.RecommendationHire {
		t.Errorf("expected recommendation hire, got %q", reloaded.Recommendation)
	}
}

func TestExecutor_RecoverInterrupted(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	// A job the previous process was working on when it died.
	stuck := f.createJob(t, domain.JobKindATSScore, "resume-stuck", domain.ScoreInput{ResumeID: "resume-stuck"})
	if err := f.jobs.MarkProcessing(ctx, stuck.ID); err != nil {
		t.Fatalf("failed to mark stuck job processing: %v", err)
	}

	// A job that was accepted but never started.
	pending := f.createJob(t, domain.JobKindATSScore, "resume-pending", domain.ScoreInput{ResumeID: "resume-pending"})

	if err := f.executor.RecoverInterrupted(ctx); err != nil {
		t.Fatalf("recovery failed: %v", err)
	}

	reloaded, _ := f.jobs.GetByID(ctx, stuck.ID)
	if reloaded.Status != domain.JobStatusFailed {
		t.Errorf("expected interrupted job failed, got %s", reloaded.Status)
	}
	if !strings.Contains(reloaded.Error, "restart") {
		t.Errorf("expected restart error message, got %q", reloaded.Error)
	}
	if reloaded.Active != nil {
		t.Error("expected failed job to release its claim")
	}

	// The pending job was re-enqueued, not failed.
	requeued, _ := f.jobs.GetByID(ctx, pending.ID)
	if requeued.Status != domain.JobStatusPending {
		t.Errorf("expected pending job untouched, got %s", requeued.Status)
	}
	select {
	case got := <-f.executor.queue:
		if got != pending.ID {
			t.Errorf("expected pending job %s in queue, got %s", pending.ID, got)
		}
	default:
		t.Error("expected pending job re-enqueued")
	}
}

func TestExecutor_PanicFailsJob(t *testing.T) {
	f := newExecutorFixture(t)

	f.executor.processors[domain.JobKindATSScore] = func(ctx context.Context, job *domain.JobRecord) (interface{}, error) {
		panic("boom")
	}

	job := f.createJob(t, domain.JobKindATSScore, "", domain.ScoreInput{ResumeID: "whatever"})
	done := f.runJob(t, job.ID)

	if done.Status != domain.JobStatusFailed {
		t.Fatalf("expected panicking job to fail, got %s", done.Status)
	}
	if !strings.Contains(done.Error, "panicked") {
		t.Errorf("expected panic message, got %q", done.Error)
	}
}

func TestExecutor_EnqueueQueueFull(t *testing.T) {
	f := newExecutorFixture(t)

	for i := 0; i < cap(f.executor.queue); i++ {
		if err := f.executor.Enqueue(uuid.New().String()); err != nil {
			t.Fatalf("unexpected enqueue failure at %d: %v", i, err)
		}
	}
	if err := f.executor.Enqueue("overflow"); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestExecutor_StartStopDrains(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	resume := &domain.Resume{ID: uuid.New().String(), UserID: "user-1", RawText: "text"}
	if err := f.resumes.Create(ctx, resume); err != nil {
		t.Fatalf("failed to seed resume: %v", err)
	}
	job := f.createJob(t, domain.JobKindATSScore, resume.ID, domain.ScoreInput{ResumeID: resume.ID})

	f.executor.Start(ctx)
	if err := f.executor.Enqueue(job.ID); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.executor.Stop(stopCtx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	done, _ := f.jobs.GetByID(ctx, job.ID)
	if done.Status != domain.JobStatusCompleted {
		t.Errorf("expected job drained before stop returned, got %s", done.Status)
	}
}
