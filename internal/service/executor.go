package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/careerforge/careerforge/internal/repository"
	"github.com/careerforge/careerforge/internal/storage"
	"github.com/google/uuid"
)

// ErrQueueFull is returned by Enqueue when the bounded queue has no room.
var ErrQueueFull = errors.New("job queue is full")

// processorFunc runs one job kind's work and returns the serializable result.
// The driver loop owns every status transition; processors only do the work.
type processorFunc func(ctx context.Context, job *domain.JobRecord) (interface{}, error)

// ExecutorConfig holds worker pool sizing.
type ExecutorConfig struct {
	Workers   int
	QueueSize int
}

// Executor advances job records through their state machine on a bounded
// worker pool fed by a buffered queue. Each job is fetched, marked
// processing, dispatched to its kind's processor, and completed or failed;
// a panic inside a processor fails the job instead of killing the worker.
type Executor struct {
	jobs       *repository.JobRepository
	resumes    *repository.ResumeRepository
	interviews *repository.InterviewRepository
	evals      *repository.EvaluationRepository

	parser   Parser
	renderer Renderer
	scorer   Scorer
	store    storage.ObjectStorage

	processors map[domain.JobKind]processorFunc

	queue   chan string
	workers int
	wg      sync.WaitGroup
	log     *logger.Logger
}

// NewExecutor creates an executor wired to its repositories and external
// collaborators.
func NewExecutor(
	jobs *repository.JobRepository,
	resumes *repository.ResumeRepository,
	interviews *repository.InterviewRepository,
	evals *repository.EvaluationRepository,
	parser Parser,
	renderer Renderer,
	scorer Scorer,
	store storage.ObjectStorage,
	log *logger.Logger,
	cfg *ExecutorConfig,
) *Executor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	e := &Executor{
		jobs:       jobs,
		resumes:    resumes,
		interviews: interviews,
		evals:      evals,
		parser:     parser,
		renderer:   renderer,
		scorer:     scorer,
		store:      store,
		queue:      make(chan string, queueSize),
		workers:    workers,
		log:        log,
	}

	e.processors = map[domain.JobKind]processorFunc{
		domain.JobKindParseTemplate:     e.processParse,
		domain.JobKindParseLinkedInURL:  e.processParse,
		domain.JobKindParseLinkedInZip:  e.processParse,
		domain.JobKindRenderPDF:         e.processRender,
		domain.JobKindATSScore:          e.processATS,
		domain.JobKindATSRewrite:        e.processATS,
		domain.JobKindInterviewEvaluate: e.processInterviewEvaluate,
		domain.JobKindJudgeEvaluate:     e.processJudgeEvaluate,
	}

	return e
}

// Start launches the worker pool. Workers drain the queue until Stop closes it.
func (e *Executor) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func(workerID int) {
			defer e.wg.Done()
			for jobID := range e.queue {
				e.run(ctx, jobID)
			}
		}(i)
	}
	e.log.WithFields(logger.Fields{"workers": e.workers, "queue_size": cap(e.queue)}).
		Info("Job executor started")
}

// Stop closes the queue and waits for in-flight jobs to finish, up to the
// context deadline.
func (e *Executor) Stop(ctx context.Context) error {
	close(e.queue)
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor shutdown timed out: %w", ctx.Err())
	}
}

// Enqueue submits a job id to the worker pool without blocking.
func (e *Executor) Enqueue(jobID string) error {
	select {
	case e.queue <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// RecoverInterrupted handles jobs left over from a previous process: jobs
// stuck in processing are failed fast (their work died with the old
// process), and pending jobs are re-enqueued.
func (e *Executor) RecoverInterrupted(ctx context.Context) error {
	stuck, err := e.jobs.FindByStatus(ctx, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to list interrupted jobs: %w", err)
	}
	for _, job := range stuck {
		if err := e.jobs.Fail(ctx, job.ID, "interrupted by process restart"); err != nil {
			e.log.WithField(logger.FieldJobID, job.ID).WithError(err).Error("Failed to fail interrupted job")
			continue
		}
		if job.Kind == domain.JobKindJudgeEvaluate {
			e.failLinkedEvaluation(ctx, &job, "interrupted by process restart")
		}
		e.log.WithFields(logger.Fields{
			logger.FieldJobID:   job.ID,
			logger.FieldJobKind: string(job.Kind),
		}).Warn("Failed job interrupted by restart")
	}

	pending, err := e.jobs.FindByStatus(ctx, domain.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}
	requeued := 0
	for _, job := range pending {
		if err := e.Enqueue(job.ID); err != nil {
			e.log.WithField(logger.FieldJobID, job.ID).WithError(err).Warn("Could not re-enqueue pending job")
			continue
		}
		requeued++
	}
	if len(stuck) > 0 || requeued > 0 {
		e.log.WithFields(logger.Fields{"failed": len(stuck), "requeued": requeued}).
			Info("Boot recovery finished")
	}
	return nil
}

// run drives one job through its state machine.
func (e *Executor) run(ctx context.Context, jobID string) {
	ctx = logger.SetJobID(ctx, jobID)

	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		logger.CtxError(ctx, "Failed to load job: %v", err)
		return
	}
	if job.Status.IsTerminal() {
		return
	}
	ctx = logger.SetJobKind(ctx, string(job.Kind))

	processor, ok := e.processors[job.Kind]
	if !ok {
		_ = e.jobs.Fail(ctx, job.ID, fmt.Sprintf("unknown job kind %q", job.Kind))
		return
	}

	if err := e.jobs.MarkProcessing(ctx, job.ID); err != nil {
		logger.CtxError(ctx, "Failed to mark job processing: %v", err)
		return
	}

	start := time.Now()
	result, err := e.dispatch(ctx, job, processor)
	if err != nil {
		logger.CtxError(ctx, "Job failed: %v", err)
		if failErr := e.jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
			logger.CtxError(ctx, "Failed to persist job failure: %v", failErr)
		}
		if job.Kind == domain.JobKindJudgeEvaluate {
			e.failLinkedEvaluation(ctx, job, err.Error())
		}
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		_ = e.jobs.Fail(ctx, job.ID, fmt.Sprintf("failed to encode result: %v", err))
		return
	}
	if err := e.jobs.Complete(ctx, job.ID, string(payload)); err != nil {
		logger.CtxError(ctx, "Failed to complete job: %v", err)
		return
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldStatus:     string(domain.JobStatusCompleted),
	}).Info(ctx, "Job finished: kind=%s", job.Kind)
}

// dispatch invokes the processor, converting a panic into a job failure.
func (e *Executor) dispatch(ctx context.Context, job *domain.JobRecord, processor processorFunc) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return processor(ctx, job)
}

// progress records a milestone. Progress writes are advisory; a failed write
// never fails the job.
func (e *Executor) progress(ctx context.Context, jobID string, value int) {
	if err := e.jobs.SetProgress(ctx, jobID, value); err != nil {
		logger.CtxWarn(ctx, "Failed to write progress %d: %v", value, err)
	}
}

// failLinkedEvaluation marks the judge evaluation behind a judge-evaluate job
// failed so the two records stay consistent.
func (e *Executor) failLinkedEvaluation(ctx context.Context, job *domain.JobRecord, message string) {
	var in domain.JudgeInput
	if err := json.Unmarshal([]byte(job.Input), &in); err != nil {
		return
	}
	eval, err := e.evals.GetByPair(ctx, in.InterviewID, in.JudgeID)
	if err != nil {
		return
	}
	if err := e.evals.Fail(ctx, eval.ID, message); err != nil {
		logger.CtxError(ctx, "Failed to fail judge evaluation: %v", err)
	}
}

// ============================================
// Kind processors
// ============================================

// processParse handles the three parse-* kinds: extract content, create or
// update the resume, and link the job to it.
func (e *Executor) processParse(ctx context.Context, job *domain.JobRecord) (interface{}, error) {
	var (
		content *domain.ResumeContent
		rawText string
		source  string
		title   string
		err     error
	)

	e.progress(ctx, job.ID, 10)

	switch job.Kind {
	case domain.JobKindParseTemplate:
		var in domain.ParseTemplateInput
		if err := json.Unmarshal([]byte(job.Input), &in); err != nil {
			return nil, fmt.Errorf("invalid parse input: %w", err)
		}
		content, rawText, err = e.parser.ParseTemplate(ctx, in)
		source = "upload"
		title = in.FileName
	case domain.JobKindParseLinkedInURL:
		var in domain.ParseLinkedInURLInput
		if err := json.Unmarshal([]byte(job.Input), &in); err != nil {
			return nil, fmt.Errorf("invalid parse input: %w", err)
		}
		content, rawText, err = e.parser.ParseLinkedInURL(ctx, in)
		source = "linkedin-url"
	case domain.JobKindParseLinkedInZip:
		var in domain.ParseLinkedInZipInput
		if err := json.Unmarshal([]byte(job.Input), &in); err != nil {
			return nil, fmt.Errorf("invalid parse input: %w", err)
		}
		content, rawText, err = e.parser.ParseLinkedInZip(ctx, in)
		source = "linkedin-export"
	default:
		return nil, fmt.Errorf("unexpected kind %q in parse processor", job.Kind)
	}
	if err != nil {
		return nil, err
	}

	e.progress(ctx, job.ID, 60)

	if title == "" {
		title = content.Name
	}
	if title == "" {
		title = "Imported resume"
	}

	resume := &domain.Resume{
		ID:      uuid.New().String(),
		UserID:  job.UserID,
		Title:   title,
		Content: *content,
		RawText: rawText,
		Source:  source,
	}
	if err := e.resumes.Create(ctx, resume); err != nil {
		return nil, fmt.Errorf("failed to save parsed resume: %w", err)
	}
	if err := e.jobs.SetResource(ctx, job.ID, resume.ID); err != nil {
		logger.CtxWarn(ctx, "Failed to link job to resume %s: %v", resume.ID, err)
	}

	e.progress(ctx, job.ID, 90)

	return &domain.ParseOutput{ResumeID: resume.ID, Resume: content}, nil
}

// processRender renders the resume to PDF and stores the artifact location on
// both the job result and the resume.
func (e *Executor) processRender(ctx context.Context, job *domain.JobRecord) (interface{}, error) {
	var in domain.RenderInput
	if err := json.Unmarshal([]byte(job.Input), &in); err != nil {
		return nil, fmt.Errorf("invalid render input: %w", err)
	}

	resume, err := e.resumes.GetByID(ctx, in.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume %s: %w", in.ResumeID, err)
	}

	e.progress(ctx, job.ID, 20)

	pdfBytes, err := e.renderer.Render(ctx, resume, in.Template)
	if err != nil {
		return nil, err
	}

	e.progress(ctx, job.ID, 70)

	key := fmt.Sprintf("renders/%s/%s.pdf", resume.ID, job.ID)
	if err := e.store.Upload(ctx, key, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store rendered pdf: %w", err)
	}
	url := e.store.GetURL(key)

	if err := e.resumes.SetArtifact(ctx, resume.ID, key, url); err != nil {
		return nil, fmt.Errorf("failed to record artifact on resume: %w", err)
	}

	// The resume points at the new artifact now; the old one is garbage.
	// Cleanup is best-effort, an orphaned object never fails the job.
	if old := resume.ArtifactKey; old != "" && old != key {
		if err := e.store.Delete(ctx, old); err != nil {
			logger.CtxWarn(ctx, "Failed to delete previous artifact %s: %v", old, err)
		}
	}

	e.progress(ctx, job.ID, 90)

	return &domain.RenderOutput{ArtifactKey: key, ArtifactURL: url}, nil
}

// processATS handles ats-score and ats-rewrite. A scorer outage is masked by
// a generated fallback report; the job still completes.
func (e *Executor) processATS(ctx context.Context, job *domain.JobRecord) (interface{}, error) {
	var in domain.ScoreInput
	if err := json.Unmarshal([]byte(job.Input), &in); err != nil {
		return nil, fmt.Errorf("invalid score input: %w", err)
	}

	resume, err := e.resumes.GetByID(ctx, in.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume %s: %w", in.ResumeID, err)
	}

	e.progress(ctx, job.ID, 25)

	rewrite := job.Kind == domain.JobKindATSRewrite
	report := e.scorer.ScoreResume(ctx, resume.RawText, in.JobDescription, rewrite)
	if report == nil {
		logger.CtxWarn(ctx, "Scorer unavailable, using generated fallback report")
		report = GeneratedATSReport(rewrite, resume.RawText)
	}

	e.progress(ctx, job.ID, 85)

	return report, nil
}

// processInterviewEvaluate evaluates all answer transcripts at once. The
// interview transitions to evaluated exactly when this job completes: the
// report write is the job's payload write and precedes completion.
func (e *Executor) processInterviewEvaluate(ctx context.Context, job *domain.JobRecord) (interface{}, error) {
	var in domain.EvaluateInput
	if err := json.Unmarshal([]byte(job.Input), &in); err != nil {
		return nil, fmt.Errorf("invalid evaluate input: %w", err)
	}
	ctx = logger.WithField(ctx, logger.FieldInterviewID, in.InterviewID)

	iv, err := e.interviews.GetByID(ctx, in.InterviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interview %s: %w", in.InterviewID, err)
	}

	answers, err := e.interviews.ListAnswers(ctx, iv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("interview %s has no answers to evaluate", iv.ID)
	}

	e.progress(ctx, job.ID, 20)

	report := e.scorer.EvaluateInterview(ctx, iv.Role, buildTranscript(answers))
	if report == nil {
		logger.CtxWarn(ctx, "Scorer unavailable, using generated fallback evaluation")
		report = GeneratedInterviewReport()
	}

	e.progress(ctx, job.ID, 70)

	encoded, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	if err := e.interviews.MarkEvaluated(ctx, iv.ID, string(encoded)); err != nil {
		return nil, fmt.Errorf("failed to mark interview evaluated: %w", err)
	}

	e.progress(ctx, job.ID, 90)

	return report, nil
}

// processJudgeEvaluate runs the same driver against a JudgeEvaluation record
// instead of a generic result blob.
func (e *Executor) processJudgeEvaluate(ctx context.Context, job *domain.JobRecord) (interface{}, error) {
	var in domain.JudgeInput
	if err := json.Unmarshal([]byte(job.Input), &in); err != nil {
		return nil, fmt.Errorf("invalid judge input: %w", err)
	}
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldInterviewID: in.InterviewID,
		logger.FieldJudgeID:     in.JudgeID,
	})

	eval, err := e.evals.GetByPair(ctx, in.InterviewID, in.JudgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load judge evaluation: %w", err)
	}
	if err := e.evals.MarkProcessing(ctx, eval.ID); err != nil {
		return nil, fmt.Errorf("failed to mark evaluation processing: %w", err)
	}

	iv, err := e.interviews.GetByID(ctx, in.InterviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interview %s: %w", in.InterviewID, err)
	}
	answers, err := e.interviews.ListAnswers(ctx, iv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	e.progress(ctx, job.ID, 30)

	role := eval.JudgeRole
	if role == "" {
		role = iv.Role
	}
	report := e.scorer.EvaluateInterview(ctx, role, buildTranscript(answers))
	if report == nil {
		logger.CtxWarn(ctx, "Scorer unavailable, using generated fallback evaluation")
		report = GeneratedInterviewReport()
	}

	e.progress(ctx, job.ID, 70)

	eval.Scores = domain.ScoreMap(report.Scores)
	eval.Strengths = domain.StringList(report.Strengths)
	eval.Improvements = domain.StringList(report.Improvements)
	eval.Summary = report.Summary
	eval.Recommendation = report.Recommendation
	if err := e.evals.Complete(ctx, eval); err != nil {
		return nil, fmt.Errorf("failed to complete judge evaluation: %w", err)
	}

	e.progress(ctx, job.ID, 90)

	return eval, nil
}

// buildTranscript flattens answers into one prompt-ready transcript.
func buildTranscript(answers []domain.InterviewAnswer) string {
	var b strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n\n", i+1, a.Question, i+1, a.Transcript)
	}
	return b.String()
}
