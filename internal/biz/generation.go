package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"UIForge/internal/conf"
	"UIForge/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// generationService is the breaker/limiter key for the external dependency.
const generationService = "llm"

// GenerationUsecase owns the job lifecycle: creation, background execution,
// state persistence and status queries. Submit returns a job identifier
// immediately; the generation call runs on its own goroutine, bounded by a
// semaphore, and writes exactly one terminal status per job.
type GenerationUsecase struct {
	repo    JobRepo
	client  GenerationClient
	breaker *CircuitBreaker
	limiter *SlidingWindowLimiter
	retry   *RetryPolicy

	sem    *semaphore.Weighted
	logger *log.Helper
}

// NewGenerationUsecase creates the job orchestrator.
func NewGenerationUsecase(
	c *conf.Resilience,
	repo JobRepo,
	client GenerationClient,
	breaker *CircuitBreaker,
	limiter *SlidingWindowLimiter,
	retry *RetryPolicy,
	logger log.Logger,
) *GenerationUsecase {
	maxJobs := int64(c.MaxConcurrentJobs)
	if maxJobs <= 0 {
		maxJobs = 8
	}
	return &GenerationUsecase{
		repo:    repo,
		client:  client,
		breaker: breaker,
		limiter: limiter,
		retry:   retry,
		sem:     semaphore.NewWeighted(maxJobs),
		logger:  log.NewHelper(logger),
	}
}

// Submit creates a pending job for the prompt and schedules its background
// execution. It returns the job identifier without waiting for completion,
// decoupling the caller from the latency and fault surface of the dependency.
func (uc *GenerationUsecase) Submit(ctx context.Context, owner, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrorInvalidPrompt("prompt must not be empty")
	}

	now := time.Now().UTC()
	job := &model.Job{
		JobID:     uuid.NewString(),
		Owner:     owner,
		Prompt:    prompt,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Insert(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job record: %w", err)
	}

	uc.logger.Infow("msg", "generation job created", "job_id", job.JobID, "owner", owner)

	// The caller has its answer once the record exists; the generation call
	// is detached from the request context on purpose.
	go uc.runJob(job.JobID, prompt)

	return job.JobID, nil
}

// runJob executes one job to its terminal status. Faults of any kind,
// including panics in the generation path, are converted into a failed record;
// nothing propagates out of the background goroutine because no caller is
// there to observe it.
func (uc *GenerationUsecase) runJob(jobID, prompt string) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			uc.logger.Errorw("msg", "panic during job execution", "job_id", jobID, "panic", fmt.Sprint(r))
			uc.markFailed(ctx, jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := uc.sem.Acquire(ctx, 1); err != nil {
		uc.markFailed(ctx, jobID, fmt.Sprintf("failed to schedule job: %v", err))
		return
	}
	defer uc.sem.Release(1)

	uc.markRunning(ctx, jobID)

	op := func(ctx context.Context) (*model.GenerationResult, error) {
		// Outbound quota guard before touching the dependency. Treated as a
		// transient fault so it participates in the backoff cycle.
		if !uc.limiter.CheckOutbound(generationService) {
			return nil, Transientf("outbound rate limit exceeded for %s", generationService)
		}
		return uc.client.Generate(ctx, jobID, prompt)
	}

	result, err := uc.retry.Do(ctx, op)
	if err != nil {
		uc.logger.Errorw("msg", "generation job failed", "job_id", jobID, "error", err.Error())
		uc.markFailed(ctx, jobID, err.Error())
		return
	}

	uc.markSuccess(ctx, jobID, result)
	uc.logger.Infow("msg", "generation job completed", "job_id", jobID)
}

// GetJob returns the job for the identifier.
func (uc *GenerationUsecase) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := uc.repo.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up job %s: %w", jobID, err)
	}
	if job == nil {
		return nil, ErrorJobNotFound(jobID)
	}
	return job, nil
}

// History returns up to limit jobs for the owner, newest first.
func (uc *GenerationUsecase) History(ctx context.Context, owner string, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	jobs, err := uc.repo.FindByOwner(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", owner, err)
	}
	return jobs, nil
}

// HealthSnapshot combines the breaker state with the dependency configuration
// flag for the health endpoint.
func (uc *GenerationUsecase) HealthSnapshot() model.DependencyHealth {
	return model.DependencyHealth{
		Service:          generationService,
		CircuitBreaker:   uc.breaker.Snapshot(),
		APIKeyConfigured: uc.client.Configured(),
	}
}

func (uc *GenerationUsecase) markRunning(ctx context.Context, jobID string) {
	if err := uc.repo.UpdateStatus(ctx, jobID, JobUpdate{Status: model.StatusRunning}); err != nil {
		uc.logger.Warnw("msg", "failed to mark job running", "job_id", jobID, "error", err.Error())
	}
}

func (uc *GenerationUsecase) markSuccess(ctx context.Context, jobID string, result *model.GenerationResult) {
	upd := JobUpdate{
		Status:        model.StatusSuccess,
		GeneratedCode: &result.Code,
		Explanation:   &result.Explanation,
	}
	if err := uc.repo.UpdateStatus(ctx, jobID, upd); err != nil {
		uc.logger.Errorw("msg", "failed to record job success", "job_id", jobID, "error", err.Error())
	}
}

func (uc *GenerationUsecase) markFailed(ctx context.Context, jobID, message string) {
	upd := JobUpdate{
		Status:       model.StatusFailed,
		ErrorMessage: &message,
	}
	if err := uc.repo.UpdateStatus(ctx, jobID, upd); err != nil {
		uc.logger.Errorw("msg", "failed to record job failure", "job_id", jobID, "error", err.Error())
	}
}
