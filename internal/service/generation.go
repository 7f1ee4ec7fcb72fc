package service

import (
	"context"
	"time"

	"UIForge/internal/biz"
	"UIForge/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// defaultOwner attributes jobs when no authentication layer is present.
const defaultOwner = "default_user"

// GenerationService exposes the generation job API over HTTP.
type GenerationService struct {
	uc     *biz.GenerationUsecase
	logger *log.Helper
}

// NewGenerationService creates a new GenerationService instance.
func NewGenerationService(uc *biz.GenerationUsecase, logger log.Logger) *GenerationService {
	return &GenerationService{
		uc:     uc,
		logger: log.NewHelper(logger),
	}
}

// GenerateRequest is the payload for POST /api/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateReply acknowledges an accepted generation job.
type GenerateReply struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobReply is the full view of a job, terminal fields included only when set.
type JobReply struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Prompt        string `json:"prompt"`
	GeneratedCode string `json:"generated_code,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// HistoryReply lists the caller's most recent jobs, newest first.
type HistoryReply struct {
	Jobs  []*JobReply `json:"jobs"`
	Count int         `json:"count"`
}

// BreakerReply describes a circuit breaker for the health endpoint.
type BreakerReply struct {
	Name             string `json:"name"`
	State            string `json:"state"`
	FailureCount     int    `json:"failure_count"`
	FailureThreshold int    `json:"failure_threshold"`
	LastFailureTime  string `json:"last_failure_time,omitempty"`
	TimeoutSeconds   int64  `json:"timeout_seconds"`
}

// DependencyReply describes the generation dependency for the health endpoint.
type DependencyReply struct {
	CircuitBreaker   BreakerReply `json:"circuit_breaker"`
	APIKeyConfigured bool         `json:"api_key_configured"`
}

// HealthReply is the payload for GET /api/health.
type HealthReply struct {
	Status   string                     `json:"status"`
	Services map[string]DependencyReply `json:"services"`
}

// Generate accepts a prompt and returns the identifier of the queued job.
func (s *GenerationService) Generate(ctx context.Context, req *GenerateRequest) (*GenerateReply, error) {
	s.logger.Infow("msg", "Generate called", "prompt_len", len(req.Prompt))

	jobID, err := s.uc.Submit(ctx, defaultOwner, req.Prompt)
	if err != nil {
		s.logger.Errorw("msg", "failed to submit generation job", "error", err)
		return nil, err
	}

	return &GenerateReply{
		JobID:   jobID,
		Status:  string(model.StatusPending),
		Message: "Generation job accepted",
	}, nil
}

// GetJob returns the current state of a job.
func (s *GenerationService) GetJob(ctx context.Context, jobID string) (*JobReply, error) {
	s.logger.Debugw("msg", "GetJob called", "job_id", jobID)

	job, err := s.uc.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return toJobReply(job), nil
}

// History returns the caller's most recent jobs.
func (s *GenerationService) History(ctx context.Context, limit int) (*HistoryReply, error) {
	s.logger.Debugw("msg", "History called", "limit", limit)

	jobs, err := s.uc.History(ctx, defaultOwner, limit)
	if err != nil {
		s.logger.Errorw("msg", "failed to load history", "error", err)
		return nil, err
	}

	replies := make([]*JobReply, len(jobs))
	for i, job := range jobs {
		replies[i] = toJobReply(job)
	}
	return &HistoryReply{Jobs: replies, Count: len(replies)}, nil
}

// Health reports service liveness plus dependency state. It never fails:
// a degraded dependency is reported, not propagated.
func (s *GenerationService) Health(_ context.Context) (*HealthReply, error) {
	dep := s.uc.HealthSnapshot()

	breaker := BreakerReply{
		Name:             dep.CircuitBreaker.Name,
		State:            string(dep.CircuitBreaker.State),
		FailureCount:     dep.CircuitBreaker.FailureCount,
		FailureThreshold: dep.CircuitBreaker.FailureThreshold,
		TimeoutSeconds:   int64(dep.CircuitBreaker.OpenTimeout / time.Second),
	}
	if dep.CircuitBreaker.LastFailureTime != nil {
		breaker.LastFailureTime = dep.CircuitBreaker.LastFailureTime.UTC().Format(time.RFC3339)
	}

	return &HealthReply{
		Status: "ok",
		Services: map[string]DependencyReply{
			dep.Service: {
				CircuitBreaker:   breaker,
				APIKeyConfigured: dep.APIKeyConfigured,
			},
		},
	}, nil
}

func toJobReply(job *model.Job) *JobReply {
	return &JobReply{
		JobID:         job.JobID,
		Status:        string(job.Status),
		Prompt:        job.Prompt,
		GeneratedCode: job.GeneratedCode,
		Explanation:   job.Explanation,
		ErrorMessage:  job.ErrorMessage,
		CreatedAt:     job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
