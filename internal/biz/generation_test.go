package biz

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"UIForge/internal/conf"
	"UIForge/internal/model"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryJobRepo is an in-memory JobRepo with the same terminal-write guard as
// the real store, so the async orchestrator can be observed deterministically.
type memoryJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newMemoryJobRepo() *memoryJobRepo {
	return &memoryJobRepo{jobs: make(map[string]*model.Job)}
}

func (r *memoryJobRepo) Insert(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.JobID] = &copied
	return nil
}

func (r *memoryJobRepo) UpdateStatus(_ context.Context, jobID string, upd JobUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return nil
	}
	job.Status = upd.Status
	if upd.GeneratedCode != nil {
		job.GeneratedCode = *upd.GeneratedCode
	}
	if upd.Explanation != nil {
		job.Explanation = *upd.Explanation
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = *upd.ErrorMessage
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryJobRepo) FindByJobID(_ context.Context, jobID string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (r *memoryJobRepo) FindByOwner(_ context.Context, owner string, limit int) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, job := range r.jobs {
		if job.Owner == owner && len(out) < limit {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

// MockGenerationClient is a mock implementation of GenerationClient.
type MockGenerationClient struct {
	mock.Mock
}

func (m *MockGenerationClient) Generate(ctx context.Context, requestID, prompt string) (*model.GenerationResult, error) {
	args := m.Called(ctx, requestID, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GenerationResult), args.Error(1)
}

func (m *MockGenerationClient) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

func newTestUsecase(repo JobRepo, client GenerationClient) *GenerationUsecase {
	logger := log.NewStdLogger(os.Stdout)
	c := &conf.Resilience{
		FailureThreshold:    5,
		OpenTimeout:         time.Minute,
		InboundMaxRequests:  10,
		InboundWindow:       time.Minute,
		OutboundMaxRequests: 100, // keep the outbound guard out of the way unless a test wants it
		OutboundWindow:      time.Second,
		MaxAttempts:         3,
		BackoffMin:          time.Millisecond,
		BackoffMax:          2 * time.Millisecond,
		MaxConcurrentJobs:   4,
	}
	breaker := NewLLMCircuitBreaker(c, logger)
	limiter := NewSlidingWindowLimiter(c, logger)
	retry := NewRetryPolicy(c, breaker, logger)
	return NewGenerationUsecase(c, repo, client, breaker, limiter, retry, logger)
}

func waitForTerminal(t *testing.T, repo JobRepo, jobID string) *model.Job {
	t.Helper()
	var job *model.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = repo.FindByJobID(context.Background(), jobID)
		require.NoError(t, err)
		return job != nil && job.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestSubmit_RejectsEmptyPrompt(t *testing.T) {
	uc := newTestUsecase(newMemoryJobRepo(), new(MockGenerationClient))

	_, err := uc.Submit(context.Background(), "default_user", "   ")
	assert.Error(t, err)
	assert.Equal(t, int32(400), kerrors.FromError(err).Code)
}

func TestSubmit_JobVisiblePendingBeforeCompletion(t *testing.T) {
	repo := newMemoryJobRepo()
	client := new(MockGenerationClient)

	// Hold the generation call until the pending state has been observed.
	release := make(chan struct{})
	client.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&model.GenerationResult{Code: "code", Explanation: "why"}, nil)

	uc := newTestUsecase(repo, client)
	jobID, err := uc.Submit(context.Background(), "default_user", "a login form")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job, err := uc.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Contains(t, []model.JobStatus{model.StatusPending, model.StatusRunning}, job.Status)
	assert.Empty(t, job.GeneratedCode)

	close(release)
	done := waitForTerminal(t, repo, jobID)
	assert.Equal(t, model.StatusSuccess, done.Status)
}

func TestRunJob_SuccessWritesArtifact(t *testing.T) {
	repo := newMemoryJobRepo()
	client := new(MockGenerationClient)
	client.On("Generate", mock.Anything, mock.Anything, "a pricing table").
		Return(&model.GenerationResult{Code: "<Pricing />", Explanation: "generated"}, nil)

	uc := newTestUsecase(repo, client)
	jobID, err := uc.Submit(context.Background(), "default_user", "a pricing table")
	require.NoError(t, err)

	job := waitForTerminal(t, repo, jobID)
	assert.Equal(t, model.StatusSuccess, job.Status)
	assert.Equal(t, "<Pricing />", job.GeneratedCode)
	assert.Equal(t, "generated", job.Explanation)
	assert.Empty(t, job.ErrorMessage)
}

func TestRunJob_RetriesExhaustedWritesFailure(t *testing.T) {
	repo := newMemoryJobRepo()
	client := new(MockGenerationClient)
	client.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, Transientf("upstream timeout"))

	uc := newTestUsecase(repo, client)
	jobID, err := uc.Submit(context.Background(), "default_user", "a navbar")
	require.NoError(t, err)

	job := waitForTerminal(t, repo, jobID)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "all 3 attempts failed")
	assert.Empty(t, job.GeneratedCode)
	client.AssertNumberOfCalls(t, "Generate", 3)
}

func TestRunJob_FatalFaultWritesFailureWithoutRetry(t *testing.T) {
	repo := newMemoryJobRepo()
	client := new(MockGenerationClient)
	client.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, Fatalf("API key not configured"))

	uc := newTestUsecase(repo, client)
	jobID, err := uc.Submit(context.Background(), "default_user", "a card grid")
	require.NoError(t, err)

	job := waitForTerminal(t, repo, jobID)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "API key not configured")
	client.AssertNumberOfCalls(t, "Generate", 1)
}

func TestRunJob_BreakerOpenWritesDistinctFailure(t *testing.T) {
	repo := newMemoryJobRepo()
	client := new(MockGenerationClient)

	uc := newTestUsecase(repo, client)
	// Force the breaker open; the generation client must never be called.
	for i := 0; i < 5; i++ {
		uc.breaker.RecordFailure()
	}

	jobID, err := uc.Submit(context.Background(), "default_user", "a footer")
	require.NoError(t, err)

	job := waitForTerminal(t, repo, jobID)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "temporarily unavailable")
	client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunJob_PanicConvertedToFailure(t *testing.T) {
	repo := newMemoryJobRepo()
	client := new(MockGenerationClient)
	client.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("exploded") }).
		Return(nil, nil)

	uc := newTestUsecase(repo, client)
	jobID, err := uc.Submit(context.Background(), "default_user", "a hero section")
	require.NoError(t, err)

	job := waitForTerminal(t, repo, jobID)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "internal error")
}

func TestGetJob_UnknownID(t *testing.T) {
	uc := newTestUsecase(newMemoryJobRepo(), new(MockGenerationClient))

	_, err := uc.GetJob(context.Background(), "no-such-job")
	assert.Error(t, err)
	assert.Equal(t, int32(404), kerrors.FromError(err).Code)
}

func TestHealthSnapshot(t *testing.T) {
	client := new(MockGenerationClient)
	client.On("Configured").Return(true)

	uc := newTestUsecase(newMemoryJobRepo(), client)
	health := uc.HealthSnapshot()

	assert.Equal(t, "llm", health.Service)
	assert.True(t, health.APIKeyConfigured)
	assert.Equal(t, model.BreakerClosed, health.CircuitBreaker.State)
	assert.Equal(t, 5, health.CircuitBreaker.FailureThreshold)
}
