package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"UIForge/internal/biz"
	"UIForge/internal/model"
	pkgerrors "UIForge/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"
)

// terminalStatuses guards status updates: a record that reached one of these
// is immutable.
var terminalStatuses = []string{string(model.StatusSuccess), string(model.StatusFailed)}

// localCacheSize bounds the in-process cache of terminal jobs.
const localCacheSize = 1024

// Job is the GORM persistence model for generation jobs.
type Job struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	JobID         string    `gorm:"column:job_id;size:36;uniqueIndex;not null"`
	Owner         string    `gorm:"size:64;index:idx_owner_created"`
	Prompt        string    `gorm:"type:text;not null"`
	Status        string    `gorm:"size:16;not null"`
	GeneratedCode *string   `gorm:"type:mediumtext"`
	Explanation   *string   `gorm:"type:text"`
	ErrorMessage  *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"index:idx_owner_created"`
	UpdatedAt     time.Time
}

// TableName sets the table name for GORM.
func (Job) TableName() string {
	return "generations"
}

// JobRepo implements biz.JobRepo backed by MySQL with a two-level read cache:
// Redis for all jobs (short TTL, invalidated on every status write) and an
// in-process LRU holding only terminal jobs, which are immutable and therefore
// safe to cache forever.
type JobRepo struct {
	db     *gorm.DB
	cache  CacheClient
	local  *lru.Cache[string, *model.Job]
	logger *log.Helper
}

// NewJobRepo creates a new job repository.
func NewJobRepo(db *gorm.DB, d *Data, logger log.Logger) (*JobRepo, error) {
	local, err := lru.New[string, *model.Job](localCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create local job cache: %w", err)
	}
	return &JobRepo{
		db:     db,
		cache:  d.GetCache(),
		local:  local,
		logger: log.NewHelper(logger),
	}, nil
}

// Insert persists a new job record.
func (r *JobRepo) Insert(ctx context.Context, job *model.Job) error {
	po := fromModel(job)
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		if dbErr.Type == pkgerrors.ErrorTypeDuplicateKey {
			return fmt.Errorf("job %s already exists: %w", job.JobID, err)
		}
		return fmt.Errorf("failed to insert job: %w", dbErr)
	}
	return nil
}

// UpdateStatus applies a status transition to the job. The WHERE clause
// excludes terminal rows, so a late or duplicate write against a finished job
// matches nothing and is reported as a no-op rather than an error.
func (r *JobRepo) UpdateStatus(ctx context.Context, jobID string, upd biz.JobUpdate) error {
	fields := map[string]interface{}{
		"status":     string(upd.Status),
		"updated_at": time.Now().UTC(),
	}
	if upd.GeneratedCode != nil {
		fields["generated_code"] = *upd.GeneratedCode
	}
	if upd.Explanation != nil {
		fields["explanation"] = *upd.Explanation
	}
	if upd.ErrorMessage != nil {
		fields["error_message"] = *upd.ErrorMessage
	}

	result := r.db.WithContext(ctx).
		Model(&Job{}).
		Where("job_id = ? AND status NOT IN ?", jobID, terminalStatuses).
		Updates(fields)

	if result.Error != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, pkgerrors.ClassifyDBError(result.Error))
	}

	if result.RowsAffected == 0 {
		r.logger.Warnw("msg", "job status update matched no rows (unknown id or already terminal)",
			"job_id", jobID,
			"status", string(upd.Status))
	}

	// Invalidate the Redis entry so pollers never read a stale status.
	if err := r.cache.Delete(ctx, jobCacheKey(jobID)); err != nil {
		r.logger.Debugw("msg", "job cache invalidation failed", "job_id", jobID, "error", err.Error())
	}

	return nil
}

// FindByJobID returns the job or nil when it does not exist.
func (r *JobRepo) FindByJobID(ctx context.Context, jobID string) (*model.Job, error) {
	if job, ok := r.local.Get(jobID); ok {
		return job, nil
	}

	var cached model.Job
	if err := r.cache.Get(ctx, jobCacheKey(jobID), &cached); err == nil {
		r.cacheTerminal(&cached)
		return &cached, nil
	} else if !errors.Is(err, ErrCacheNotFound) {
		r.logger.Debugw("msg", "job cache read failed", "job_id", jobID, "error", err.Error())
	}

	var po Job
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find job %s: %w", jobID, pkgerrors.ClassifyDBError(err))
	}

	job := po.toModel()
	if err := r.cache.Set(ctx, jobCacheKey(jobID), job, TTLJob); err != nil {
		r.logger.Debugw("msg", "job cache write failed", "job_id", jobID, "error", err.Error())
	}
	r.cacheTerminal(job)

	return job, nil
}

// FindByOwner returns up to limit jobs for the owner, newest first.
func (r *JobRepo) FindByOwner(ctx context.Context, owner string, limit int) ([]*model.Job, error) {
	var pos []Job
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for %s: %w", owner, pkgerrors.ClassifyDBError(err))
	}

	jobs := make([]*model.Job, 0, len(pos))
	for i := range pos {
		jobs = append(jobs, pos[i].toModel())
	}
	return jobs, nil
}

// cacheTerminal stores immutable (terminal) jobs in the local LRU.
func (r *JobRepo) cacheTerminal(job *model.Job) {
	if job.Status.Terminal() {
		r.local.Add(job.JobID, job)
	}
}

// fromModel converts a domain job to its persistence form.
func fromModel(job *model.Job) *Job {
	po := &Job{
		JobID:     job.JobID,
		Owner:     job.Owner,
		Prompt:    job.Prompt,
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.GeneratedCode != "" {
		po.GeneratedCode = &job.GeneratedCode
	}
	if job.Explanation != "" {
		po.Explanation = &job.Explanation
	}
	if job.ErrorMessage != "" {
		po.ErrorMessage = &job.ErrorMessage
	}
	return po
}

// toModel converts a persistence row to the domain form.
func (po *Job) toModel() *model.Job {
	job := &model.Job{
		JobID:     po.JobID,
		Owner:     po.Owner,
		Prompt:    po.Prompt,
		Status:    model.JobStatus(po.Status),
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
	if po.GeneratedCode != nil {
		job.GeneratedCode = *po.GeneratedCode
	}
	if po.Explanation != nil {
		job.Explanation = *po.Explanation
	}
	if po.ErrorMessage != nil {
		job.ErrorMessage = *po.ErrorMessage
	}
	return job
}
