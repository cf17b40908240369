package grouping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
)

var ErrJobNotFound = errors.New("分组任务不存在或已过期")

// JobStore 在 redis 中保存异步分组任务的状态
type JobStore struct {
	rdb        *redis.Client
	expiration time.Duration
}

func NewJobStore(rdb *redis.Client, expiration time.Duration) *JobStore {
	return &JobStore{
		rdb:        rdb,
		expiration: expiration,
	}
}

func jobKey(id string) string {
	return fmt.Sprintf("grouping_job_%s", id)
}

// NewJob 创建一个待执行的任务
func NewJob(rosterID, requestedBy int64) *domain.GroupingJob {
	now := time.Now()
	return &domain.GroupingJob{
		ID:          uuid.NewString(),
		RosterID:    rosterID,
		RequestedBy: requestedBy,
		Status:      domain.GroupingJobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *JobStore) Save(ctx context.Context, job *domain.GroupingJob) error {
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return s.rdb.Set(ctx, jobKey(job.ID), data, s.expiration).Err()
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.GroupingJob, error) {
	data, err := s.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	job := &domain.GroupingJob{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, err
	}

	return job, nil
}
