package grouping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
)

type fakeStore struct {
	roster    *domain.Roster
	user      *domain.User
	inserted  *domain.GroupingResult
	insertErr error
	rosterErr error
}

func (s *fakeStore) GetRosterByID(_ context.Context, id int64) (*domain.Roster, error) {
	if s.rosterErr != nil {
		return nil, s.rosterErr
	}
	if s.roster == nil || s.roster.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.roster, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *fakeStore) InsertGroupingResult(_ context.Context, result *domain.GroupingResult) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	result.ID = 42
	s.inserted = result
	return nil
}

type fakeJobs struct {
	jobs map[string]domain.GroupingJob
	// 记录每次保存时的状态
	statuses []domain.GroupingJobStatus
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]domain.GroupingJob)}
}

func (j *fakeJobs) Save(_ context.Context, job *domain.GroupingJob) error {
	j.jobs[job.ID] = *job
	j.statuses = append(j.statuses, job.Status)
	return nil
}

func (j *fakeJobs) Get(_ context.Context, id string) (*domain.GroupingJob, error) {
	job, ok := j.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

type fakePublisher struct {
	messages []domain.MailMessage
}

func (p *fakePublisher) Publish(_ context.Context, v any) error {
	msg, ok := v.(domain.MailMessage)
	if !ok {
		return errors.New("unexpected message type")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func newTestWorker(store *fakeStore) (*Worker, *fakeJobs, *fakePublisher) {
	jobs := newFakeJobs()
	mail := &fakePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(store, jobs, mail, 0, logger), jobs, mail
}

func TestWorkerHandleFinishesJob(t *testing.T) {
	store := &fakeStore{
		roster: newRoster(39),
		user:   &domain.User{ID: 5, FullName: "王老师", Email: "wang@example.com"},
	}
	w, jobs, mail := newTestWorker(store)

	job := NewJob(store.roster.ID, 5)
	require.NoError(t, jobs.Save(context.Background(), job))

	msg := domain.GroupingJobMessage{
		JobID:       job.ID,
		RosterID:    store.roster.ID,
		RequestedBy: 5,
		Parameters:  discreteParameters(3, "exact"),
	}
	require.NoError(t, w.Handle(context.Background(), msg))

	require.NotNil(t, store.inserted)
	saved := jobs.jobs[job.ID]
	assert.Equal(t, domain.GroupingJobFinished, saved.Status)
	assert.Equal(t, int64(42), saved.ResultID)
	require.NotNil(t, saved.BestFitness)
	assert.Equal(t, store.inserted.BestFitness, *saved.BestFitness)
	assert.Equal(t, []domain.GroupingJobStatus{
		domain.GroupingJobPending,
		domain.GroupingJobRunning,
		domain.GroupingJobFinished,
	}, jobs.statuses)

	require.Len(t, mail.messages, 1)
	assert.Equal(t, domain.MailTypeGroupingFinished, mail.messages[0].Type)
	assert.Equal(t, "wang@example.com", mail.messages[0].To)
	data, ok := mail.messages[0].Data.(domain.GroupingFinishedMailData)
	require.True(t, ok)
	assert.Equal(t, "期中考试", data.RosterName)
	assert.Len(t, data.Groups, 3)
}

func TestWorkerHandleRecordsInfeasibleConfiguration(t *testing.T) {
	store := &fakeStore{
		roster: newRoster(39),
		user:   &domain.User{ID: 5, Email: "wang@example.com"},
	}
	w, jobs, mail := newTestWorker(store)

	msg := domain.GroupingJobMessage{
		JobID:       "expired-job",
		RosterID:    store.roster.ID,
		RequestedBy: 5,
		Parameters:  discreteParameters(4, "exact"),
	}
	require.NoError(t, w.Handle(context.Background(), msg))

	assert.Nil(t, store.inserted)
	saved := jobs.jobs["expired-job"]
	assert.Equal(t, domain.GroupingJobFailed, saved.Status)
	assert.NotEmpty(t, saved.Error)
	assert.Equal(t, store.roster.ID, saved.RosterID)

	require.Len(t, mail.messages, 1)
	assert.Equal(t, domain.MailTypeGroupingFailed, mail.messages[0].Type)
}

func TestWorkerHandleMissingRoster(t *testing.T) {
	w, jobs, mail := newTestWorker(&fakeStore{})

	msg := domain.GroupingJobMessage{JobID: "job", RosterID: 9, RequestedBy: 5, Parameters: discreteParameters(3, "exact")}
	require.NoError(t, w.Handle(context.Background(), msg))

	assert.Equal(t, domain.GroupingJobFailed, jobs.jobs["job"].Status)
	// 发起人不存在时不发送邮件
	assert.Empty(t, mail.messages)
}

func TestWorkerHandleInsertFailure(t *testing.T) {
	store := &fakeStore{
		roster:    newRoster(39),
		user:      &domain.User{ID: 5, Email: "wang@example.com"},
		insertErr: errors.New("connection reset"),
	}
	w, jobs, _ := newTestWorker(store)

	msg := domain.GroupingJobMessage{JobID: "job", RosterID: store.roster.ID, RequestedBy: 5, Parameters: discreteParameters(3, "exact")}
	require.NoError(t, w.Handle(context.Background(), msg))

	assert.Equal(t, domain.GroupingJobFailed, jobs.jobs["job"].Status)
	assert.Equal(t, "无法保存分组结果", jobs.jobs["job"].Error)
}

func TestWorkerHandleCanceledJobReturnsToPending(t *testing.T) {
	store := &fakeStore{
		roster: newRoster(39),
		user:   &domain.User{ID: 5, Email: "wang@example.com"},
	}
	w, jobs, mail := newTestWorker(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := domain.GroupingJobMessage{JobID: "job", RosterID: store.roster.ID, RequestedBy: 5, Parameters: discreteParameters(3, "exact")}
	assert.ErrorIs(t, w.Handle(ctx, msg), context.Canceled)

	assert.Equal(t, domain.GroupingJobPending, jobs.jobs["job"].Status)
	assert.Nil(t, store.inserted)
	assert.Empty(t, mail.messages)
}

func TestWorkerHandleCanceledWhileLoadingRosterReturnsToPending(t *testing.T) {
	store := &fakeStore{
		roster:    newRoster(39),
		user:      &domain.User{ID: 5, Email: "wang@example.com"},
		rosterErr: fmt.Errorf("查询名单: %w", context.Canceled),
	}
	w, jobs, mail := newTestWorker(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := domain.GroupingJobMessage{JobID: "job", RosterID: store.roster.ID, RequestedBy: 5, Parameters: discreteParameters(3, "exact")}
	assert.ErrorIs(t, w.Handle(ctx, msg), context.Canceled)

	assert.Equal(t, []domain.GroupingJobStatus{
		domain.GroupingJobRunning,
		domain.GroupingJobPending,
	}, jobs.statuses)
	assert.Empty(t, jobs.jobs["job"].Error)
	assert.Empty(t, mail.messages)
}

func TestWorkerHandleCanceledWhileSavingResultReturnsToPending(t *testing.T) {
	store := &fakeStore{
		roster: newRoster(39),
		user:   &domain.User{ID: 5, Email: "wang@example.com"},
	}
	w, jobs, mail := newTestWorker(store)

	ctx, cancel := context.WithCancel(context.Background())
	store.insertErr = context.Canceled
	// 保存结果时进程恰好退出
	w.store = &cancelOnInsert{fakeStore: store, cancel: cancel}

	msg := domain.GroupingJobMessage{JobID: "job", RosterID: store.roster.ID, RequestedBy: 5, Parameters: discreteParameters(3, "exact")}
	assert.ErrorIs(t, w.Handle(ctx, msg), context.Canceled)

	assert.Equal(t, domain.GroupingJobPending, jobs.jobs["job"].Status)
	assert.Empty(t, mail.messages)
}

type cancelOnInsert struct {
	*fakeStore
	cancel context.CancelFunc
}

func (s *cancelOnInsert) InsertGroupingResult(ctx context.Context, result *domain.GroupingResult) error {
	s.cancel()
	return s.fakeStore.InsertGroupingResult(ctx, result)
}
