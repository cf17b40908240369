package grouping

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
)

// Store 是 worker 需要的持久化操作，由 repository.Repository 实现
type Store interface {
	GetRosterByID(ctx context.Context, id int64) (*domain.Roster, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	InsertGroupingResult(ctx context.Context, result *domain.GroupingResult) error
}

type JobStatusStore interface {
	Save(ctx context.Context, job *domain.GroupingJob) error
	Get(ctx context.Context, id string) (*domain.GroupingJob, error)
}

type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// Worker 执行分组队列中的任务，并通过邮件通知发起人
type Worker struct {
	store    Store
	jobs     JobStatusStore
	mail     Publisher
	logEvery int
	logger   *slog.Logger
}

func NewWorker(store Store, jobs JobStatusStore, mail Publisher, logEvery int, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		jobs:     jobs,
		mail:     mail,
		logEvery: logEvery,
		logger:   logger,
	}
}

// Handle 处理一条任务消息
// 分组本身的失败记录在任务状态中并返回 nil，任务状态无法保存或 ctx 被取消时返回错误
func (w *Worker) Handle(ctx context.Context, msg domain.GroupingJobMessage) error {
	logger := w.logger.With(slog.String("job_id", msg.JobID), slog.Int64("roster_id", msg.RosterID))

	job, err := w.jobs.Get(ctx, msg.JobID)
	if err != nil {
		if !errors.Is(err, ErrJobNotFound) {
			return err
		}
		// 状态已过期时按消息内容重建
		job = NewJob(msg.RosterID, msg.RequestedBy)
		job.ID = msg.JobID
	}

	job.Status = domain.GroupingJobRunning
	if err := w.jobs.Save(ctx, job); err != nil {
		return err
	}

	roster, err := w.store.GetRosterByID(ctx, msg.RosterID)
	if err != nil && ctx.Err() != nil {
		return w.requeue(ctx, job)
	}
	if err != nil {
		logger.Error("无法获取名单", slog.String("error", err.Error()))
		return w.fail(ctx, job, nil, "无法获取名单")
	}

	result, err := Run(ctx, roster, msg.Parameters, w.logEvery)
	if err != nil && ctx.Err() != nil {
		return w.requeue(ctx, job)
	}
	if err != nil {
		logger.Error("分组失败", slog.String("error", err.Error()))
		return w.fail(ctx, job, roster, err.Error())
	}

	if err := w.store.InsertGroupingResult(ctx, result); err != nil {
		if ctx.Err() != nil {
			return w.requeue(ctx, job)
		}
		logger.Error("无法保存分组结果", slog.String("error", err.Error()))
		return w.fail(ctx, job, roster, "无法保存分组结果")
	}

	job.Status = domain.GroupingJobFinished
	job.ResultID = result.ID
	job.BestFitness = &result.BestFitness
	if err := w.jobs.Save(ctx, job); err != nil {
		return err
	}

	logger.Info("分组完成", slog.Float64("best_fitness", result.BestFitness))

	groups := make([]domain.GroupingMailGroup, len(result.Groups))
	for i, g := range result.Groups {
		groups[i] = domain.GroupingMailGroup{
			Label:    g.Label,
			Size:     g.Size,
			Mean:     g.Mean,
			Variance: g.Variance,
		}
	}
	w.notify(ctx, logger, job.RequestedBy, domain.MailTypeGroupingFinished, func(user *domain.User) any {
		return domain.GroupingFinishedMailData{
			FullName:    user.FullName,
			RosterName:  roster.Name,
			JobID:       job.ID,
			BestFitness: result.BestFitness,
			Groups:      groups,
		}
	})

	return nil
}

// requeue 在进程退出导致中断时使用，任务回到等待状态，返回的错误使消息重新入队
func (w *Worker) requeue(ctx context.Context, job *domain.GroupingJob) error {
	job.Status = domain.GroupingJobPending
	if err := w.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		return err
	}
	return ctx.Err()
}

func (w *Worker) fail(ctx context.Context, job *domain.GroupingJob, roster *domain.Roster, reason string) error {
	job.Status = domain.GroupingJobFailed
	job.Error = reason
	if err := w.jobs.Save(ctx, job); err != nil {
		return err
	}

	rosterName := ""
	if roster != nil {
		rosterName = roster.Name
	}

	logger := w.logger.With(slog.String("job_id", job.ID))
	w.notify(ctx, logger, job.RequestedBy, domain.MailTypeGroupingFailed, func(user *domain.User) any {
		return domain.GroupingFailedMailData{
			FullName:   user.FullName,
			RosterName: rosterName,
			JobID:      job.ID,
			Reason:     reason,
		}
	})

	return nil
}

// 邮件通知失败不影响任务结果
func (w *Worker) notify(ctx context.Context, logger *slog.Logger, userID int64, mailType string, data func(*domain.User) any) {
	user, err := w.store.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("无法获取任务发起人", slog.String("error", err.Error()))
		return
	}

	message := domain.MailMessage{
		Type: mailType,
		To:   user.Email,
		Data: data(user),
	}
	if err := w.mail.Publish(ctx, message); err != nil {
		logger.Error("无法发送通知邮件", slog.String("error", err.Error()))
	}
}
