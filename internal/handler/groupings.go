package handler

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/grouping"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/partitioner"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/report"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/utils"
)

func (h *Handler) checkGroupingParameters(params *domain.GroupingParameters, roster *domain.Roster) error {
	if err := h.validate.Struct(params); err != nil {
		return err
	}

	if err := utils.ValidateGroupingLimits(params, h.config.Grouping.MaxPopulationSize, h.config.Grouping.MaxGenerations); err != nil {
		return err
	}

	// 提前检查名单人数与分组参数是否可行，避免无效任务进入队列
	return grouping.ToPartitionerParameters(*params, 0).Validate(len(roster.Students))
}

// groupingError 把算法错误转换为用户可读的提示
func (h *Handler) groupingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, partitioner.ErrInfeasibleConfiguration):
		h.errorResponse(w, r, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.errorResponse(w, r, "分组计算超时，请减少迭代代数或改用异步任务")
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) GenerateGrouping(w http.ResponseWriter, r *http.Request) {
	var params domain.GroupingParameters
	if err := h.readJSON(r, &params); err != nil {
		h.badRequest(w, r, err)
		return
	}

	roster := r.Context().Value(RosterCtx).(*domain.Roster)
	if err := h.checkGroupingParameters(&params, roster); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := grouping.Run(r.Context(), roster, params, h.config.Grouping.LogEvery)
	if err != nil {
		h.groupingError(w, r, err)
		return
	}

	if err := h.repository.InsertGroupingResult(r.Context(), result); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "分组成功", result)
}

func (h *Handler) EnqueueGroupingJob(w http.ResponseWriter, r *http.Request) {
	var params domain.GroupingParameters
	if err := h.readJSON(r, &params); err != nil {
		h.badRequest(w, r, err)
		return
	}

	roster := r.Context().Value(RosterCtx).(*domain.Roster)
	if err := h.checkGroupingParameters(&params, roster); err != nil {
		h.badRequest(w, r, err)
		return
	}

	me := r.Context().Value(MyInfoCtx).(*domain.User)
	job := grouping.NewJob(roster.ID, me.ID)
	if err := h.jobStore.Save(r.Context(), job); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	msg := domain.GroupingJobMessage{
		JobID:       job.ID,
		RosterID:    roster.ID,
		RequestedBy: me.ID,
		Parameters:  params,
	}
	if err := h.groupingPublisher.Publish(r.Context(), msg); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "分组任务已提交", job)
}

func (h *Handler) GetGroupingJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobStore.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		switch {
		case errors.Is(err, grouping.ErrJobNotFound):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	me := r.Context().Value(MyInfoCtx).(*domain.User)
	if !canAccess(me, job.RequestedBy) {
		h.errorResponse(w, r, grouping.ErrJobNotFound.Error())
		return
	}

	h.successResponse(w, r, "获取分组任务成功", job)
}

func (h *Handler) getGroupingResult(w http.ResponseWriter, r *http.Request) (*domain.GroupingResult, bool) {
	roster := r.Context().Value(RosterCtx).(*domain.Roster)

	result, err := h.repository.GetGroupingResultByRosterID(r.Context(), roster.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "该名单尚未分组")
		default:
			h.internalServerError(w, r, err)
		}
		return nil, false
	}

	return result, true
}

func (h *Handler) GetGroupingResult(w http.ResponseWriter, r *http.Request) {
	result, ok := h.getGroupingResult(w, r)
	if !ok {
		return
	}

	h.successResponse(w, r, "获取分组结果成功", result)
}

func (h *Handler) GetFitnessPlot(w http.ResponseWriter, r *http.Request) {
	result, ok := h.getGroupingResult(w, r)
	if !ok {
		return
	}

	h.writePNG(w, r, func(buf *bytes.Buffer) error {
		return report.FitnessPlot(buf, result.FitnessHistory)
	})
}

func (h *Handler) GetScoresPlot(w http.ResponseWriter, r *http.Request) {
	result, ok := h.getGroupingResult(w, r)
	if !ok {
		return
	}

	roster := r.Context().Value(RosterCtx).(*domain.Roster)
	h.writePNG(w, r, func(buf *bytes.Buffer) error {
		return report.ScoresPlot(buf, grouping.ScoreGroups(roster, result.Groups))
	})
}

// SweepGrouping 用同一组参数比较不同的变异强度，结果不保存
func (h *Handler) SweepGrouping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parameters domain.GroupingParameters `json:"parameters"`
		Sigmas     []float64                 `json:"sigmas" validate:"required,min=1,dive,min=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if len(req.Sigmas) > h.config.Grouping.MaxSweepSize {
		h.errorResponse(w, r, "变异强度数量过多")
		return
	}
	if req.Parameters.Encoding != string(partitioner.EncodingContinuous) {
		h.errorResponse(w, r, "只有连续编码支持变异强度对比")
		return
	}

	roster := r.Context().Value(RosterCtx).(*domain.Roster)
	if err := h.checkGroupingParameters(&req.Parameters, roster); err != nil {
		h.badRequest(w, r, err)
		return
	}

	entries, err := grouping.Sweep(r.Context(), roster, req.Parameters, req.Sigmas, h.config.Grouping.LogEvery)
	if err != nil {
		h.groupingError(w, r, err)
		return
	}

	h.successResponse(w, r, "变异强度对比完成", entries)
}
