package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/utils"
)

type studentRequest struct {
	StudentNumber string  `json:"studentNumber" validate:"required"`
	FullName      string  `json:"fullName" validate:"required"`
	Score         float64 `json:"score"`
}

func (h *Handler) handleRosterConstraintError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		switch pgErr.ConstraintName {
		case "rosters_owner_id_name_key":
			h.errorResponse(w, r, "名单名称已存在")
		case "roster_students_roster_id_student_number_key":
			h.errorResponse(w, r, "名单中存在重复的学号")
		default:
			h.internalServerError(w, r, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		h.errorResponse(w, r, "名单已被修改，请重试")
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) CreateRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string           `json:"name" validate:"required"`
		Description string           `json:"description"`
		Students    []studentRequest `json:"students" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	me := r.Context().Value(MyInfoCtx).(*domain.User)

	roster := &domain.Roster{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     me.ID,
		Students:    make([]domain.Student, len(req.Students)),
	}
	for i, s := range req.Students {
		roster.Students[i] = domain.Student{
			StudentNumber: s.StudentNumber,
			FullName:      s.FullName,
			Score:         s.Score,
			Position:      i,
		}
	}

	if err := utils.ValidateStudents(roster.Students, h.config.Grouping.MaxStudents); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateRoster(r.Context(), roster); err != nil {
		h.handleRosterConstraintError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建名单成功", roster)
}

func (h *Handler) GetAllRosters(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MyInfoCtx).(*domain.User)

	// 管理员可以看到所有名单
	ownerID := me.ID
	if me.Role == domain.RoleAdmin {
		ownerID = 0
	}

	rosters, err := h.repository.GetAllRosters(r.Context(), ownerID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取名单列表成功", rosters)
}

func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	roster := r.Context().Value(RosterCtx).(*domain.Roster)
	h.successResponse(w, r, "获取名单成功", roster)
}

func (h *Handler) UpdateRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name" validate:"omitempty,min=1"`
		Description *string `json:"description"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	roster := r.Context().Value(RosterCtx).(*domain.Roster)

	if req.Name != nil {
		roster.Name = *req.Name
	}
	if req.Description != nil {
		roster.Description = *req.Description
	}

	if err := h.repository.UpdateRoster(r.Context(), roster); err != nil {
		h.handleRosterConstraintError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新名单成功", roster)
}

func (h *Handler) DeleteRoster(w http.ResponseWriter, r *http.Request) {
	roster := r.Context().Value(RosterCtx).(*domain.Roster)

	if err := h.repository.DeleteRoster(r.Context(), roster.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除名单成功", nil)
}

// UploadRosterStudents 用上传的 CSV 文件替换名单中的学生
func (h *Handler) UploadRosterStudents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(h.config.Server.MaxUploadSize); err != nil {
		h.errorResponse(w, r, "文件过大或格式错误")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.errorResponse(w, r, "请上传 CSV 文件")
		return
	}
	defer file.Close()

	students, err := utils.ParseStudentsCSV(file)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := utils.ValidateStudents(students, h.config.Grouping.MaxStudents); err != nil {
		h.badRequest(w, r, err)
		return
	}

	roster := r.Context().Value(RosterCtx).(*domain.Roster)
	roster.Students = students

	if err := h.repository.ReplaceRosterStudents(r.Context(), roster); err != nil {
		h.handleRosterConstraintError(w, r, err)
		return
	}

	h.successResponse(w, r, "上传名单成功", roster)
}
