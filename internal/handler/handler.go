package handler

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/config"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/grouping"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/repository"
)

type Handler struct {
	validate          *validator.Validate
	config            *config.Config
	repository        *repository.Repository
	translator        ut.Translator
	mailPublisher     grouping.Publisher
	groupingPublisher grouping.Publisher
	redisClient       *redis.Client
	jobStore          *grouping.JobStore

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailPublisher, groupingPublisher grouping.Publisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:          validate,
		config:            cfg,
		repository:        repo,
		translator:        trans,
		mailPublisher:     mailPublisher,
		groupingPublisher: groupingPublisher,
		redisClient:       rdb,
		jobStore:          grouping.NewJobStore(rdb, time.Duration(cfg.Grouping.JobStatusExpiration)*time.Second),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleAdmin}))
			r.Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
			})
		})

		r.Route("/rosters", func(r chi.Router) {
			r.Post("/", h.CreateRoster)
			r.Get("/", h.GetAllRosters)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.roster)
				r.Use(h.rosterOwner)
				r.Get("/", h.GetRoster)
				r.Patch("/", h.UpdateRoster)
				r.Delete("/", h.DeleteRoster)
				r.Put("/students", h.UploadRosterStudents)
				r.Route("/grouping", func(r chi.Router) {
					r.Get("/", h.GetGroupingResult)
					r.Post("/generate", h.GenerateGrouping)
					r.Post("/jobs", h.EnqueueGroupingJob)
					r.Post("/sweep", h.SweepGrouping)
					r.Get("/fitness.png", h.GetFitnessPlot)
					r.Get("/scores.png", h.GetScoresPlot)
				})
			})
		})

		r.Get("/grouping-jobs/{jobID}", h.GetGroupingJob)
	})
}
