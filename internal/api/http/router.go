package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authmw "github.com/mind-engage/mindengage-academy/internal/auth/middleware"
	"github.com/mind-engage/mindengage-academy/internal/learning"
	"github.com/mind-engage/mindengage-academy/internal/logger"
	"github.com/mind-engage/mindengage-academy/internal/rbac"
	"github.com/mind-engage/mindengage-academy/internal/storage"
)

type RouterConfig struct {
	Service         *learning.Service
	Auth            *authmw.AuthService
	Users           authmw.UserLookup
	Blobs           storage.BlobStore // optional; enables GET /assets/*
	Log             *logger.Logger
	CORSOrigins     []string
	RequestTimeout  time.Duration
	EnableLocalAuth bool
	Ready           func(context.Context) error // readiness check, e.g. a DB ping
	Now             func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := NewHandlers(cfg.Service, log, cfg.Now)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				log.Warn("not ready", "error", err)
				writeErr(w, http.StatusServiceUnavailable, "not ready")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", authmw.LoginHandler(cfg.Auth, cfg.Users, log))
	}

	// Protected API (JWT → stored user and role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(cfg.Auth))
		pr.Use(authmw.AttachUser(cfg.Users, log))

		pr.With(rbac.Require(rbac.PermCourseView)).Get("/courses", h.Dashboard)
		pr.Route("/courses/{courseSlug}", func(cr chi.Router) {
			cr.With(rbac.Require(rbac.PermCourseView)).Get("/", h.CourseDetail)
			cr.Route("/modules/{moduleSlug}", func(mr chi.Router) {
				mr.With(rbac.Require(rbac.PermCourseView)).Get("/", h.ModuleDetail)
				mr.With(rbac.Require(rbac.PermCourseView)).Get("/lessons/{lessonID}", h.LessonDetail)
				mr.With(rbac.Require(rbac.PermCourseView)).Get("/quiz", h.QuizForm)
				mr.With(rbac.Require(rbac.PermQuizSubmit)).Post("/quiz", h.SubmitQuiz)
				mr.With(rbac.Require(rbac.PermFinalTestSubmit)).Post("/final-test", h.SubmitFinalTest)
			})
		})
		pr.With(rbac.Require(rbac.PermLessonComplete)).Post("/lessons/{lessonID}/complete", h.CompleteLesson)

		// owner-or-manager is decided by the service
		pr.With(rbac.Require(rbac.PermCertificateView)).Get("/certificates/{certificateID}", h.Certificate)
		pr.With(rbac.Require(rbac.PermCertificateView)).Get("/certificates/{certificateID}/image", h.CertificateImage)

		pr.Route("/manager", func(mr chi.Router) {
			mr.With(rbac.Require(rbac.PermFinalTestReview)).Get("/final-tests", h.ListFinalTests)
			mr.With(rbac.Require(rbac.PermFinalTestReview)).Post("/final-tests/{submissionID}/review", h.ReviewFinalTest)
			mr.With(rbac.Require(rbac.PermProgressViewAll)).Get("/progress", h.ProgressMatrix)
			mr.With(rbac.Require(rbac.PermCertificateList)).Get("/certificates", h.ListCertificates)
			mr.With(rbac.Require(rbac.PermQuestionImport)).Post("/modules/{moduleID}/questions/import", h.ImportQuestions)
			mr.With(rbac.Require(rbac.PermCourseAssign)).Post("/assignments", h.AssignCourse)
		})

		if cfg.Blobs != nil {
			pr.With(rbac.Require(rbac.PermAssetView)).Get("/assets/*", AssetsDownload(cfg.Blobs, log))
		}
	})

	return r
}
