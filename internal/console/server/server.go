package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/console/handler"
	"github.com/soubhik-sen/FLUXPORT/internal/infra"
	"github.com/soubhik-sen/FLUXPORT/internal/infra/auth"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Проверка RS256 токенов операторов
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler   *handler.AuthHandler      // /auth/token
	policyHandler *handler.PolicyHandler    // /v1/policy-types
	dashHandler   *handler.DashboardHandler // /api/v1/dashboard
	auditHandler  *handler.AuditHandler     // /v1/audit
}

// NewConsoleServer инициализирует сервер админки со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	policyH *handler.PolicyHandler,
	dashH *handler.DashboardHandler,
	auditH *handler.AuditHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		cfg:           cfg,
		authValidator: validator,
		authHandler:   authH,
		policyHandler: policyH,
		dashHandler:   dashH,
		auditHandler:  auditH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Dashboard & Stats
		r.Get("/api/v1/dashboard/stats", s.dashHandler.GetStats)

		// Версионированное хранилище политик
		r.Route("/v1/policy-types", func(r chi.Router) {
			r.Get("/", s.policyHandler.ListTypes)
			r.Post("/", s.policyHandler.RegisterType)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", s.policyHandler.GetType)
				r.Get("/draft", s.policyHandler.GetDraft)
				r.Put("/draft", s.policyHandler.SaveDraft) // Валидация + upsert черновика
				r.Get("/published", s.policyHandler.GetPublished)
				r.Get("/versions", s.policyHandler.ListVersions)
				r.Get("/versions/{no}", s.policyHandler.GetVersion)

				// Публикация требует отдельного права оператора
				r.With(auth.RequireGrant("policy.publish")).
					Post("/publish", s.policyHandler.Publish)
			})
		})

		// Runtime kill switch движка решений
		r.Route("/v1/engine", func(r chi.Router) {
			r.Use(auth.RequireGrant("policy.publish"))
			r.Post("/disable", s.policyHandler.DisableEngine)
			r.Post("/enable", s.policyHandler.EnableEngine)
		})

		// Аудит и Логи (Observability)
		r.With(auth.RequireGrant("audit.read")).
			Get("/v1/audit", s.auditHandler.GetEntries)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
