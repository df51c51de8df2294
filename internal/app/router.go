package app

import (
	"database/sql"
	"net/http"
	"time"

	"mobiq/internal/app/observability"
	"mobiq/internal/assignment"
	"mobiq/internal/auth"
	"mobiq/internal/catalog"
	"mobiq/internal/home"
	"mobiq/internal/masterdata"
	"mobiq/internal/message"
	"mobiq/internal/questionnaire"
	"mobiq/internal/request"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

func NewRouter(cfg Config, db *sql.DB, rdb *redis.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(CSRFMiddleware(cfg.CSRFEnforced))

	mailer := auth.NewSMTPMailer(auth.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	})

	authSvc := auth.NewService(db, auth.ServiceConfig{Mailer: mailer})
	authHandler := auth.NewHandler(authSvc)

	catalogSvc := catalog.NewService(db)
	catalogCache := catalog.NewCache(catalogSvc, rdb, time.Duration(cfg.CatalogCacheTTLMinutes)*time.Minute)
	catalogHandler := catalog.NewHandler(catalogCache)

	expander := questionnaire.NewExpander(catalogCache)
	sessions := questionnaire.NewManager(expander, time.Duration(cfg.SessionIdleTTLHours)*time.Hour)
	sessionHandler := questionnaire.NewHandler(sessions)

	requestSvc := request.NewService(db, sessions, time.Duration(cfg.RequestOpenTTLDays)*24*time.Hour)
	requestHandler := request.NewHandler(requestSvc)

	homeHandler := home.NewHandler(home.NewService(db))
	assignmentHandler := assignment.NewHandler(assignment.NewService(db))
	messageHandler := message.NewHandler(message.NewService(db))
	masterdataHandler := masterdata.NewHandler(masterdata.NewService(db, catalogCache), catalogCache)

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			pub.Use(RateLimitMiddleware(authLimiter))
			pub.Post("/auth/register", authHandler.Register)
			pub.Post("/auth/login", authHandler.Login)
			pub.Post("/auth/verify/request", authHandler.RequestVerification)
			pub.Post("/auth/verify", authHandler.VerifyEmail)
		})

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/logout", authHandler.Logout)

			secure.Get("/catalog/categories", catalogHandler.ListCategories)
			secure.Get("/catalog/categories/{id}/questions", catalogHandler.ListQuestions)

			secure.Route("/questionnaire/sessions", func(q chi.Router) {
				q.Post("/", sessionHandler.Start)
				q.Get("/{id}", sessionHandler.View)
				q.Put("/{id}/answer", sessionHandler.SubmitAnswer)
				q.Post("/{id}/addon", sessionHandler.ToggleAddon)
				q.Post("/{id}/advance", sessionHandler.Advance)
				q.Post("/{id}/retreat", sessionHandler.Retreat)
				q.Post("/{id}/rebuild", sessionHandler.Rebuild)
				q.Delete("/{id}", sessionHandler.Discard)
			})

			secure.Route("/homes", func(h chi.Router) {
				h.Post("/", homeHandler.Create)
				h.Get("/", homeHandler.List)
				h.Get("/{id}", homeHandler.Get)
				h.Put("/{id}", homeHandler.Update)
				h.Delete("/{id}", homeHandler.Delete)
			})

			secure.Route("/requests", func(rq chi.Router) {
				rq.Post("/", requestHandler.Create)
				rq.Get("/", requestHandler.List)
				rq.Get("/{id}", requestHandler.Get)
				rq.Post("/{id}/publish", requestHandler.Publish)
				rq.Put("/{id}/status", requestHandler.UpdateStatus)
				rq.Get("/{id}/assignments", assignmentHandler.ListByRequest)
			})

			secure.Get("/assignments", assignmentHandler.ListMine)
			secure.Post("/assignments/{id}/accept", assignmentHandler.Accept)
			secure.Post("/assignments/{id}/decline", assignmentHandler.Decline)

			secure.Route("/threads", func(t chi.Router) {
				t.Get("/", messageHandler.ListThreads)
				t.Get("/{id}/messages", messageHandler.ListMessages)
				t.Post("/{id}/messages", messageHandler.Post)
				t.Post("/{id}/seen", messageHandler.MarkSeen)
			})

			secure.Group(func(admin chi.Router) {
				admin.Use(authHandler.RequireRoles(auth.RoleAdmin))
				admin.Post("/admin/catalog/import", masterdataHandler.ImportCatalog)
				admin.Get("/admin/catalog/export", masterdataHandler.ExportCatalog)
			})
		})
	})

	return r
}
