package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/avery/hireflow/internal/api/handlers"
	"github.com/avery/hireflow/internal/api/middleware"
	"github.com/avery/hireflow/internal/application"
	"github.com/avery/hireflow/internal/auth"
	"github.com/avery/hireflow/internal/database/models"
	"github.com/avery/hireflow/internal/invitation"
	"github.com/avery/hireflow/internal/job"
	"github.com/avery/hireflow/internal/membership"
	"github.com/avery/hireflow/internal/pipeline"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Memberships    *membership.Service
	Invitations    *invitation.Service
	Pipelines      *pipeline.Service
	Jobs           *job.Service
	Applications   *application.Service
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	memberHandler := handlers.NewMemberHandler(cfg.DB, cfg.Memberships)
	invitationHandler := handlers.NewInvitationHandler(cfg.Invitations)
	jobHandler := handlers.NewJobHandler(cfg.Jobs, cfg.Pipelines)
	applicationHandler := handlers.NewApplicationHandler(cfg.Applications, cfg.Jobs, cfg.Memberships)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Public candidate-facing endpoints: postings are addressed by slug and
	// invitation tokens are their own credential.
	r.Get("/postings/{slug}", jobHandler.GetBySlug)
	r.Post("/postings/{slug}/apply", applicationHandler.Submit)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// Public invitation endpoints
		r.Get("/invitations/check", invitationHandler.Check)
		r.Post("/invitations/accept", invitationHandler.Accept)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			if cfg.RateLimitReqs > 0 {
				r.Use(middleware.RateLimitByUser(cfg.RateLimitReqs, cfg.RateLimitSecs))
			}

			r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
				userID := middleware.GetUserID(r.Context())
				user, err := cfg.AuthService.GetUserByID(r.Context(), userID)
				if err != nil {
					http.Error(w, "User not found", http.StatusNotFound)
					return
				}
				writeJSON(w, http.StatusOK, user)
			})

			// Everything below requires an active membership.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCompany)

				// Team management: admins and HR only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleHR))

					r.Post("/invitations", invitationHandler.Invite)

					r.Route("/members", func(r chi.Router) {
						r.Get("/", memberHandler.List)
						r.Put("/{id}/role", memberHandler.ChangeRole)
						r.Post("/{id}/suspend", memberHandler.Suspend)
						r.Post("/{id}/unsuspend", memberHandler.Unsuspend)
						r.Delete("/{id}", memberHandler.Remove)
					})

					r.Post("/jobs", jobHandler.Create)
					r.Put("/jobs/{id}", jobHandler.Update)
					r.Post("/jobs/{id}/close", jobHandler.Close)
					r.Put("/jobs/{id}/stages", jobHandler.ReplaceStages)

					r.Route("/pipelines", func(r chi.Router) {
						r.Get("/", jobHandler.ListPipelines)
						r.Get("/{name}", jobHandler.PipelineStages)
					})
				})

				// Reading jobs and working applications: any active member
				r.Get("/jobs", jobHandler.List)
				r.Get("/jobs/{id}", jobHandler.Get)
				r.Get("/jobs/{id}/applications", applicationHandler.ListForJob)

				r.Route("/applications", func(r chi.Router) {
					r.Get("/{id}", applicationHandler.Get)
					r.Post("/{id}/move", applicationHandler.MoveStage)
					r.Post("/{id}/reject", applicationHandler.Reject)
					r.Put("/{id}/assign", applicationHandler.Assign)
					r.Post("/{id}/notes", applicationHandler.AddNote)
					r.Get("/{id}/activity", applicationHandler.ListActivity)
				})
			})
		})
	})

	return &Router{r}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
