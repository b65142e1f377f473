package httpapi

import (
	"net/http"
	"time"

	"siaf-backend/internal/codes"
	"siaf-backend/internal/config"
	"siaf-backend/internal/models"
	"siaf-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	DB       *sqlx.DB
	Config   config.Config
	Tokens   services.TokenService
	Events   *services.EventHub
	Codes    *codes.Generator
	Validate *validator.Validate
}

func NewServer(db *sqlx.DB, cfg config.Config, hub *services.EventHub) *Server {
	tokens := services.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  time.Duration(cfg.AccessTTLSeconds) * time.Second,
		RefreshTTL: time.Duration(cfg.RefreshTTLSeconds) * time.Second,
	}
	return &Server{
		DB:       db,
		Config:   cfg,
		Tokens:   tokens,
		Events:   hub,
		Codes:    codes.NewGenerator(),
		Validate: newValidator(),
	}
}

func (s *Server) publish(kind string, entityID int64, code string, r *http.Request) {
	s.Events.Publish(services.NewEvent(kind, entityID, code, CurrentIdentity(r).UserID))
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	admin := RequireRole(models.RoleAdmin)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.Health)
		api.Post("/auth/login", s.Login)
		api.Post("/auth/refresh", s.Refresh)

		api.Group(func(authed chi.Router) {
			authed.Use(WithAuth(s.Tokens))

			authed.Route("/auth", func(auth chi.Router) {
				auth.With(admin).Post("/register", s.Register)
				auth.Get("/profile", s.Profile)
				auth.Put("/profile", s.UpdateProfile)
				auth.Put("/change-password", s.ChangePassword)
			})

			authed.Route("/users", func(users chi.Router) {
				users.Use(admin)
				users.Get("/", s.ListUsers)
				users.Get("/{id}", s.GetUser)
				users.Put("/{id}", s.UpdateUser)
				users.Delete("/{id}", s.DeleteUser)
			})

			authed.Route("/assets", func(assets chi.Router) {
				assets.Get("/", s.ListAssets)
				assets.Get("/categories", s.ListCategories)
				assets.With(admin).Post("/categories", s.CreateCategory)
				assets.Get("/stats/overview", s.AssetStats)
				assets.Get("/{id}", s.GetAsset)
				assets.With(admin).Post("/", s.CreateAsset)
				assets.With(admin).Put("/{id}", s.UpdateAsset)
				assets.With(admin).Delete("/{id}", s.DeleteAsset)
			})

			authed.Route("/incidents", func(incidents chi.Router) {
				incidents.Get("/", s.ListIncidents)
				incidents.Post("/", s.CreateIncident)
				incidents.Get("/stats/overview", s.IncidentStats)
				incidents.Get("/{id}", s.GetIncident)
				incidents.Put("/{id}", s.UpdateIncident)
				incidents.With(admin).Put("/{id}/assign", s.AssignIncident)
				incidents.Put("/{id}/start", s.StartIncident)
				incidents.Put("/{id}/resolve", s.ResolveIncident)
				incidents.With(admin).Put("/{id}/close", s.CloseIncident)
			})

			authed.Route("/maintenances", func(maintenances chi.Router) {
				maintenances.Get("/", s.ListMaintenances)
				maintenances.Post("/", s.CreateMaintenance)
				maintenances.Get("/stats/overview", s.MaintenanceStats)
				maintenances.Get("/upcoming", s.UpcomingMaintenances)
				maintenances.Get("/{id}", s.GetMaintenance)
				maintenances.Put("/{id}", s.UpdateMaintenance)
				maintenances.Delete("/{id}", s.DeleteMaintenance)
				maintenances.Put("/{id}/start", s.StartMaintenance)
				maintenances.Put("/{id}/complete", s.CompleteMaintenance)
			})

			authed.Route("/responsive-forms", func(forms chi.Router) {
				forms.Get("/", s.ListForms)
				forms.Post("/", s.CreateForm)
				forms.Get("/stats/overview", s.FormStats)
				forms.Get("/{id}", s.GetForm)
				forms.With(admin).Put("/{id}/approve", s.ApproveForm)
				forms.With(admin).Put("/{id}/reject", s.RejectForm)
			})

			authed.Route("/requisitions", func(requisitions chi.Router) {
				requisitions.Get("/", s.ListRequisitions)
				requisitions.Post("/", s.CreateRequisition)
				requisitions.Get("/stats/overview", s.RequisitionStats)
				requisitions.Get("/{id}", s.GetRequisition)
				requisitions.Put("/{id}", s.UpdateRequisition)
				requisitions.Delete("/{id}", s.DeleteRequisition)
				requisitions.With(admin).Put("/{id}/approve", s.ApproveRequisition)
				requisitions.With(admin).Put("/{id}/reject", s.RejectRequisition)
				requisitions.With(admin).Put("/{id}/complete", s.CompleteRequisition)
			})

			authed.Route("/reports", func(reports chi.Router) {
				reports.Get("/dashboard", s.Dashboard)
				reports.Get("/assets", s.AssetReport)
				reports.Get("/incidents", s.IncidentReport)
				reports.Get("/maintenances", s.MaintenanceReport)
				reports.Get("/responsive-forms", s.FormReport)
				reports.Get("/requisitions", s.RequisitionReport)
			})

			authed.With(admin).Get("/admin/system", s.SystemStatus)
		})
	})

	r.Get("/ws/events", s.EventsSocket)
	return r
}
