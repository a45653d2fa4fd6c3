package server

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gallerylinks/internal/directory"
	"gallerylinks/internal/gallery"
	"gallerylinks/internal/handlers"
	"gallerylinks/internal/handlers/api"
	"gallerylinks/internal/jobs"
	"gallerylinks/internal/middleware"
	"gallerylinks/internal/selection"
	"gallerylinks/internal/storage"
)

// Deps are the services the routes are wired to.
type Deps struct {
	Probe   handlers.Pinger
	Links   *directory.Directory
	Files   storage.Backend
	Picks   *selection.PickStore
	Checker *jobs.FolderChecker // nil when background checks are off
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) error {
	decorate := func(m fiber.Map) fiber.Map { return handlers.MergeBranding(m, s.Cfg) }

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(s.Cfg, decorate)

	// Initialize handlers
	var statuses handlers.FolderStatuses
	if deps.Checker != nil {
		statuses = deps.Checker
	}
	galleries := gallery.NewController(deps.Links, deps.Files)
	probeHandler := handlers.NewProbeHandler(deps.Probe)
	galleryHandler := handlers.NewGalleryHandler(galleries, deps.Links, deps.Picks, s.Cfg)
	adminHandler := handlers.NewAdminHandler(deps.Links, statuses, s.Cfg)
	folderAPI := api.NewFolderHandler(deps.Files)
	galleryAPI := api.NewGalleryHandler(galleries, deps.Files, deps.Picks)
	linkAPI := api.NewLinkHandler(deps.Links)

	// Probes and metrics
	s.App.Get("/healthz", probeHandler.Liveness)
	s.App.Get("/readyz", probeHandler.Readiness)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Auth routes - the dashboard stays locked when OIDC is not configured
	if s.Cfg.IsAdminConfigured() {
		authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg)
		if err != nil {
			return err
		}
		s.App.Get("/auth/login", authHandler.Login)
		s.App.Get("/auth/callback", authHandler.Callback)
		s.App.Get("/auth/logout", authHandler.Logout)
	} else {
		slog.Warn("admin dashboard disabled: set OIDC_ISSUER and ADMIN_SUB to enable")
	}

	// Public pages
	s.App.Get("/", handlers.Home(s.Cfg))
	s.App.Get("/s/:shortId", galleryHandler.Show)
	s.App.Get("/p/:shortId", galleryHandler.ShowPicking)
	s.App.Get("/s/:shortId/grid", galleryHandler.Grid)
	s.App.Post("/s/:shortId/select/:fileId", galleryHandler.ToggleSelect)
	s.App.Delete("/s/:shortId/selection", galleryHandler.ClearSelection)
	s.App.Post("/s/:shortId/pick/:fileId", galleryHandler.TogglePick)
	s.App.Get("/s/:shortId/picks.txt", galleryHandler.PickedList)

	// Public API
	s.App.Get("/api/folder/:id", folderAPI.List)
	s.App.Get("/api/image/:id", folderAPI.Image)
	s.App.Get("/api/gallery/:shortId", galleryAPI.Get)
	s.App.Get("/api/gallery/:shortId/picks", galleryAPI.Picks)
	s.App.Post("/api/gallery/:shortId/archive", galleryAPI.Archive)

	// Admin dashboard
	admin := s.App.Group("/admin", authMiddleware.RequireAdmin)
	admin.Get("/", adminHandler.Dashboard)
	admin.Get("/preview", adminHandler.Preview)
	admin.Get("/links/check", adminHandler.CheckShortID)
	admin.Get("/links/stream", adminHandler.Stream)
	admin.Post("/links", adminHandler.Create)
	admin.Delete("/links/:id", adminHandler.Delete)
	admin.Post("/links/:shortId/recheck", adminHandler.Recheck)

	// Admin API
	adminAPI := s.App.Group("/api/admin", authMiddleware.RequireAdmin)
	adminAPI.Get("/links", linkAPI.List)
	adminAPI.Post("/links", linkAPI.Create)
	adminAPI.Get("/links/check", linkAPI.CheckShortID)
	adminAPI.Get("/links/:shortId", linkAPI.Get)
	adminAPI.Delete("/links/:id", linkAPI.Delete)

	return nil
}
