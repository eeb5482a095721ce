package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-registry/internal/web/handlers"
	"github.com/kozaktomas/face-registry/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	maxUpload := s.config.Web.MaxUploadBytes()
	facesHandler := handlers.NewFacesHandler(s.service, maxUpload)
	identitiesHandler := handlers.NewIdentitiesHandler(s.service, maxUpload)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(s.config.Web.APIKey))
		r.Use(middleware.SecurityHeaders())

		// Faces
		r.Post("/faces/register", facesHandler.Register)
		r.Post("/faces/register-file", facesHandler.RegisterFile)
		r.Post("/faces/recognize", facesHandler.Recognize)
		r.Post("/faces/recognize-file", facesHandler.RecognizeFile)
		r.Post("/faces/compare", facesHandler.Compare)
		r.Post("/faces/compare-files", facesHandler.CompareFiles)

		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Get("/identities/by-name/{name}", identitiesHandler.GetByName)
		r.Get("/identities/{id}", identitiesHandler.Get)
		r.Put("/identities/{id}", identitiesHandler.Update)
		r.Delete("/identities/{id}", identitiesHandler.Delete)

		// Stats
		r.Get("/stats", identitiesHandler.Stats)
	})
}
