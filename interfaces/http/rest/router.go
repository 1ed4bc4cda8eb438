// Package rest wires the HTTP surface: routing, middleware chain and the
// handler set.
package rest

import (
	"net/http"

	"letters-backend/application/services"
	"letters-backend/interfaces/http/rest/handlers"
	"letters-backend/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router.
type Router struct {
	comments       *services.CommentService
	chat           *services.ChatService
	letters        *services.LetterService
	profiles       *services.ProfileService
	allowedOrigins []string
	logger         *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	comments *services.CommentService,
	chat *services.ChatService,
	letters *services.LetterService,
	profiles *services.ProfileService,
	allowedOrigins []string,
	logger *zap.Logger,
) *Router {
	return &Router{
		comments:       comments,
		chat:           chat,
		letters:        letters,
		profiles:       profiles,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate())
		r.Use(middleware.EnsureProfile(rt.profiles, rt.logger))

		commentHandler := handlers.NewCommentHandler(rt.comments, rt.logger)
		r.Post("/comments", commentHandler.Create)
		r.Delete("/comments", commentHandler.Delete)
		r.Get("/items/{itemID}/comments", commentHandler.ListByItem)
		r.Post("/reactions/toggle", commentHandler.ToggleReaction)

		chatHandler := handlers.NewChatHandler(rt.chat, rt.logger)
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", chatHandler.Start)
			r.Get("/", chatHandler.List)
			r.Post("/{convID}/messages", chatHandler.Send)
			r.Get("/{convID}/messages", chatHandler.Messages)
			r.Post("/{convID}/read", chatHandler.MarkRead)
		})

		letterHandler := handlers.NewLetterHandler(rt.letters, rt.logger)
		r.Route("/letters", func(r chi.Router) {
			r.Get("/", letterHandler.List)
			r.Get("/{date}", letterHandler.Get)
			r.Get("/{date}/versions", letterHandler.Versions)
			r.With(middleware.RequireGroup("admin")).Put("/{date}", letterHandler.Publish)
		})

		profileHandler := handlers.NewProfileHandler(rt.profiles, rt.logger)
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", profileHandler.List)
			r.Get("/me", profileHandler.Me)
			r.Put("/me", profileHandler.Update)
			r.Get("/{userID}", profileHandler.Get)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
