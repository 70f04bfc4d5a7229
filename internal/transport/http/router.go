package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"babagram/internal/handler"
	"babagram/internal/httputil"
	"babagram/internal/metrics"
	authmw "babagram/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes.
// NotificationHandler is nil when Postgres is not configured.
type RouterConfig struct {
	InteractionHandler  *handler.InteractionHandler
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	StoryHandler        *handler.StoryHandler
	HighlightHandler    *handler.HighlightHandler
	MediaHandler        *handler.MediaHandler
	NotificationHandler *handler.NotificationHandler
	JWTSecret           string
	Logger              zerolog.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteOK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	// Reads with optional authentication; the reader decides story visibility
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret))

		r.Get("/content/{contentType}/{id}", cfg.PostHandler.Get)
		r.Get("/content/{contentType}/{id}/comments", cfg.CommentHandler.List)
		r.Get("/comments/{id}/replies", cfg.CommentHandler.ListReplies)
		r.Get("/stories/{id}", cfg.StoryHandler.Get)
		r.Get("/users/{userID}/stories", cfg.StoryHandler.ListByAuthor)
		r.Get("/users/{userID}/highlights", cfg.HighlightHandler.ListByOwner)
		r.Get("/highlights/{id}", cfg.HighlightHandler.Get)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/interactions", cfg.InteractionHandler.Apply)

		r.Post("/content/{contentType}", cfg.PostHandler.Create)
		r.Patch("/content/{contentType}/{id}", cfg.PostHandler.Update)
		r.Delete("/content/{contentType}/{id}", cfg.PostHandler.Delete)
		r.Post("/content/{contentType}/{id}/restore", cfg.PostHandler.Restore)

		r.Delete("/comments/{id}", cfg.CommentHandler.Delete)

		r.Post("/stories", cfg.StoryHandler.Create)
		r.Post("/stories/media", cfg.StoryHandler.UploadImage)
		r.Delete("/stories/{id}", cfg.StoryHandler.Delete)

		r.Post("/highlights", cfg.HighlightHandler.Create)
		r.Patch("/highlights/{id}", cfg.HighlightHandler.Update)
		r.Delete("/highlights/{id}", cfg.HighlightHandler.Delete)
		r.Post("/highlights/{id}/stories", cfg.HighlightHandler.AddStory)
		r.Delete("/highlights/{id}/stories/{storyID}", cfg.HighlightHandler.RemoveStory)

		// Media endpoints (direct-to-R2 uploads)
		r.Post("/media/presign", cfg.MediaHandler.Presign)
		r.Post("/media/presign/batch", cfg.MediaHandler.PresignBatch)

		if nh := cfg.NotificationHandler; nh != nil {
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", nh.List)
				r.Get("/unread-count", nh.GetUnreadCount)
				r.Patch("/read", nh.MarkRead)
			})
			r.Post("/devices/token", nh.RegisterToken)
			r.Delete("/devices/token", nh.RemoveToken)
		}
	})

	return r
}
