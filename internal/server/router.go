package server

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"event-checkout/internal/middleware"
)

// NewRouter mounts the checkout endpoints
func NewRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(deps.Log))
	r.Use(middleware.ErrorHandlingMiddleware)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(deps.Config.CORS.AllowedOrigins)))
	r.Use(middleware.SecurityHeadersMiddleware)

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/", deps.Checkout.Root)
	r.Get("/health", deps.Health.Health)
	r.Post("/quote", deps.Checkout.Quote)

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}
		r.Post("/order", deps.Checkout.CreateOrder)
		r.Post("/validate", deps.Checkout.ValidatePayment)
		r.Post("/save-booking", deps.Checkout.SaveBooking)
	})

	// The gateway retries webhooks itself, so they are never rate limited.
	r.Post("/webhook", deps.Webhook.Handle)

	// Ticket documents kept on local disk
	if deps.LocalStorage != nil {
		prefix := strings.TrimSuffix(deps.Config.R2.LocalBaseURL, "/")
		if strings.HasPrefix(prefix, "/") && prefix != "" {
			r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(filesOnly{http.Dir(deps.LocalStorage.BasePath())})))
		}
	}

	return r
}

// filesOnly hides directories so the ticket store cannot be listed.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
