package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/logging"
	"github.com/maanas1234/Celestia-Hackathon/metrics"
	"github.com/maanas1234/Celestia-Hackathon/realtime"
)

// Router bundles everything the backend serves.
type Router struct {
	Alerts             *AlertHandler
	Images             *ImageServer
	Health             *HealthHandler
	Hub                *realtime.Hub
	Metrics            *metrics.Backend
	CORSAllowedOrigins []string
	Log                *zap.SugaredLogger
}

// Handler builds the chi router for the alert backend.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: rt.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logging.StdLogger(rt.Log), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/alert", rt.Alerts.SubmitAlert)
		r.Get("/alerts/latest", rt.Alerts.ListLatest)
		r.Get("/latest", rt.Alerts.Latest)
		r.Get("/image/{name}", rt.Images.ServeImage)
		r.Get("/health", rt.Health.Health)
		if rt.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", rt.Metrics.Handler())
		}
	})

	// websocket connections outlive the request timeout
	if rt.Hub != nil {
		r.Get("/ws/alerts", rt.Hub.ServeWS)
	}

	return r
}
