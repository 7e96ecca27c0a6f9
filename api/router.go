package api

import (
	"net/http"
	"time"

	"github.com/acksell/foosball/auth"
	"github.com/acksell/foosball/model"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// DefaultAllowedOrigins are the web clients served when none are configured.
var DefaultAllowedOrigins = []string{
	"https://psg-app.picklane.com",
	"http://localhost:8099",
}

type RouterConfig struct {
	Models *model.Models
	Auth   *auth.Service
	Logger zerolog.Logger
	Clock  clockwork.Clock
	// Location decides where midnight is for stats_days. Defaults to time.Local.
	Location       *time.Location
	AllowedOrigins []string
}

// NewRouter returns the full HTTP surface, CORS included.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}

	r := mux.NewRouter()
	r.Use(requestLogging(cfg.Logger))
	r.Use(recovery)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, model.NewError(model.NotFound, "no route for %s %s", req.Method, req.URL.Path))
	})

	NewAPIHandler(cfg.Models, cfg.Auth, cfg.Clock, cfg.Location).RegisterRoutes(r)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(r)
}
