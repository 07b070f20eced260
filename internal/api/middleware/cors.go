package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/tracing"
)

// CORSConfig controls which browser frontends may drive the API.
type CORSConfig struct {
	AllowOrigins []string
	ExtraHeaders []string
	MaxAge       time.Duration
}

// DefaultCORSConfig admits any origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		MaxAge:       12 * time.Hour,
	}
}

var corsHeaders = []string{
	"Accept", "Accept-Encoding", "Cache-Control", "Content-Length",
	"Content-Type", "Origin", "X-Requested-With",
	tracing.TraceHeader, tracing.SpanHeader,
}

// CORS allows cross-origin REST calls and the flush WebSocket. Wildcard
// origins never carry credentials.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = DefaultCORSConfig().AllowOrigins
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     append(slices.Clone(corsHeaders), cfg.ExtraHeaders...),
		ExposeHeaders:    []string{tracing.TraceHeader},
		AllowCredentials: !slices.Contains(origins, "*"),
		AllowWebSockets:  true,
		MaxAge:           cfg.MaxAge,
	})
}
