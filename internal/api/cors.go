package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig controls the access-control headers on every response.
type CORSConfig struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig allows everything. The API is meant for lab-network
// dashboards and tooling, not the open internet.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		MaxAge:       86400,
	}
}

type corsHeaders struct {
	origin  string
	methods string
	headers string
	maxAge  string
}

func precomputeCORS(config CORSConfig) corsHeaders {
	return corsHeaders{
		origin:  config.AllowOrigin,
		methods: strings.Join(config.AllowMethods, ", "),
		headers: strings.Join(config.AllowHeaders, ", "),
		maxAge:  strconv.Itoa(config.MaxAge),
	}
}

// NewCORSMiddleware returns huma middleware that stamps the CORS headers
// on every routed response and short-circuits preflight requests.
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	h := precomputeCORS(config)

	return func(ctx huma.Context, next func(huma.Context)) {
		ctx.SetHeader("Access-Control-Allow-Origin", h.origin)
		ctx.SetHeader("Access-Control-Allow-Methods", h.methods)
		ctx.SetHeader("Access-Control-Allow-Headers", h.headers)
		ctx.SetHeader("Access-Control-Max-Age", h.maxAge)

		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}

		next(ctx)
	}
}

// AddCORSHandler registers a catch-all OPTIONS handler on the mux.
// Preflight requests for unrouted paths never reach huma middleware, so
// they need their own answer.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	h := precomputeCORS(config)

	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("Access-Control-Allow-Origin", h.origin)
		hdr.Set("Access-Control-Allow-Methods", h.methods)
		hdr.Set("Access-Control-Allow-Headers", h.headers)
		hdr.Set("Access-Control-Max-Age", h.maxAge)
		w.WriteHeader(http.StatusNoContent)
	})
}
