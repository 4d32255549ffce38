package routes

import (
	"net/http"

	"github.com/zatekoja/foodinspector/internal/api/handlers"
	"github.com/zatekoja/foodinspector/internal/api/middleware"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	establishmentHandler *handlers.EstablishmentHandler
	inspectionHandler    *handlers.InspectionHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	establishmentHandler *handlers.EstablishmentHandler,
	inspectionHandler *handlers.InspectionHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                  http.NewServeMux(),
		establishmentHandler: establishmentHandler,
		inspectionHandler:    inspectionHandler,
		cacheMiddleware:      cacheMiddleware,
		allowedOrigins:       allowedOrigins,
		metrics:              metrics,
	}
}

// inspectionViews maps a route suffix onto the view it serves
var inspectionViews = []struct {
	suffix string
	view   services.InspectionView
}{
	{"", services.ViewRaw},
	{"/latest", services.ViewRawLatest},
	{"/aggregated", services.ViewAggregated},
	{"/aggregated/latest", services.ViewAggregatedLatest},
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoints
	r.mux.HandleFunc("GET /health", r.establishmentHandler.Health)
	r.mux.HandleFunc("GET /ready", r.establishmentHandler.Ready)

	// Establishment endpoints
	r.mux.HandleFunc("GET /api/establishments", r.establishmentHandler.ListEstablishments)
	r.mux.HandleFunc("POST /api/admin/establishments/refresh", r.establishmentHandler.RefreshEstablishments)

	// Inspection endpoints
	for _, v := range inspectionViews {
		r.mux.HandleFunc("GET /api/inspections"+v.suffix, r.inspectionHandler.Bulk(v.view))
		r.mux.HandleFunc("GET /api/establishments/{programIdentifier}/inspections"+v.suffix, r.inspectionHandler.ForEstablishment(v.view))
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics, r.mux)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.RequestID(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
