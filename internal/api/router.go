package api

import (
	"canvaslab/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Middleware runs in order - tracing first, then recovery, then CORS
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	// API routes
	api := r.PathPrefix("/api").Subrouter()

	// Lab endpoints
	api.HandleFunc("/labs", h.CreateLab).Methods("POST")
	api.HandleFunc("/labs", h.ListLabs).Methods("GET")
	api.HandleFunc("/labs/{id}", h.GetLab).Methods("GET")
	api.HandleFunc("/labs/{id}", h.DeleteLab).Methods("DELETE")
	api.HandleFunc("/labs/{id}/commits", h.GetLabCommits).Methods("GET")
	api.HandleFunc("/labs/{id}/shapes/{shapeId}/commits", h.GetShapeCommits).Methods("GET")

	// Health check endpoint
	api.HandleFunc("/health", h.Health).Methods("GET")

	// WebSocket routes
	r.HandleFunc("/ws/lab/{id}", h.HandleLabWebSocket)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}
