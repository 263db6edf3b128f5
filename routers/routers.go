package routers

import (
	"tangle-sim/handlers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up all the HTTP routes for the simulator
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Grows, analyzes and archives a new tangle
	r.HandleFunc("/tangles", h.CreateTangle).Methods("POST")

	// Lists archived runs
	r.HandleFunc("/tangles", h.ListTangles).Methods("GET")

	// Returns a run; ?upto=k replays the tangle at growth step k
	r.HandleFunc("/tangles/{id}", h.GetTangle).Methods("GET")

	// Unapproved nodes of a run
	r.HandleFunc("/tangles/{id}/tips", h.GetTips).Methods("GET")

	// Same snapshot analyzed under every tip selection strategy
	r.HandleFunc("/tangles/{id}/compare", h.CompareStrategies).Methods("GET")

	// Graph queries around a single node
	r.HandleFunc("/tangles/{id}/nodes/{node}/approvers", h.GetApprovers).Methods("GET")
	r.HandleFunc("/tangles/{id}/nodes/{node}/approved", h.GetApproved).Methods("GET")
	r.HandleFunc("/tangles/{id}/nodes/{node}/reachable/forward", h.GetReachableForward).Methods("GET")
	r.HandleFunc("/tangles/{id}/nodes/{node}/reachable/backward", h.GetReachableBackward).Methods("GET")

	// Walk step probabilities from a node to its approvers
	r.HandleFunc("/tangles/{id}/nodes/{node}/transitions", h.GetTransitions).Methods("GET")

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
