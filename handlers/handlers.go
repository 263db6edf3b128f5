package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tangle-sim/dag"
	"tangle-sim/logger"
	"tangle-sim/models"
)

// Handler contains the HTTP handlers for the simulation API endpoints
type Handler struct {
	Simulator *dag.Simulator
	Defaults  models.Parameters
}

// NewHandler creates and returns a new Handler instance
func NewHandler(s *dag.Simulator, defaults models.Parameters) *Handler {
	return &Handler{Simulator: s, Defaults: defaults}
}

// createRequest mirrors models.Parameters with every field optional;
// missing fields take the configured defaults.
type createRequest struct {
	NodeCount *int     `json:"node_count"`
	Lambda    *float64 `json:"lambda"`
	MinGap    *float64 `json:"min_gap"`
	Alpha     *float64 `json:"alpha"`
	Strategy  *string  `json:"strategy"`
	Seed      *int64   `json:"seed"`
}

func (r createRequest) parameters(defaults models.Parameters) models.Parameters {
	p := defaults
	if r.NodeCount != nil {
		p.NodeCount = *r.NodeCount
	}
	if r.Lambda != nil {
		p.Lambda = *r.Lambda
	}
	if r.MinGap != nil {
		p.MinGap = *r.MinGap
	}
	if r.Alpha != nil {
		p.Alpha = *r.Alpha
	}
	if r.Strategy != nil {
		p.Strategy = models.StrategyKind(*r.Strategy)
	}
	if r.Seed != nil {
		p.Seed = *r.Seed
	}
	return p
}

type runSummary struct {
	ID        string            `json:"id"`
	Params    models.Parameters `json:"params"`
	CreatedAt int64             `json:"created_at"`
}

// CreateTangle handles POST requests that grow, analyze and archive a new tangle
func (h *Handler) CreateTangle(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	// An empty body builds with the defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Logger.Error("Failed to decode tangle request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	run, err := h.Simulator.CreateRun(req.parameters(h.Defaults))
	if err != nil {
		logger.Logger.Error("Failed to create tangle", zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Tangle created successfully",
		"run":     run,
	})
}

// ListTangles handles GET requests listing archived runs, oldest first
func (h *Handler) ListTangles(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Simulator.ListRuns()
	if err != nil {
		logger.Logger.Error("Failed to list tangles", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, runSummary{ID: run.ID, Params: run.Params, CreatedAt: run.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": out})
}

// GetTangle handles GET requests for a run. With ?upto=k the tangle is cut
// to its first k nodes and the metrics are recomputed for that snapshot.
func (h *Handler) GetTangle(w http.ResponseWriter, r *http.Request) {
	g, run, upto, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	if upto == 0 {
		writeJSON(w, http.StatusOK, run)
		return
	}

	m, err := dag.Analyze(g, run.Params.Strategy, run.Params.Alpha)
	if err != nil {
		logger.Logger.Error("Failed to analyze snapshot", zap.String("run_id", run.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.Run{
		ID:        run.ID,
		Params:    run.Params,
		Tangle:    g.Tangle(),
		Metrics:   m,
		CreatedAt: run.CreatedAt,
	})
}

// GetTips handles GET requests for the current tips of a run
func (h *Handler) GetTips(w http.ResponseWriter, r *http.Request) {
	g, _, _, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	tips := g.Tips()
	if tips == nil {
		tips = []models.NodeID{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tips": tips})
}

// GetApprovers handles GET requests for the direct approvers of a node
func (h *Handler) GetApprovers(w http.ResponseWriter, r *http.Request) {
	g, _, id, ok := h.node(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"node": id, "approvers": g.DirectApprovers(id)})
}

// GetApproved handles GET requests for the nodes a node directly approves
func (h *Handler) GetApproved(w http.ResponseWriter, r *http.Request) {
	g, _, id, ok := h.node(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"node": id, "approved": g.DirectlyApproved(id)})
}

// GetReachableForward handles GET requests for everything a node transitively approves
func (h *Handler) GetReachableForward(w http.ResponseWriter, r *http.Request) {
	g, _, id, ok := h.node(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.ReachableForward(id))
}

// GetReachableBackward handles GET requests for everything that transitively approves a node
func (h *Handler) GetReachableBackward(w http.ResponseWriter, r *http.Request) {
	g, _, id, ok := h.node(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.ReachableBackward(id))
}

// GetTransitions handles GET requests for the step probabilities from a
// node to each of its approvers. ?strategy and ?alpha override the run's.
func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	g, run, id, ok := h.node(w, r)
	if !ok {
		return
	}

	var err error
	kind := run.Params.Strategy
	if s := r.URL.Query().Get("strategy"); s != "" {
		if kind, err = models.ParseStrategyKind(s); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	alpha, ok := floatQuery(w, r, "alpha", run.Params.Alpha)
	if !ok {
		return
	}

	weights, err := dag.ComputeCumulativeWeights(g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	probs, err := dag.TransitionProbabilities(g, weights, id, kind, alpha)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	out := make(map[string]interface{}, len(probs))
	for approver, p := range probs {
		out[strconv.Itoa(int(approver))] = map[string]interface{}{
			"probability":       p,
			"cumulative_weight": weights[approver],
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"node":        id,
		"strategy":    kind,
		"transitions": out,
	})
}

// CompareStrategies handles GET requests analyzing one run under every strategy
func (h *Handler) CompareStrategies(w http.ResponseWriter, r *http.Request) {
	g, run, _, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	alpha, ok := floatQuery(w, r, "alpha", run.Params.Alpha)
	if !ok {
		return
	}

	results, err := dag.CompareStrategies(r.Context(), g, alpha)
	if err != nil {
		logger.Logger.Error("Failed to compare strategies", zap.String("run_id", run.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": run.ID, "results": results})
}

// snapshot loads the run named in the path and applies ?upto.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*dag.Graph, *models.Run, int, bool) {
	upto := 0
	if s := r.URL.Query().Get("upto"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "upto must be a positive integer")
			return nil, nil, 0, false
		}
		upto = v
	}

	g, run, err := h.Simulator.Snapshot(mux.Vars(r)["id"], upto)
	if err != nil {
		if !dag.IsNotFound(err) {
			logger.Logger.Error("Failed to load run", zap.Error(err))
		}
		writeError(w, statusFor(err), err.Error())
		return nil, nil, 0, false
	}
	return g, run, upto, true
}

// node loads the snapshot and the node named in the path.
func (h *Handler) node(w http.ResponseWriter, r *http.Request) (*dag.Graph, *models.Run, models.NodeID, bool) {
	g, run, _, ok := h.snapshot(w, r)
	if !ok {
		return nil, nil, 0, false
	}
	raw := mux.Vars(r)["node"]
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid node id %q", raw))
		return nil, nil, 0, false
	}
	id := models.NodeID(v)
	if !g.Has(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("node %d not found", v))
		return nil, nil, 0, false
	}
	return g, run, id, true
}

// floatQuery reads a finite, non-negative float from the query string.
func floatQuery(w http.ResponseWriter, r *http.Request, key string, def float64) (float64, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a finite non-negative number, got %q", key, s))
		return 0, false
	}
	return v, true
}

func statusFor(err error) int {
	switch {
	case dag.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, dag.ErrInvalidParameter), errors.Is(err, dag.ErrUnknownStrategy):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v before writing the header; an encode failure is
// answered with a 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Logger.Error("Failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		logger.Logger.Warn("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
