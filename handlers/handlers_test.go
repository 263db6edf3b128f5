package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tangle-sim/dag"
	"tangle-sim/handlers"
	"tangle-sim/logger"
	"tangle-sim/models"
	"tangle-sim/repository"
	"tangle-sim/routers"
)

type mockRepo struct {
	mu   sync.Mutex
	runs map[string]*models.Run
}

func newMockRepo() *mockRepo {
	return &mockRepo{runs: make(map[string]*models.Run)}
}

func (m *mockRepo) PutRun(run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *run
	m.runs[run.ID] = &copy
	return nil
}

func (m *mockRepo) GetRun(id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrRunNotFound, id)
	}
	// return a copy to simulate DB retrieval
	copy := *r
	return &copy, nil
}

func (m *mockRepo) ListRuns() ([]*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]*models.Run, 0, len(m.runs))
	for _, r := range m.runs {
		copy := *r
		res = append(res, &copy)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt < res[j].CreatedAt })
	return res, nil
}

func (m *mockRepo) DeleteRun(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, id)
	return nil
}

var defaults = models.Parameters{
	NodeCount: 20,
	Lambda:    5,
	MinGap:    1,
	Alpha:     1,
	Strategy:  models.Weighted,
	Seed:      42,
}

func testServer() (*mux.Router, *mockRepo) {
	logger.Logger = zap.NewNop()

	mockRepo := newMockRepo()
	var repoInterface repository.RunRepositoryInterface = mockRepo
	sim := dag.NewSimulator(repoInterface, 10, 500)
	handler := handlers.NewHandler(sim, defaults)
	router := mux.NewRouter()
	routers.RegisterRoutes(router, handler)
	return router, mockRepo
}

func createRun(t *testing.T, router *mux.Router, body map[string]interface{}) models.Run {
	t.Helper()
	bodyJSON, _ := json.Marshal(body)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/tangles", bytes.NewReader(bodyJSON)))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body: %s", res.Code, res.Body.String())
	}

	var resp struct {
		Run models.Run `json:"run"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	return resp.Run
}

func get(router *mux.Router, path string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
	return res
}

func TestCreateTangle_Success(t *testing.T) {
	router, mockRepo := testServer()

	run := createRun(t, router, map[string]interface{}{
		"node_count": 30,
		"strategy":   "unweighted",
		"seed":       7,
	})

	if len(run.Tangle.Nodes) != 30 {
		t.Fatalf("expected 30 nodes, got %d", len(run.Tangle.Nodes))
	}
	if run.Params.Strategy != models.Unweighted {
		t.Fatalf("expected unweighted strategy, got %s", run.Params.Strategy)
	}
	// unset fields fall back to the defaults
	if run.Params.Lambda != defaults.Lambda {
		t.Fatalf("expected default lambda %v, got %v", defaults.Lambda, run.Params.Lambda)
	}
	if len(run.Metrics.ExitProbabilities) != 30 {
		t.Fatalf("expected exit probabilities for every node, got %d", len(run.Metrics.ExitProbabilities))
	}

	if _, err := mockRepo.GetRun(run.ID); err != nil {
		t.Fatalf("expected run stored, got error: %v", err)
	}
}

func TestCreateTangle_EmptyBodyUsesDefaults(t *testing.T) {
	router, _ := testServer()

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/tangles", nil))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body: %s", res.Code, res.Body.String())
	}
}

func TestCreateTangle_InvalidPayload(t *testing.T) {
	router, _ := testServer()

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/tangles", bytes.NewReader([]byte("{"))))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body: %s", res.Code, res.Body.String())
	}
}

func TestCreateTangle_InvalidParameters(t *testing.T) {
	router, _ := testServer()

	for _, body := range []map[string]interface{}{
		{"node_count": 0},
		{"lambda": -1},
		{"strategy": "greedy"},
		{"node_count": 1000},
	} {
		bodyJSON, _ := json.Marshal(body)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/tangles", bytes.NewReader(bodyJSON)))
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d, body: %s", body, res.Code, res.Body.String())
		}
	}
}

func TestListTangles(t *testing.T) {
	router, _ := testServer()
	first := createRun(t, router, map[string]interface{}{"seed": 1})
	second := createRun(t, router, map[string]interface{}{"seed": 2})

	res := get(router, "/tangles")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Runs []struct {
			ID string `json:"id"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(resp.Runs) != 2 || resp.Runs[0].ID != first.ID || resp.Runs[1].ID != second.ID {
		t.Fatalf("unexpected runs: %+v", resp.Runs)
	}
}

func TestGetTangle(t *testing.T) {
	router, _ := testServer()
	run := createRun(t, router, nil)

	res := get(router, "/tangles/"+run.ID)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var got models.Run
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if got.ID != run.ID || len(got.Tangle.Nodes) != defaults.NodeCount {
		t.Fatalf("unexpected run: id=%s nodes=%d", got.ID, len(got.Tangle.Nodes))
	}
}

func TestGetTangle_Upto(t *testing.T) {
	router, _ := testServer()
	run := createRun(t, router, nil)

	res := get(router, "/tangles/"+run.ID+"?upto=5")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var got models.Run
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(got.Tangle.Nodes) != 5 || len(got.Metrics.Confidence) != 5 {
		t.Fatalf("expected a 5 node snapshot, got %d nodes and %d metrics",
			len(got.Tangle.Nodes), len(got.Metrics.Confidence))
	}

	if res := get(router, "/tangles/"+run.ID+"?upto=abc"); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad upto, got %d", res.Code)
	}
}

func TestGetTangle_NotFound(t *testing.T) {
	router, _ := testServer()
	res := get(router, "/tangles/missing")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body: %s", res.Code, res.Body.String())
	}
}

func TestGetTips(t *testing.T) {
	router, _ := testServer()
	run := createRun(t, router, nil)

	res := get(router, "/tangles/"+run.ID+"/tips")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Tips []models.NodeID `json:"tips"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(resp.Tips) == 0 {
		t.Fatalf("expected at least one tip")
	}
	for _, tip := range resp.Tips {
		if run.Metrics.Confidence[tip] != 0 {
			t.Fatalf("tip %d should have zero confidence, got %v", tip, run.Metrics.Confidence[tip])
		}
	}
}

func TestNodeQueries(t *testing.T) {
	router, _ := testServer()
	run := createRun(t, router, nil)
	base := "/tangles/" + run.ID + "/nodes/"

	res := get(router, base+"0/approvers")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var approvers struct {
		Approvers []models.NodeID `json:"approvers"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &approvers); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(approvers.Approvers) == 0 {
		t.Fatalf("expected genesis to be approved")
	}

	res = get(router, base+"0/approved")
	var approved struct {
		Approved []models.NodeID `json:"approved"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &approved); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(approved.Approved) != 0 {
		t.Fatalf("genesis approves nothing, got %v", approved.Approved)
	}

	last := fmt.Sprint(defaults.NodeCount - 1)
	res = get(router, base+last+"/reachable/forward")
	var forward dag.Reachable
	if err := json.Unmarshal(res.Body.Bytes(), &forward); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if !forward.Contains(0) {
		t.Fatalf("newest node should transitively approve genesis, got %v", forward.Nodes)
	}

	res = get(router, base+"0/reachable/backward")
	var backward dag.Reachable
	if err := json.Unmarshal(res.Body.Bytes(), &backward); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(backward.Nodes) != defaults.NodeCount-1 {
		t.Fatalf("every node should approve genesis, got %d", len(backward.Nodes))
	}

	if res := get(router, base+"999/approvers"); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown node, got %d", res.Code)
	}
	if res := get(router, base+"x/approvers"); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed node, got %d", res.Code)
	}
}

func TestGetTransitions(t *testing.T) {
	router, _ := testServer()
	run := createRun(t, router, nil)

	res := get(router, "/tangles/"+run.ID+"/nodes/0/transitions?strategy=unweighted")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var resp struct {
		Transitions map[string]struct {
			Probability float64 `json:"probability"`
		} `json:"transitions"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	var sum float64
	for _, tr := range resp.Transitions {
		sum += tr.Probability
	}
	if len(resp.Transitions) == 0 || sum < 0.999999 || sum > 1.000001 {
		t.Fatalf("expected probabilities summing to 1, got %v", resp.Transitions)
	}

	if res := get(router, "/tangles/"+run.ID+"/nodes/0/transitions?strategy=greedy"); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown strategy, got %d", res.Code)
	}
	if res := get(router, "/tangles/"+run.ID+"/nodes/0/transitions?alpha=big"); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad alpha, got %d", res.Code)
	}
}

func TestCompareStrategies(t *testing.T) {
	router, _ := testServer()
	run := createRun(t, router, nil)

	res := get(router, "/tangles/"+run.ID+"/compare?alpha=0.5")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var resp struct {
		Results map[models.StrategyKind]models.Metrics `json:"results"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	for _, kind := range models.StrategyKinds {
		m, ok := resp.Results[kind]
		if !ok {
			t.Fatalf("missing results for %s", kind)
		}
		if m.Confidence[0] < 0.999999 {
			t.Fatalf("%s: genesis confidence should be 1, got %v", kind, m.Confidence[0])
		}
	}
}

func TestAlphaQuery_RejectsNonFiniteAndNegative(t *testing.T) {
	router, _ := testServer()
	run := createRun(t, router, nil)

	for _, alpha := range []string{"inf", "-Inf", "NaN", "-1", "-5"} {
		for _, path := range []string{
			"/tangles/" + run.ID + "/compare?alpha=" + alpha,
			"/tangles/" + run.ID + "/nodes/0/transitions?strategy=weighted&alpha=" + alpha,
		} {
			res := get(router, path)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d, body: %s", path, res.Code, res.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
				t.Fatalf("%s: expected an error body, got %q", path, res.Body.String())
			}
		}
	}

	if res := get(router, "/tangles/"+run.ID+"/compare?alpha=0"); res.Code != http.StatusOK {
		t.Fatalf("expected 200 for alpha=0, got %d", res.Code)
	}
}
