package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/graph"
	"github.com/lazypower/mnemo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryThenComplete(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, "POST", "/api/query", `{"seeds":["a"],"text":"topic","max_results":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res engine.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Activated)
	assert.Equal(t, "a", res.Activated[0].ID)
	assert.LessOrEqual(t, len(res.Selected), 2)
	assert.Equal(t, len(res.Activated), res.Telemetry.Activated)

	w = do(t, srv, "POST", "/api/query/complete", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report engine.LearnReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Positive(t, report.HebbianUpdated)

	w = do(t, srv, "POST", "/api/query/complete", "")
	assert.Equal(t, http.StatusConflict, w.Code, "the batch is consumed once")
}

func TestQueryValidation(t *testing.T) {
	srv, _ := testServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"seeds":`},
		{"negative max", `{"seeds":["a"],"max_results":-1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/api/query", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestQueryGoalOnly(t *testing.T) {
	srv, _ := testServer(t)
	g := srv.engine.Graph()
	require.NoError(t, g.AddNode(&graph.Node{ID: "goal", Type: graph.NodeGoal, Label: "ship it", Salience: 0.5}))
	g.AddSynapse(&graph.Synapse{Source: "goal", Target: "a", Weight: 0.9, Type: graph.SynapseAssociation})

	w := do(t, srv, "POST", "/api/query", `{"text":"what next"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res engine.QueryResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	ids := make([]string, 0, len(res.Activated))
	for _, a := range res.Activated {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, "goal")

	w = do(t, srv, "POST", "/api/query/complete", "")
	assert.Equal(t, http.StatusOK, w.Code, "goal-only batch can be learned")
}

func TestCompleteWithoutQuery(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv, "POST", "/api/query/complete", `{"relations":[]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIngestEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	body := `{"context":"demo","nodes":[
		{"label":"Redis","type":"tool","confidence":0.9},
		{"label":"Kafka","type":"tool","confidence":0.8},
		{"label":"guess","type":"tool","confidence":0.1}
	]}`
	w := do(t, srv, "POST", "/api/nodes", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res engine.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"node-1", "node-2"}, res.Created)
	assert.Equal(t, 1, res.Dropped)

	w = do(t, srv, "POST", "/api/nodes", `{"nodes":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetPhase(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, "PUT", "/api/phase", `{"phase":"Consolidate"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, "GET", "/api/telemetry", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tel engine.Telemetry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tel))
	assert.Equal(t, engine.PhaseConsolidate, tel.Phase)
	assert.Equal(t, 3, tel.Nodes)

	w = do(t, srv, "PUT", "/api/phase", `{"phase":"dreaming"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsolidateEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv, "POST", "/api/consolidate", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report engine.ConsolidationReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Zero(t, report.WeakEdgesPruned)
}

func TestGraphAndSnapshot(t *testing.T) {
	srv, db := testServer(t)

	w := do(t, srv, "GET", "/api/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	var doc store.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Len(t, doc.Nodes, 3)
	assert.Len(t, doc.Synapses, 2)

	require.Equal(t, http.StatusOK, do(t, srv, "POST", "/api/query", `{"seeds":["c"]}`).Code)
	require.Equal(t, http.StatusOK, do(t, srv, "POST", "/api/query/complete", "").Code)

	w = do(t, srv, "POST", "/api/snapshot", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap store.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Queries, "learned query count is saved")

	loaded, err := db.LoadGraph()
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 3)
	assert.Len(t, loaded.Synapses, 2)
}
