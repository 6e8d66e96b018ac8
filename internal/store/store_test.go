package store_test

import (
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/dishwash-pipeline/internal/store"
)

func TestMemoryStoreVertices(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore[string, string]()
	require.NoError(t, st.AddVertex("wash", "wash", graph.VertexProperties{Weight: 2}))
	require.ErrorIs(t, st.AddVertex("wash", "wash", graph.VertexProperties{}), graph.ErrVertexAlreadyExists)
	require.NoError(t, st.AddVertex("dry", "dry", graph.VertexProperties{}))

	count, err := st.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hashes, err := st.ListVertices()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"wash", "dry"}, hashes)

	_, _, err = st.Vertex("store")
	require.ErrorIs(t, err, graph.ErrVertexNotFound)
}

func TestMemoryStoreUpdateVertex(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore[string, string]()
	require.NoError(t, st.AddVertex("wash", "wash", graph.VertexProperties{}))

	err := st.UpdateVertex("wash", func(p *graph.VertexProperties) {
		p.Attributes["color"] = "red"
		p.Weight = 3
	})
	require.NoError(t, err)

	_, props, err := st.Vertex("wash")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"color": "red"}, props.Attributes)
	assert.Equal(t, 3, props.Weight)

	// Properties are returned as a copy.
	props.Attributes["color"] = "blue"
	_, props, err = st.Vertex("wash")
	require.NoError(t, err)
	assert.Equal(t, "red", props.Attributes["color"])

	err = st.UpdateVertex("dry", func(*graph.VertexProperties) {})
	require.ErrorIs(t, err, graph.ErrVertexNotFound)
}

func TestMemoryStoreEdges(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore[string, string]()
	for _, name := range []string{"wash", "dry", "store"} {
		require.NoError(t, st.AddVertex(name, name, graph.VertexProperties{}))
	}

	require.NoError(t, st.AddEdge("wash", "dry", graph.Edge[string]{Source: "wash", Target: "dry"}))
	require.NoError(t, st.AddEdge("dry", "store", graph.Edge[string]{Source: "dry", Target: "store"}))
	require.ErrorIs(t, st.AddEdge("wash", "rinse", graph.Edge[string]{}), graph.ErrVertexNotFound)

	edges, err := st.ListEdges()
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	err = st.UpdateEdge("wash", "dry", graph.Edge[string]{
		Source:     "wash",
		Target:     "dry",
		Properties: graph.EdgeProperties{Weight: 4},
	})
	require.NoError(t, err)
	edge, err := st.Edge("wash", "dry")
	require.NoError(t, err)
	assert.Equal(t, 4, edge.Properties.Weight)
	require.ErrorIs(t, st.UpdateEdge("store", "wash", graph.Edge[string]{}), graph.ErrEdgeNotFound)

	cycle, err := st.CreatesCycle("store", "wash")
	require.NoError(t, err)
	assert.True(t, cycle)
	cycle, err = st.CreatesCycle("wash", "store")
	require.NoError(t, err)
	assert.False(t, cycle)
	_, err = st.CreatesCycle("rinse", "wash")
	require.ErrorIs(t, err, graph.ErrVertexNotFound)

	require.ErrorIs(t, st.RemoveVertex("dry"), graph.ErrVertexHasEdges)
	require.NoError(t, st.RemoveEdge("wash", "dry"))
	require.ErrorIs(t, st.RemoveEdge("wash", "dry"), graph.ErrEdgeNotFound)
	require.NoError(t, st.RemoveEdge("dry", "store"))
	require.NoError(t, st.RemoveVertex("dry"))
	require.ErrorIs(t, st.RemoveVertex("dry"), graph.ErrVertexNotFound)
}

func TestMemoryStoreBacksGraph(t *testing.T) {
	t.Parallel()

	var st store.CustomStore[string, string] = store.NewMemoryStore[string, string]()
	gra := graph.NewWithStore(graph.StringHash, st, graph.Directed(), graph.Acyclic())
	for _, name := range []string{"wash", "dry", "store"} {
		require.NoError(t, gra.AddVertex(name))
	}
	require.NoError(t, gra.AddEdge("wash", "dry"))
	require.NoError(t, gra.AddEdge("dry", "store"))
	require.ErrorIs(t, gra.AddEdge("store", "wash"), graph.ErrEdgeCreatesCycle)

	order, err := graph.TopologicalSort(gra)
	require.NoError(t, err)
	assert.Equal(t, []string{"wash", "dry", "store"}, order)
}
