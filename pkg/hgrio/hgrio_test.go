package hgrio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

const weighted = `% the seven node example with weights
4 7 11
2 1 3
1 1 2 4 5
% comment between hyperedges
3 4 5 7
1 3 6 7
5
1
1
1
1
1
2
`

func TestReadHypergraphWeighted(t *testing.T) {
	hg, err := ReadHypergraph(strings.NewReader(weighted), 2)
	require.NoError(t, err)

	assert.Equal(t, 7, hg.CurrentNumNodes())
	assert.Equal(t, 4, hg.CurrentNumEdges())
	assert.Equal(t, []hypergraph.HypernodeID{0, 2}, hg.Pins(0))
	assert.Equal(t, 2, hg.EdgeWeight(0))
	assert.Equal(t, 3, hg.EdgeWeight(2))
	assert.Equal(t, 5, hg.NodeWeight(0))
	assert.Equal(t, 12, hg.TotalWeight())
	require.NoError(t, hg.Validate())
}

func TestReadHypergraphUnweighted(t *testing.T) {
	hg, err := ReadHypergraph(strings.NewReader("3 4\n1 2\n2 3\n3 4\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, 4, hg.TotalWeight())
	assert.Equal(t, 1, hg.EdgeWeight(1))
	assert.Equal(t, []hypergraph.HypernodeID{1, 2}, hg.Pins(1))
}

func TestReadHypergraphRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"Empty", "", ""},
		{"BadHeader", "3\n", "line 1"},
		{"UnknownFormat", "1 2 7\n1 2\n", "line 1"},
		{"PinOutOfRange", "1 2\n1 3\n", "line 2"},
		{"ZeroPin", "1 2\n0 1\n", "line 2"},
		{"DuplicatePin", "2 3\n1 2\n% c\n3 3\n", "line 4"},
		{"NotANumber", "1 2\n1 x\n", "line 2"},
		{"MissingEdges", "3 3\n1 2\n", ""},
		{"MissingNodeWeights", "1 2 10\n1 2\n4\n", ""},
		{"ZeroEdgeWeight", "1 2 1\n0 1 2\n", "line 2"},
		{"WeightOnlyLine", "1 2 1\n3\n", "line 2"},
		{"TrailingContent", "1 2\n1 2\n2 1\n", "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHypergraph(strings.NewReader(tt.input), 2)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedInput))
			if tt.line != "" {
				assert.Contains(t, err.Error(), tt.line)
			}
		})
	}
}

func TestWriteHypergraphCompactsIDs(t *testing.T) {
	hg, err := ReadHypergraph(strings.NewReader(weighted), 2)
	require.NoError(t, err)
	hg.Contract(0, 2)
	hg.RemoveEdge(0)

	var buf bytes.Buffer
	mapping, err := WriteHypergraph(&buf, hg)
	require.NoError(t, err)
	assert.Equal(t, []hypergraph.HypernodeID{0, 1, 3, 4, 5, 6}, mapping)

	coarse, err := ReadHypergraph(&buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, coarse.CurrentNumNodes())
	assert.Equal(t, 3, coarse.CurrentNumEdges())
	assert.Equal(t, 6, coarse.NodeWeight(0))
	assert.Equal(t, hg.TotalWeight(), coarse.TotalWeight())
}

func TestPartitionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.part.3")
	parts := []hypergraph.PartitionID{0, 2, 1, 1, 0}
	require.NoError(t, WritePartitionFile(path, parts))

	got, err := ReadPartitionFile(path, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, parts, got)

	_, err = ReadPartitionFile(path, 6, 3)
	assert.True(t, errors.Is(err, ErrMalformedInput))
	_, err = ReadPartitionFile(path, 4, 3)
	assert.True(t, errors.Is(err, ErrMalformedInput))
	_, err = ReadPartitionFile(path, 5, 2)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteJSON(path, map[string]int{"cut": 3}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cut": 3}`, string(data))
}
