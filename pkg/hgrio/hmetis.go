// Package hgrio reads and writes hypergraphs in hMetis format, partition
// files and run summaries.
package hgrio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// ErrMalformedInput is returned for files that violate the expected format.
var ErrMalformedInput = errors.New("hgrio: malformed input")

const maxLineLength = 64 << 20

// lineReader yields non-empty, non-comment lines with their line numbers.
type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(r io.Reader) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &lineReader{scanner: s}
}

func (lr *lineReader) next() ([]string, bool, error) {
	for lr.scanner.Scan() {
		lr.line++
		text := strings.TrimSpace(lr.scanner.Text())
		if text == "" || strings.HasPrefix(text, "%") {
			continue
		}
		return strings.Fields(text), true, nil
	}
	return nil, false, errors.Wrap(lr.scanner.Err(), "read")
}

func (lr *lineReader) malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedInput, "line %d: %s", lr.line, fmt.Sprintf(format, args...))
}

func atoi(lr *lineReader, tok, what string) (int, error) {
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, lr.malformed("invalid %s %q", what, tok)
	}
	return v, nil
}

// ReadHypergraph parses an hMetis hypergraph: a header "E N [fmt]" followed
// by E hyperedge lines of 1-based pins and, for fmt 10 and 11, N node weight
// lines. fmt 1 and 11 prefix every hyperedge line with its weight. Lines
// starting with % are comments. The hypergraph is sized for k blocks.
func ReadHypergraph(r io.Reader, k int) (*hypergraph.Hypergraph, error) {
	lr := newLineReader(r)
	header, ok, err := lr.next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(ErrMalformedInput, "missing header")
	}
	if len(header) < 2 || len(header) > 3 {
		return nil, lr.malformed("header needs 2 or 3 fields, got %d", len(header))
	}
	numEdges, err := atoi(lr, header[0], "hyperedge count")
	if err != nil {
		return nil, err
	}
	numNodes, err := atoi(lr, header[1], "hypernode count")
	if err != nil {
		return nil, err
	}
	if numEdges < 0 || numNodes < 0 {
		return nil, lr.malformed("negative counts")
	}
	format := "0"
	if len(header) == 3 {
		format = header[2]
	}
	var edgeWeighted, nodeWeighted bool
	switch format {
	case "0":
	case "1":
		edgeWeighted = true
	case "10":
		nodeWeighted = true
	case "11":
		edgeWeighted, nodeWeighted = true, true
	default:
		return nil, lr.malformed("unknown format %q", format)
	}

	edges := make([][]hypergraph.HypernodeID, 0, numEdges)
	var edgeWeights []hypergraph.HyperedgeWeight
	seen := make([]int, numNodes)
	for e := 0; e < numEdges; e++ {
		fields, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrapf(ErrMalformedInput, "expected %d hyperedges, found %d", numEdges, e)
		}
		if edgeWeighted {
			w, err := atoi(lr, fields[0], "hyperedge weight")
			if err != nil {
				return nil, err
			}
			if w < 1 {
				return nil, lr.malformed("hyperedge weight %d must be positive", w)
			}
			edgeWeights = append(edgeWeights, w)
			fields = fields[1:]
		}
		if len(fields) == 0 {
			return nil, lr.malformed("hyperedge %d has no pins", e+1)
		}
		pins := make([]hypergraph.HypernodeID, 0, len(fields))
		for _, f := range fields {
			p, err := atoi(lr, f, "pin")
			if err != nil {
				return nil, err
			}
			if p < 1 || p > numNodes {
				return nil, lr.malformed("pin %d outside [1,%d]", p, numNodes)
			}
			if seen[p-1] == e+1 {
				return nil, lr.malformed("pin %d repeated in hyperedge %d", p, e+1)
			}
			seen[p-1] = e + 1
			pins = append(pins, p-1)
		}
		edges = append(edges, pins)
	}

	var nodeWeights []hypergraph.HypernodeWeight
	if nodeWeighted {
		nodeWeights = make([]hypergraph.HypernodeWeight, 0, numNodes)
		for u := 0; u < numNodes; u++ {
			fields, ok, err := lr.next()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Wrapf(ErrMalformedInput, "expected %d hypernode weights, found %d", numNodes, u)
			}
			if len(fields) != 1 {
				return nil, lr.malformed("hypernode weight line needs exactly one value")
			}
			w, err := atoi(lr, fields[0], "hypernode weight")
			if err != nil {
				return nil, err
			}
			if w < 1 {
				return nil, lr.malformed("hypernode weight %d must be positive", w)
			}
			nodeWeights = append(nodeWeights, w)
		}
	}
	if _, ok, err := lr.next(); err != nil {
		return nil, err
	} else if ok {
		return nil, lr.malformed("unexpected trailing content")
	}

	hg, err := hypergraph.New(numNodes, edges, edgeWeights, nodeWeights, k)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedInput, err.Error())
	}
	return hg, nil
}

// ReadHypergraphFile reads an hMetis file from disk.
func ReadHypergraphFile(path string, k int) (*hypergraph.Hypergraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open hypergraph %s", path)
	}
	defer f.Close()
	hg, err := ReadHypergraph(f, k)
	return hg, errors.Wrapf(err, "hypergraph %s", path)
}

// WriteHypergraph writes the current (possibly coarsened) hypergraph in
// hMetis format 11 with hypernodes renumbered densely. The returned slice
// maps the written ids (0-based) back to hypernode ids of hg.
func WriteHypergraph(w io.Writer, hg *hypergraph.Hypergraph) ([]hypergraph.HypernodeID, error) {
	nodes := hg.Nodes()
	compact := make(map[hypergraph.HypernodeID]int, len(nodes))
	for i, u := range nodes {
		compact[u] = i + 1
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d 11\n", hg.CurrentNumEdges(), len(nodes))
	for _, e := range hg.Edges() {
		bw.WriteString(strconv.Itoa(hg.EdgeWeight(e)))
		for _, p := range hg.Pins(e) {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(compact[p]))
		}
		bw.WriteByte('\n')
	}
	for _, u := range nodes {
		bw.WriteString(strconv.Itoa(hg.NodeWeight(u)))
		bw.WriteByte('\n')
	}
	return nodes, errors.Wrap(bw.Flush(), "write hypergraph")
}

// WriteHypergraphFile writes hg to path, see WriteHypergraph.
func WriteHypergraphFile(path string, hg *hypergraph.Hypergraph) ([]hypergraph.HypernodeID, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	mapping, err := WriteHypergraph(f, hg)
	if cerr := f.Close(); err == nil {
		err = errors.Wrapf(cerr, "close %s", path)
	}
	return mapping, err
}
