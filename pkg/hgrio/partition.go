package hgrio

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// ReadPartition reads exactly numNodes block ids in [0,k), one per line.
func ReadPartition(r io.Reader, numNodes, k int) ([]hypergraph.PartitionID, error) {
	lr := newLineReader(r)
	parts := make([]hypergraph.PartitionID, 0, numNodes)
	for {
		fields, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if len(parts) == numNodes {
			return nil, lr.malformed("more than %d block ids", numNodes)
		}
		if len(fields) != 1 {
			return nil, lr.malformed("expected one block id, got %d fields", len(fields))
		}
		p, err := atoi(lr, fields[0], "block id")
		if err != nil {
			return nil, err
		}
		if p < 0 || p >= k {
			return nil, lr.malformed("block id %d outside [0,%d)", p, k)
		}
		parts = append(parts, p)
	}
	if len(parts) != numNodes {
		return nil, errors.Wrapf(ErrMalformedInput, "expected %d block ids, found %d", numNodes, len(parts))
	}
	return parts, nil
}

func ReadPartitionFile(path string, numNodes, k int) ([]hypergraph.PartitionID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open partition %s", path)
	}
	defer f.Close()
	parts, err := ReadPartition(f, numNodes, k)
	return parts, errors.Wrapf(err, "partition %s", path)
}

// WritePartition writes one block id per line.
func WritePartition(w io.Writer, parts []hypergraph.PartitionID) error {
	bw := bufio.NewWriter(w)
	for _, p := range parts {
		bw.WriteString(strconv.Itoa(p))
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "write partition")
}

func WritePartitionFile(path string, parts []hypergraph.PartitionID) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	err = WritePartition(f, parts)
	if cerr := f.Close(); err == nil {
		err = errors.Wrapf(cerr, "close %s", path)
	}
	return err
}

// WriteJSON stores v as indented JSON, used for run summaries.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}
