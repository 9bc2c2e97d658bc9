package utils

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// MoveEvent is one line of the move log.
type MoveEvent struct {
	MoveNumber int    `json:"move"`
	Refiner    string `json:"refiner"`
	Node       int    `json:"node"`
	FromBlock  int    `json:"from_block"`
	ToBlock    int    `json:"to_block"`
	Gain       int    `json:"gain"`
	Objective  int    `json:"objective"`
	RolledBack bool   `json:"rolled_back,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// MoveTracker appends refinement moves as JSON lines. A nil tracker
// discards everything, so callers never need to check whether tracking is on.
type MoveTracker struct {
	file    *os.File
	encoder *json.Encoder
	moves   int
	err     error
}

func NewMoveTracker(filename string) (*MoveTracker, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "create move log %s", filename)
	}

	return &MoveTracker{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// LogMove records that node went from one block to another with the given
// gain, leaving the objective at objective.
func (mt *MoveTracker) LogMove(refiner string, node, from, to, gain, objective int) {
	mt.log(MoveEvent{Refiner: refiner, Node: node, FromBlock: from, ToBlock: to, Gain: gain, Objective: objective})
}

// LogRollback records that a move was undone at the end of a pass.
func (mt *MoveTracker) LogRollback(refiner string, node, from, to int) {
	mt.log(MoveEvent{Refiner: refiner, Node: node, FromBlock: from, ToBlock: to, RolledBack: true})
}

func (mt *MoveTracker) log(event MoveEvent) {
	if mt == nil {
		return
	}
	if mt.err != nil {
		return
	}
	mt.moves++
	event.MoveNumber = mt.moves
	event.Timestamp = time.Now().Unix()
	if err := mt.encoder.Encode(event); err != nil {
		mt.err = errors.Wrapf(err, "write move %d", mt.moves)
	}
}

// Moves returns how many events were written. After a write error it
// stops counting.
func (mt *MoveTracker) Moves() int {
	if mt == nil {
		return 0
	}
	return mt.moves
}

// Close closes the log and returns the first write error, if any.
func (mt *MoveTracker) Close() error {
	if mt == nil || mt.file == nil {
		return nil
	}
	closeErr := mt.file.Close()
	if mt.err != nil {
		return mt.err
	}
	return errors.Wrap(closeErr, "close move log")
}
