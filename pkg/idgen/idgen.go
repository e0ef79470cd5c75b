// Package idgen issues the string ids of requests and group conversations.
package idgen

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sony/sonyflake"
)

// epoch is fixed; changing it could reissue ids already stored
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator hands out unique, roughly time ordered ids
type Generator interface {
	NextID() (string, error)
}

// Sonyflake generates decimal ids from a sonyflake of one node
type Sonyflake struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflake creates a generator for nodeId; every server process needs its own node id
func NewSonyflake(nodeId uint16) (*Sonyflake, error) {
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: epoch,
		MachineID: func() (uint16, error) { return nodeId, nil },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sonyflake for node %d: %w", nodeId, err)
	}
	return &Sonyflake{sf: sf}, nil
}

// NextID returns the next id
func (g *Sonyflake) NextID() (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return strconv.FormatUint(id, 10), nil
}

var current atomic.Pointer[Generator]

// Init installs the process wide generator for nodeId
func Init(nodeId uint16) error {
	gen, err := NewSonyflake(nodeId)
	if err != nil {
		return err
	}
	Use(gen)
	return nil
}

// Use replaces the process wide generator
func Use(gen Generator) {
	current.Store(&gen)
}

// NextID draws from the process wide generator, falling back to node 1 when Init was never called
func NextID() (string, error) {
	if p := current.Load(); p != nil {
		return (*p).NextID()
	}
	gen, err := NewSonyflake(1)
	if err != nil {
		return "", err
	}
	var g Generator = gen
	if !current.CompareAndSwap(nil, &g) {
		return (*current.Load()).NextID()
	}
	return gen.NextID()
}
