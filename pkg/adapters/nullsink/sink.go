// Package nullsink provides a no-op frame sink implementation.
package nullsink

import (
	"context"

	"github.com/user/framegrab/pkg/ports"
)

// Sink is a no-op implementation of ports.FrameSink.
// It discards all images; useful for timing a locate run.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Put does nothing.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	return nil
}

// Remove does nothing.
func (s *Sink) Remove(ctx context.Context, name string) error {
	return nil
}

// Location reports that name was discarded.
func (s *Sink) Location(name string) string {
	return "discard:" + name
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
