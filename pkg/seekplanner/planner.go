// Package seekplanner turns a logical frame number into a target presentation
// timestamp and the keyframe to seek to before decoding.
//
// Two addressing strategies exist:
//   - Index: the container's sample index is authoritative. The target is the
//     timestamp of the requested ordinal and the seek point is the nearest
//     preceding keyframe.
//   - Estimate: for containers without a usable index the target is
//     frame * nominal frame duration. The result is flagged Approximate because
//     variable frame rate content can misalign with real timestamps.
package seekplanner

import (
	"errors"
	"fmt"

	"github.com/user/framegrab/pkg/frameindex"
	"github.com/user/framegrab/pkg/ports"
)

// ErrNoStrategy is returned when a stream has neither an index nor a frame rate.
var ErrNoStrategy = errors.New("seekplanner: stream has no index and no nominal frame rate")

// Mode selects the addressing strategy.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeIndex    Mode = "index"
	ModeEstimate Mode = "estimate"
)

// ParseMode parses a strategy name, defaulting to ModeAuto for an empty string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeIndex, ModeEstimate:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("seekplanner: unknown strategy %q", s)
	}
}

// Request identifies a frame by logical number.
type Request struct {
	Frame int
}

// Plan is the outcome of planning a request.
type Plan struct {
	// Ordinal is the resolved logical frame ordinal.
	Ordinal int
	// TargetTimestamp is the presentation timestamp to decode up to.
	TargetTimestamp int64
	// Seek is the entry the container is repositioned to. Its Ordinal seeds the
	// decode cursor's frame counter.
	Seek frameindex.Entry
	// Approximate is set when the target was estimated rather than read from an index.
	Approximate bool
}

// Strategy resolves requests into plans.
type Strategy interface {
	Plan(req Request) (Plan, error)
	Mode() Mode
}

// New selects a strategy by capability: the index strategy when the index has
// entries, otherwise the estimate strategy when the stream's frame rate is known.
// A forced mode is honoured when its capability is present.
func New(mode Mode, idx *frameindex.Index, stream ports.Stream) (Strategy, error) {
	hasIndex := idx != nil && idx.Len() > 0
	canEstimate := stream.FrameDuration() > 0

	switch mode {
	case ModeIndex:
		if !hasIndex {
			return nil, fmt.Errorf("seekplanner: stream %d has no index", stream.ID)
		}
		return NewIndexStrategy(idx), nil
	case ModeEstimate:
		if !canEstimate {
			return nil, ErrNoStrategy
		}
		return NewEstimateStrategy(stream), nil
	}

	if hasIndex {
		return NewIndexStrategy(idx), nil
	}
	if canEstimate {
		return NewEstimateStrategy(stream), nil
	}
	return nil, ErrNoStrategy
}

func outOfRange(frame int, format string, args ...interface{}) error {
	return ports.NewError(ports.KindOutOfRange, "plan", "frame %d: "+format, append([]interface{}{frame}, args...)...)
}

// pastEnd reports a frame at or after the end of the stream. The frame right
// after the last one is Exhausted, the stream simply has no such frame; frames
// further out are OutOfRange. Both kinds match with errors.Is either way.
func pastEnd(frame int, atEnd bool, format string, args ...interface{}) error {
	if atEnd {
		cause := ports.NewError(ports.KindOutOfRange, "", format, args...)
		return ports.WrapError(ports.KindExhausted, "plan", fmt.Errorf("frame %d: %w", frame, cause))
	}
	cause := ports.NewError(ports.KindExhausted, "", format, args...)
	return ports.WrapError(ports.KindOutOfRange, "plan", fmt.Errorf("frame %d: %w", frame, cause))
}
