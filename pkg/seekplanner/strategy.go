package seekplanner

import (
	"github.com/user/framegrab/pkg/frameindex"
	"github.com/user/framegrab/pkg/ports"
)

// IndexStrategy plans against a container sample index.
type IndexStrategy struct {
	idx *frameindex.Index
}

// NewIndexStrategy creates an index-backed strategy.
func NewIndexStrategy(idx *frameindex.Index) *IndexStrategy {
	return &IndexStrategy{idx: idx}
}

// Mode returns ModeIndex.
func (s *IndexStrategy) Mode() Mode {
	return ModeIndex
}

// Plan resolves the ordinal's timestamp, then the nearest preceding keyframe.
func (s *IndexStrategy) Plan(req Request) (Plan, error) {
	if req.Frame < 0 {
		return Plan{}, outOfRange(req.Frame, "negative frame number")
	}

	target, err := s.idx.EntryAt(req.Frame)
	if err != nil {
		return Plan{}, pastEnd(req.Frame, req.Frame == s.idx.Len(), "%v", err)
	}

	return Plan{
		Ordinal:         target.Ordinal,
		TargetTimestamp: target.Timestamp,
		Seek:            s.idx.NearestKeyframeBefore(target.Timestamp),
	}, nil
}

// EstimateStrategy plans with frame-rate arithmetic.
type EstimateStrategy struct {
	stream ports.Stream
}

// NewEstimateStrategy creates an arithmetic strategy for a stream with a known frame rate.
func NewEstimateStrategy(stream ports.Stream) *EstimateStrategy {
	return &EstimateStrategy{stream: stream}
}

// Mode returns ModeEstimate.
func (s *EstimateStrategy) Mode() Mode {
	return ModeEstimate
}

// Plan estimates the target from the frame rate and time base. Without index entries the
// only safe anchor is the start of the stream, so the seek entry is ordinal 0 at
// timestamp 0 and the counter is exact from there on.
func (s *EstimateStrategy) Plan(req Request) (Plan, error) {
	if req.Frame < 0 {
		return Plan{}, outOfRange(req.Frame, "negative frame number")
	}
	if s.stream.EntryCount > 0 && req.Frame >= s.stream.EntryCount {
		return Plan{}, pastEnd(req.Frame, req.Frame == s.stream.EntryCount,
			"stream has %d frames", s.stream.EntryCount)
	}
	target := s.stream.FrameTimestamp(req.Frame)
	if s.stream.Duration > 0 && target >= s.stream.Duration {
		last := req.Frame == 0 || s.stream.FrameTimestamp(req.Frame-1) < s.stream.Duration
		return Plan{}, pastEnd(req.Frame, last,
			"estimated timestamp %d beyond duration %d", target, s.stream.Duration)
	}

	return Plan{
		Ordinal:         req.Frame,
		TargetTimestamp: target,
		Seek: frameindex.Entry{
			IndexEntry: ports.IndexEntry{Keyframe: true},
			Ordinal:    0,
		},
		Approximate: true,
	}, nil
}
