package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/user/framegrab/pkg/decodecursor"
	"github.com/user/framegrab/pkg/locator"
	"github.com/user/framegrab/pkg/ports"
)

func TestMetrics_Completed(t *testing.T) {
	m := New()

	m.Completed(locator.Result{
		State:       locator.StateMatched,
		Approximate: true,
		Duration:    120 * time.Millisecond,
		Stats:       decodecursor.Stats{PacketsRead: 18, FramesDecoded: 16},
		Images: []ports.ExportedImage{
			{Format: ports.FormatPNG, Size: 1000},
			{Format: ports.FormatJPEG, Size: 300},
		},
	})
	m.Completed(locator.Result{
		State: locator.StateFailed,
		Kind:  ports.KindOutOfRange,
		Err:   errors.New("frame 99"),
	})

	if got := testutil.ToFloat64(m.requests.WithLabelValues("matched", "")); got != 1 {
		t.Errorf("expected 1 matched request, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("failed", "out_of_range")); got != 1 {
		t.Errorf("expected 1 out_of_range failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.framesDecoded); got != 16 {
		t.Errorf("expected 16 decoded frames, got %v", got)
	}
	if got := testutil.ToFloat64(m.approximate); got != 1 {
		t.Errorf("expected 1 approximate match, got %v", got)
	}
	if got := testutil.ToFloat64(m.exportedBytes.WithLabelValues("jpeg")); got != 300 {
		t.Errorf("expected 300 jpeg bytes, got %v", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("expected one duration series, got %d", got)
	}
}

func TestMetrics_Transition(t *testing.T) {
	m := New()
	m.Transition(locator.StateIdle, locator.StatePlanning)
	m.Transition(locator.StatePlanning, locator.StateFailed)
	m.Transition(locator.StateFailed, locator.StateIdle)

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected 1 transition to failed, got %v", got)
	}
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := New()
	m.Transition(locator.StateIdle, locator.StatePlanning)

	path := filepath.Join(t.TempDir(), "framegrab.prom")
	if err := m.WriteToTextfile(path); err != nil {
		t.Fatalf("WriteToTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `framegrab_locator_transitions_total{to="planning"} 1`) {
		t.Errorf("unexpected textfile:\n%s", data)
	}
}
