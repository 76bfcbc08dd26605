// Unit tests for the metrics collection
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"strings"
	"sync"
	"testing"
)

func TestLabels(t *testing.T) {
	l := Labels{"b": "2", "a": "1"}
	if got := l.Key(); got != "a=1,b=2" {
		t.Errorf("Key() = %q", got)
	}
	if got := l.String(); got != `{a="1",b="2"}` {
		t.Errorf("String() = %q", got)
	}
	if got := (Labels{}).String(); got != "" {
		t.Errorf("empty String() = %q", got)
	}
	if got := (Labels{"q": "a\"b\\c\nd"}).String(); got != `{q="a\"b\\c\nd"}` {
		t.Errorf("escaped String() = %q", got)
	}
}

func TestCounter(t *testing.T) {
	c := NewCounter("test_total", "A test counter")
	c.Inc(Labels{"kind": "a"})
	c.Add(Labels{"kind": "a"}, 4)
	c.Inc(Labels{"kind": "b"})

	if got := c.Get(Labels{"kind": "a"}); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := c.Get(Labels{"kind": "missing"}); got != 0 {
		t.Errorf("expected 0 for unknown labels, got %d", got)
	}

	var sb strings.Builder
	c.Write(&sb)
	want := "# HELP test_total A test counter\n" +
		"# TYPE test_total counter\n" +
		"test_total{kind=\"a\"} 5\n" +
		"test_total{kind=\"b\"} 1\n"
	if sb.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestCounterConcurrent(t *testing.T) {
	c := NewCounter("concurrent_total", "")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Inc(nil)
			}
		}()
	}
	wg.Wait()
	if got := c.Get(nil); got != 8000 {
		t.Errorf("expected 8000, got %d", got)
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge("test_gauge", "A test gauge")
	g.Set(nil, 1.5)
	g.Add(nil, 2)
	if got := g.Get(nil); got != 3.5 {
		t.Errorf("expected 3.5, got %v", got)
	}

	var sb strings.Builder
	g.Write(&sb)
	if !strings.Contains(sb.String(), "test_gauge 3.5\n") {
		t.Errorf("unexpected output:\n%s", sb.String())
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("test_hist", "A test histogram", []float64{10, 1})
	h.Observe(nil, 0.5)
	h.Observe(nil, 5)
	h.Observe(nil, 50)

	count, sum := h.Count(nil)
	if count != 3 || sum != 55.5 {
		t.Errorf("Count() = %d, %v", count, sum)
	}

	var sb strings.Builder
	h.Write(&sb)
	out := sb.String()
	for _, want := range []string{
		`test_hist_bucket{le="1"} 1`,
		`test_hist_bucket{le="10"} 2`,
		`test_hist_bucket{le="+Inf"} 3`,
		`test_hist_sum 55.5`,
		`test_hist_count 3`,
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestExponentialBuckets(t *testing.T) {
	got := ExponentialBuckets(1, 2, 4)
	want := []float64{1, 2, 4, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ExponentialBuckets = %v, want %v", got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewCounter("b_total", "b"))
	r.MustRegister(NewGauge("a_gauge", "a"))

	if err := r.Register(NewCounter("b_total", "dup")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if r.Get("a_gauge") == nil {
		t.Error("expected a_gauge to be registered")
	}

	out := r.Gather()
	if strings.Index(out, "b_total") > strings.Index(out, "a_gauge") {
		t.Errorf("expected registration order, got:\n%s", out)
	}
}

func TestRewriteMetrics(t *testing.T) {
	rm := NewRewriteMetrics()
	rm.RecordLine("opaque")
	rm.RecordLine("rewritten")
	rm.RecordLine("rewritten")
	rm.RecordMove(5, 0.25)
	rm.RecordMove(0.5, 0.025)
	rm.RecordError("GCODE_MALFORMED_TOKEN")

	if got := rm.LinesTotal.Get(Labels{"kind": "rewritten"}); got != 2 {
		t.Errorf("expected 2 rewritten lines, got %d", got)
	}
	if got := rm.ErrorsTotal.Get(Labels{"code": "GCODE_MALFORMED_TOKEN"}); got != 1 {
		t.Errorf("expected 1 error, got %d", got)
	}
	if got := rm.DistanceTotal.Get(nil); got != 5.5 {
		t.Errorf("expected distance 5.5, got %v", got)
	}

	out := rm.Gather()
	for _, name := range []string{
		"gcode_extrude_lines_total",
		"gcode_extrude_errors_total",
		"gcode_extrude_distance_mm",
		"gcode_extrude_extrusion_total",
		"gcode_extrude_move_distance_mm_count 2",
	} {
		if !strings.Contains(out, name) {
			t.Errorf("missing %s in:\n%s", name, out)
		}
	}
	if rm.Gather() != out {
		t.Error("Gather output should be stable")
	}
}
