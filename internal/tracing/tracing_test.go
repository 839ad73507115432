package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNilSpanIsSafe(t *testing.T) {
	var sp *Span
	sp.SetInt("tick", 1).WithAttributes(map[string]string{"k": "v"})
	sp.Event("grant", map[string]int{"pid": 1})
	EndSpan(sp, errors.New("ignored"))
}

func TestSpansExported(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	if err := InitWithExporter("schedsim", "test", exporter); err != nil {
		t.Fatalf("InitWithExporter: %v", err)
	}
	t.Cleanup(func() { Shutdown(context.Background()) })

	ctx, parent := StartSpan(context.Background(), "simulation.run", "INTERNAL")
	parent.WithAttributes(map[string]string{"policy": "pip"}).SetInt("ticks", 12)
	_, child := StartSpan(ctx, "simulation.tick", "")
	child.Event("resource.grant", map[string]int{"pid": 1, "resource": 0})
	EndSpan(child, nil)
	EndSpan(parent, errors.New("protocol violation"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(spans))
	}
	tick, run := spans[0], spans[1]
	if run.Name != "simulation.run" || tick.Name != "simulation.tick" {
		t.Fatalf("span names = %q, %q", run.Name, tick.Name)
	}
	if tick.Parent.SpanID() != run.SpanContext.SpanID() {
		t.Error("tick span is not a child of the run span")
	}
	if run.Status.Code != codes.Error || tick.Status.Code != codes.Ok {
		t.Errorf("statuses = %v, %v", run.Status.Code, tick.Status.Code)
	}
	if len(tick.Events) != 1 || tick.Events[0].Name != "resource.grant" {
		t.Errorf("tick events = %+v", tick.Events)
	}
}

func TestInitAfterInstallLeavesFileAlone(t *testing.T) {
	if err := InitWithExporter("schedsim", "test", tracetest.NewInMemoryExporter()); err != nil {
		t.Fatalf("InitWithExporter: %v", err)
	}
	kept := output

	path := filepath.Join(t.TempDir(), "spans.json")
	if err := Init("schedsim", "test", path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second Init touched %s: %v", path, err)
	}
	if output != kept {
		t.Error("second Init replaced the trace output")
	}
}
