package audit

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/naracommerce/backend-crm/internal/obs"
)

type memorySink struct {
	entries []Entry
}

func (m *memorySink) Append(e Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestRecorderFillsRequestContext(t *testing.T) {
	sink := &memorySink{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &Recorder{
		Sink:    sink,
		Logger:  zerolog.Nop(),
		Enabled: true,
		Now:     func() time.Time { return now },
	}

	ctx := obs.WithCorrelationID(context.Background(), "corr-1")
	ctx = obs.WithClientMeta(ctx, &obs.Meta{IP: "10.0.0.1", UserAgent: "curl/8", ActorID: "user-9"})

	rec.Record(ctx, Entry{Operation: "calculate_price", Params: "product=p1"})

	if len(sink.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(sink.entries))
	}
	e := sink.entries[0]
	if e.CorrelationID != "corr-1" || e.ClientIP != "10.0.0.1" || e.UserAgent != "curl/8" || e.ActorID != "user-9" {
		t.Fatalf("context metadata not applied: %+v", e)
	}
	if !e.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %s, want %s", e.Timestamp, now)
	}
	if e.Status != StatusSuccess {
		t.Fatalf("status = %s, want success default", e.Status)
	}
}

func TestRecorderKeepsExplicitFields(t *testing.T) {
	sink := &memorySink{}
	rec := &Recorder{Sink: sink, Logger: zerolog.Nop(), Enabled: true}

	ctx := obs.WithCorrelationID(context.Background(), "from-context")
	rec.Record(ctx, Entry{CorrelationID: "explicit", Operation: "suggest_price", Status: StatusError, ErrorDetail: "boom"})

	if sink.entries[0].CorrelationID != "explicit" {
		t.Fatalf("explicit correlation id overwritten: %q", sink.entries[0].CorrelationID)
	}
	if sink.entries[0].Status != StatusError {
		t.Fatalf("status = %s, want error", sink.entries[0].Status)
	}
}

func TestRecorderDisabledAndNilAreSilent(t *testing.T) {
	sink := &memorySink{}
	disabled := &Recorder{Sink: sink, Logger: zerolog.Nop()}
	disabled.Record(context.Background(), Entry{Operation: "calculate_price"})
	if len(sink.entries) != 0 {
		t.Fatalf("disabled recorder wrote %d entries", len(sink.entries))
	}

	var nilRec *Recorder
	nilRec.Record(context.Background(), Entry{Operation: "calculate_price"})
}

func TestCSVSinkEscapesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	sink, err := NewCSVSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err = sink.Append(Entry{
		CorrelationID: "corr-1",
		Timestamp:     ts,
		Operation:     "calculate_price",
		UserAgent:     `Mozilla "quoted", with,commas` + "\nand a newline",
		Params:        "product=p1 qty=2",
		Duration:      1500 * time.Millisecond,
		Status:        StatusSuccess,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one record", len(rows))
	}
	if rows[0][0] != "correlation_id" {
		t.Fatalf("header = %v", rows[0])
	}
	record := rows[1]
	if record[5] != `Mozilla "quoted", with,commas`+"\nand a newline" {
		t.Fatalf("user agent not round-tripped: %q", record[5])
	}
	if record[8] != "1500" {
		t.Fatalf("duration = %q, want 1500", record[8])
	}
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")

	for i := 0; i < 2; i++ {
		sink, err := NewCSVSink(path)
		if err != nil {
			t.Fatalf("open sink: %v", err)
		}
		if err := sink.Append(Entry{Operation: "calculate_price", Status: StatusSuccess}); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want one header and two records", len(rows))
	}
}
