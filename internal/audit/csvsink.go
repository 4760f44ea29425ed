package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

var csvHeader = []string{
	"correlation_id", "timestamp", "operation", "actor_id", "client_ip",
	"user_agent", "params", "summary", "duration_ms", "status", "error_detail",
}

// CSVSink appends entries to a CSV file. encoding/csv handles the escaping of
// embedded delimiters, quotes and newlines; each append is flushed so the
// trail survives a crash.
type CSVSink struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewCSVSink opens (or creates) the audit file in append mode, writing the
// header when the file is empty.
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	sink := &CSVSink{file: file, w: csv.NewWriter(file)}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat audit file: %w", err)
	}
	if info.Size() == 0 {
		if err := sink.w.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write audit header: %w", err)
		}
		sink.w.Flush()
		if err := sink.w.Error(); err != nil {
			file.Close()
			return nil, fmt.Errorf("flush audit header: %w", err)
		}
	}
	return sink, nil
}

// Append writes one entry as a CSV record.
func (s *CSVSink) Append(e Entry) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record := []string{
		e.CorrelationID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Operation,
		e.ActorID,
		e.ClientIP,
		e.UserAgent,
		e.Params,
		e.Summary,
		strconv.FormatInt(e.Duration.Milliseconds(), 10),
		string(e.Status),
		e.ErrorDetail,
	}
	if err := s.w.Write(record); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush audit record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *CSVSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
