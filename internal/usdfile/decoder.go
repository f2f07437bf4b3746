package usdfile

import (
	"errors"
	"fmt"
	"log/slog"

	"usdlog/internal/table"
)

// Options controls how a log is flattened into a table
type Options struct {
	Event     string // Event type to extract; empty selects the first one with records
	StrictCRC bool   // Fail on CRC mismatch instead of logging a warning
}

// Decoder turns a log file into a single table of one event type
type Decoder struct {
	opts   Options
	logger *slog.Logger
}

// NewDecoder creates a decoder. A nil logger uses slog.Default().
func NewDecoder(opts Options, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{opts: opts, logger: logger}
}

// Decode reads path and returns the selected event type as a table whose
// first column is the record timestamp
func (d *Decoder) Decode(path string) (*table.Table, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !f.CRCValid {
		if d.opts.StrictCRC {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: stored 0x%08X", ErrCRCMismatch, f.CRC)}
		}
		d.logger.Warn("CRC does not match, data may be corrupt",
			slog.String("file", path),
			slog.String("stored_crc", fmt.Sprintf("0x%08X", f.CRC)))
	}

	d.logger.Debug("Decoded log",
		slog.String("file", path),
		slog.Int("version", int(f.Version)),
		slog.Int("event_types", len(f.Types)),
		slog.Int("records", len(f.Records)))

	tbl, err := f.Table(d.opts.Event)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = path
			return nil, de
		}
		return nil, &DecodeError{Path: path, Err: err}
	}
	return tbl, nil
}

// EventSummary describes the records of one event type
type EventSummary struct {
	EventType
	Records        int    `json:"records"`
	FirstTimestamp uint64 `json:"first_timestamp"`
	LastTimestamp  uint64 `json:"last_timestamp"`
}

// Summary returns one entry per declared event type in header order
func (f *File) Summary() []EventSummary {
	index := make(map[uint16]int, len(f.Types))
	summaries := make([]EventSummary, len(f.Types))
	for i, et := range f.Types {
		index[et.ID] = i
		summaries[i].EventType = et
	}

	for _, rec := range f.Records {
		i, ok := index[rec.EventID]
		if !ok {
			continue
		}
		s := &summaries[i]
		if s.Records == 0 {
			s.FirstTimestamp = rec.Timestamp
		}
		s.LastTimestamp = rec.Timestamp
		s.Records++
	}
	return summaries
}

// Table flattens the records of one event type. An empty name selects the
// first event type in header order that has at least one record. Event
// types without records cannot be selected.
func (f *File) Table(event string) (*table.Table, error) {
	var selected *EventSummary
	summaries := f.Summary()
	for i := range summaries {
		s := &summaries[i]
		if s.Records == 0 {
			continue
		}
		if event == "" || s.Name == event {
			selected = s
			break
		}
	}
	if selected == nil {
		if event == "" {
			return nil, fmt.Errorf("%w: log holds no records", ErrNoData)
		}
		return nil, fmt.Errorf("%w: %q", ErrNoData, event)
	}

	ticks := make([]float64, 0, selected.Records)
	columns := make([][]float64, len(selected.Vars))
	for i := range columns {
		columns[i] = make([]float64, 0, selected.Records)
	}
	for _, rec := range f.Records {
		if rec.EventID != selected.ID {
			continue
		}
		ticks = append(ticks, float64(rec.Timestamp))
		for i, v := range rec.Values {
			columns[i] = append(columns[i], v)
		}
	}

	tbl := table.New()
	if err := tbl.Add(table.TickColumn, ticks); err != nil {
		return nil, err
	}
	for i, name := range selected.Vars {
		if err := tbl.Add(name, columns[i]); err != nil {
			return nil, fmt.Errorf("event %s: %w", selected.Name, err)
		}
	}
	return tbl, nil
}
