// Package usdfile reads and writes the binary event logs recorded by the
// micro-SD logging deck.
//
// A log starts with a one byte magic value, a format version and a table of
// event type definitions. Records follow until the last four bytes, which
// hold a CRC-32 of everything before them. All integers are little endian.
package usdfile

import (
	"errors"
	"fmt"
	"strings"
)

// Magic is the first byte of every log file
const Magic byte = 0xBC

// Supported format versions. Version 1 stores 32-bit timestamps,
// version 2 stores 64-bit timestamps.
const (
	Version1 uint16 = 1
	Version2 uint16 = 2
)

const (
	headerSize  = 5 // magic + version + event type count
	trailerSize = 4 // CRC-32
)

var (
	ErrBadMagic           = errors.New("bad magic byte")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTruncated          = errors.New("truncated data")
	ErrUnknownEvent       = errors.New("unknown event id")
	ErrUnknownFormat      = errors.New("unknown format character")
	ErrBadDefinition      = errors.New("malformed event definition")
	ErrCRCMismatch        = errors.New("CRC mismatch")
	ErrNoData             = errors.New("no records for event")
)

// DecodeError reports where and why a log could not be decoded
type DecodeError struct {
	Path   string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("decode %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EventType is one record layout declared in the file header
type EventType struct {
	ID     uint16   `json:"id"`
	Name   string   `json:"name"`
	Format string   `json:"format"` // one character per variable
	Vars   []string `json:"vars"`
}

// PayloadSize returns the number of bytes one record payload occupies
func (et EventType) PayloadSize() (int, error) {
	size := 0
	for i := 0; i < len(et.Format); i++ {
		c := et.Format[i]
		n, ok := fieldSizes[c]
		if !ok {
			return 0, fmt.Errorf("%w %q in event %s", ErrUnknownFormat, c, et.Name)
		}
		size += n
	}
	return size, nil
}

func (et EventType) definition() string {
	return fmt.Sprintf("%s(%s)%s", et.Name, et.Format, strings.Join(et.Vars, ","))
}

// Record is a single decoded event
type Record struct {
	EventID   uint16
	Timestamp uint64
	Values    []float64 // one per variable of the event type
}

// File is a fully decoded log
type File struct {
	Version  uint16
	Types    []EventType
	Records  []Record
	CRC      uint32 // CRC stored in the trailer
	CRCValid bool
}

// fieldSizes maps a format character to its encoded width
var fieldSizes = map[byte]int{
	'b': 1, // int8
	'B': 1, // uint8
	'?': 1, // bool
	'h': 2, // int16
	'H': 2, // uint16
	'i': 4, // int32
	'I': 4, // uint32
	'f': 4, // float32
	'q': 8, // int64
	'Q': 8, // uint64
	'd': 8, // float64
}
