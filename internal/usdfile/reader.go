package usdfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ReadFile loads and decodes a complete log file. Files ending in .zst are
// decompressed first.
func ReadFile(filename string) (*File, error) {
	data, err := readRaw(filename)
	if err != nil {
		return nil, &DecodeError{Path: filename, Err: err}
	}

	f, err := Parse(data)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = filename
			return nil, de
		}
		return nil, &DecodeError{Path: filename, Err: err}
	}
	return f, nil
}

func readRaw(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if !strings.HasSuffix(strings.ToLower(filename), ".zst") {
		return data, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return raw, nil
}

// Parse decodes a log held in memory. A CRC mismatch does not fail the
// parse; it is reported through File.CRCValid.
func Parse(data []byte) (*File, error) {
	if len(data) < headerSize+trailerSize {
		return nil, &DecodeError{Offset: 0, Err: fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))}
	}
	if data[0] != Magic {
		return nil, &DecodeError{Offset: 0, Err: fmt.Errorf("%w: 0x%02X", ErrBadMagic, data[0])}
	}

	end := len(data) - trailerSize
	f := &File{
		Version: binary.LittleEndian.Uint16(data[1:3]),
		CRC:     binary.LittleEndian.Uint32(data[end:]),
	}
	f.CRCValid = crc32.ChecksumIEEE(data[:end]) == f.CRC

	if f.Version != Version1 && f.Version != Version2 {
		return nil, &DecodeError{Offset: 1, Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)}
	}

	numTypes := int(binary.LittleEndian.Uint16(data[3:5]))
	idx := headerSize

	types := make(map[uint16]EventType, numTypes)
	sizes := make(map[uint16]int, numTypes)
	for i := 0; i < numTypes; i++ {
		et, next, err := parseDefinition(data[:end], idx)
		if err != nil {
			return nil, &DecodeError{Offset: idx, Err: err}
		}
		size, err := et.PayloadSize()
		if err != nil {
			return nil, &DecodeError{Offset: idx, Err: err}
		}
		f.Types = append(f.Types, et)
		types[et.ID] = et
		sizes[et.ID] = size
		idx = next
	}

	tsSize := 4
	if f.Version == Version2 {
		tsSize = 8
	}

	for idx < end {
		if idx+2+tsSize > end {
			return nil, &DecodeError{Offset: idx, Err: fmt.Errorf("%w: record header", ErrTruncated)}
		}

		rec := Record{EventID: binary.LittleEndian.Uint16(data[idx:])}
		if tsSize == 4 {
			rec.Timestamp = uint64(binary.LittleEndian.Uint32(data[idx+2:]))
		} else {
			rec.Timestamp = binary.LittleEndian.Uint64(data[idx+2:])
		}

		et, ok := types[rec.EventID]
		if !ok {
			return nil, &DecodeError{Offset: idx, Err: fmt.Errorf("%w: %d", ErrUnknownEvent, rec.EventID)}
		}
		idx += 2 + tsSize

		size := sizes[rec.EventID]
		if idx+size > end {
			return nil, &DecodeError{Offset: idx, Err: fmt.Errorf("%w: payload of %s", ErrTruncated, et.Name)}
		}
		rec.Values = decodePayload(et.Format, data[idx:idx+size])
		idx += size

		f.Records = append(f.Records, rec)
	}

	return f, nil
}

// parseDefinition reads "id name(fmt)var1,var2\0" starting at idx and
// returns the offset just past the terminator.
func parseDefinition(data []byte, idx int) (EventType, int, error) {
	if idx+2 > len(data) {
		return EventType{}, 0, fmt.Errorf("%w: event id", ErrTruncated)
	}
	et := EventType{ID: binary.LittleEndian.Uint16(data[idx:])}
	idx += 2

	term := bytes.IndexByte(data[idx:], 0)
	if term < 0 {
		return EventType{}, 0, fmt.Errorf("%w: missing terminator", ErrBadDefinition)
	}
	def := string(data[idx : idx+term])

	open := strings.IndexByte(def, '(')
	closing := strings.IndexByte(def, ')')
	if open <= 0 || closing < open {
		return EventType{}, 0, fmt.Errorf("%w: %q", ErrBadDefinition, def)
	}

	et.Name = def[:open]
	et.Format = def[open+1 : closing]
	if vars := def[closing+1:]; vars != "" {
		et.Vars = strings.Split(vars, ",")
	}
	if len(et.Vars) != len(et.Format) {
		return EventType{}, 0, fmt.Errorf("%w: %s declares %d fields for %d variables",
			ErrBadDefinition, et.Name, len(et.Format), len(et.Vars))
	}

	return et, idx + term + 1, nil
}

// decodePayload converts a packed payload to float64 values. The format
// must already be validated against fieldSizes.
func decodePayload(format string, payload []byte) []float64 {
	values := make([]float64, len(format))
	off := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch c {
		case 'b':
			values[i] = float64(int8(payload[off]))
		case 'B':
			values[i] = float64(payload[off])
		case '?':
			if payload[off] != 0 {
				values[i] = 1
			}
		case 'h':
			values[i] = float64(int16(binary.LittleEndian.Uint16(payload[off:])))
		case 'H':
			values[i] = float64(binary.LittleEndian.Uint16(payload[off:]))
		case 'i':
			values[i] = float64(int32(binary.LittleEndian.Uint32(payload[off:])))
		case 'I':
			values[i] = float64(binary.LittleEndian.Uint32(payload[off:]))
		case 'f':
			values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[off:])))
		case 'q':
			values[i] = float64(int64(binary.LittleEndian.Uint64(payload[off:])))
		case 'Q':
			values[i] = float64(binary.LittleEndian.Uint64(payload[off:]))
		case 'd':
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[off:]))
		}
		off += fieldSizes[c]
	}
	return values
}
