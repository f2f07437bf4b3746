package usdfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Writer encodes logs in the on-card binary format
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// WriteFile encodes f and writes it to filename, compressing with zstd when
// the name ends in .zst
func (w *Writer) WriteFile(filename string, f *File) error {
	data, err := w.Encode(f)
	if err != nil {
		return err
	}

	if strings.HasSuffix(strings.ToLower(filename), ".zst") {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}
	return file.Close()
}

// Encode returns the binary representation of f including the CRC trailer
func (w *Writer) Encode(f *File) ([]byte, error) {
	if f.Version != Version1 && f.Version != Version2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}

	var buf bytes.Buffer
	buf.WriteByte(Magic)
	binary.Write(&buf, binary.LittleEndian, f.Version)
	binary.Write(&buf, binary.LittleEndian, uint16(len(f.Types)))

	types := make(map[uint16]EventType, len(f.Types))
	for _, et := range f.Types {
		if len(et.Format) != len(et.Vars) {
			return nil, fmt.Errorf("%w: %s declares %d fields for %d variables",
				ErrBadDefinition, et.Name, len(et.Format), len(et.Vars))
		}
		if _, err := et.PayloadSize(); err != nil {
			return nil, err
		}
		binary.Write(&buf, binary.LittleEndian, et.ID)
		buf.WriteString(et.definition())
		buf.WriteByte(0)
		types[et.ID] = et
	}

	for i, rec := range f.Records {
		et, ok := types[rec.EventID]
		if !ok {
			return nil, fmt.Errorf("record %d: %w: %d", i, ErrUnknownEvent, rec.EventID)
		}
		if len(rec.Values) != len(et.Vars) {
			return nil, fmt.Errorf("record %d: %s expects %d values, got %d", i, et.Name, len(et.Vars), len(rec.Values))
		}

		binary.Write(&buf, binary.LittleEndian, rec.EventID)
		if f.Version == Version1 {
			binary.Write(&buf, binary.LittleEndian, uint32(rec.Timestamp))
		} else {
			binary.Write(&buf, binary.LittleEndian, rec.Timestamp)
		}
		encodePayload(&buf, et.Format, rec.Values)
	}

	binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

func encodePayload(buf *bytes.Buffer, format string, values []float64) {
	for i := 0; i < len(format); i++ {
		v := values[i]
		switch format[i] {
		case 'b':
			buf.WriteByte(byte(int8(v)))
		case 'B':
			buf.WriteByte(uint8(v))
		case '?':
			if v != 0 {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		case 'h':
			binary.Write(buf, binary.LittleEndian, int16(v))
		case 'H':
			binary.Write(buf, binary.LittleEndian, uint16(v))
		case 'i':
			binary.Write(buf, binary.LittleEndian, int32(v))
		case 'I':
			binary.Write(buf, binary.LittleEndian, uint32(v))
		case 'f':
			binary.Write(buf, binary.LittleEndian, math.Float32bits(float32(v)))
		case 'q':
			binary.Write(buf, binary.LittleEndian, int64(v))
		case 'Q':
			binary.Write(buf, binary.LittleEndian, uint64(v))
		case 'd':
			binary.Write(buf, binary.LittleEndian, math.Float64bits(v))
		}
	}
}
