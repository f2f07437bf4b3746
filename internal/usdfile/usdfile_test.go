package usdfile

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, f *File) []byte {
	t.Helper()
	data, err := NewWriter().Encode(f)
	require.NoError(t, err)
	return data
}

func sampleFile(version uint16) *File {
	return &File{
		Version: version,
		Types: []EventType{
			{ID: 3, Name: "mixed", Format: "bBhHiIqQfd?", Vars: []string{"b", "B", "h", "H", "i", "I", "q", "Q", "f", "d", "ok"}},
			{ID: 7, Name: "pose", Format: "ff", Vars: []string{"x", "y"}},
		},
		Records: []Record{
			{EventID: 3, Timestamp: 100, Values: []float64{-5, 200, -300, 60000, -70000, 4000000000, -1 << 40, 1 << 50, 1.5, -2.25, 1}},
			{EventID: 7, Timestamp: 105, Values: []float64{0.5, -0.25}},
			{EventID: 3, Timestamp: 110, Values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 0}},
		},
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	for _, version := range []uint16{Version1, Version2} {
		in := sampleFile(version)
		out, err := Parse(encode(t, in))
		require.NoError(t, err)

		assert.Equal(t, version, out.Version)
		assert.True(t, out.CRCValid)
		assert.Equal(t, in.Types, out.Types)
		assert.Equal(t, in.Records, out.Records)
	}
}

func TestParseHeaderLayout(t *testing.T) {
	data := encode(t, &File{
		Version: Version2,
		Types:   []EventType{{ID: 1, Name: "e", Format: "B", Vars: []string{"v"}}},
		Records: []Record{{EventID: 1, Timestamp: 42, Values: []float64{9}}},
	})

	assert.Equal(t, Magic, data[0])
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[1:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[3:]))
	assert.Equal(t, "e(B)v\x00", string(data[7:13]))
	// id + u64 timestamp + one byte payload + crc
	assert.Len(t, data, 13+2+8+1+4)
	assert.Equal(t, crc32.ChecksumIEEE(data[:len(data)-4]), binary.LittleEndian.Uint32(data[len(data)-4:]))
}

func TestParseErrors(t *testing.T) {
	valid := encode(t, sampleFile(Version2))

	badMagic := append([]byte{}, valid...)
	badMagic[0] = 0xAA

	badVersion := append([]byte{}, valid...)
	binary.LittleEndian.PutUint16(badVersion[1:], 9)

	// chop the last payload byte but keep a trailer
	truncated := append(append([]byte{}, valid[:len(valid)-5]...), valid[len(valid)-4:]...)

	unknownEvent := encode(t, &File{
		Version: Version1,
		Types:   []EventType{{ID: 1, Name: "e", Format: "B", Vars: []string{"v"}}},
		Records: []Record{{EventID: 1, Timestamp: 1, Values: []float64{1}}},
	})
	// event id of the first record sits right after the definition
	binary.LittleEndian.PutUint16(unknownEvent[13:], 99)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"too short", []byte{Magic, 1}, ErrTruncated},
		{"bad magic", badMagic, ErrBadMagic},
		{"bad version", badVersion, ErrUnsupportedVersion},
		{"truncated payload", truncated, ErrTruncated},
		{"unknown event", unknownEvent, ErrUnknownEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var de *DecodeError
			assert.ErrorAs(t, err, &de)
		})
	}
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	build := func(def string) []byte {
		data := []byte{Magic, 1, 0, 1, 0, 0, 0}
		data = append(data, def...)
		data = append(data, 0, 0, 0, 0)
		return data
	}

	_, err := Parse(build("noparens\x00"))
	assert.ErrorIs(t, err, ErrBadDefinition)

	_, err = Parse(build("e(ff)x\x00"))
	assert.ErrorIs(t, err, ErrBadDefinition)

	_, err = Parse(build("e(z)x\x00"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Parse(build("e(f)x"))
	assert.ErrorIs(t, err, ErrBadDefinition)
}

func TestParseReportsCRCMismatch(t *testing.T) {
	data := encode(t, sampleFile(Version2))
	data[len(data)-1] ^= 0xFF

	f, err := Parse(data)
	require.NoError(t, err)
	assert.False(t, f.CRCValid)
}

func TestEncodeValidatesRecords(t *testing.T) {
	w := NewWriter()

	_, err := w.Encode(&File{Version: 3})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = w.Encode(&File{Version: Version2, Records: []Record{{EventID: 1}}})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = w.Encode(&File{
		Version: Version2,
		Types:   []EventType{{ID: 1, Name: "e", Format: "B", Vars: []string{"v"}}},
		Records: []Record{{EventID: 1, Values: []float64{1, 2}}},
	})
	assert.Error(t, err)
}

func TestReadFileCompressed(t *testing.T) {
	dir := t.TempDir()
	in := Synthesize(SynthOptions{Records: 30, Step: 2})

	for _, name := range []string{"log.bin", "log.bin.zst"} {
		path := filepath.Join(dir, name)
		require.NoError(t, NewWriter().WriteFile(path, in))

		out, err := ReadFile(path)
		require.NoError(t, err, name)
		assert.True(t, out.CRCValid)
		assert.Equal(t, in.Records, out.Records)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "log.bin.zst"))
	require.NoError(t, err)
	assert.NotEqual(t, Magic, raw[0], "compressed file must not start with the log magic")
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.bin"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Path, "absent.bin")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
