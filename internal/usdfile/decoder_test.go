package usdfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, f *File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log00")
	require.NoError(t, NewWriter().WriteFile(path, f))
	return path
}

func TestFileTableSelectsFirstEventWithData(t *testing.T) {
	f := &File{
		Version: Version2,
		Types: []EventType{
			{ID: 0, Name: "empty", Format: "f", Vars: []string{"unused"}},
			{ID: 1, Name: "imu", Format: "fh", Vars: []string{"gyro.x", "temp"}},
			{ID: 2, Name: "pose", Format: "f", Vars: []string{"z"}},
		},
		Records: []Record{
			{EventID: 2, Timestamp: 1, Values: []float64{0.1}},
			{EventID: 1, Timestamp: 10, Values: []float64{0.5, 20}},
			{EventID: 1, Timestamp: 20, Values: []float64{0.25, 21}},
		},
	}

	tbl, err := f.Table("")
	require.NoError(t, err)
	assert.Equal(t, []string{"tick", "gyro.x", "temp"}, tbl.Names())

	ticks, err := tbl.Ticks("")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, ticks)

	temp, ok := tbl.Column("temp")
	require.True(t, ok)
	assert.Equal(t, []float64{20, 21}, temp)

	pose, err := f.Table("pose")
	require.NoError(t, err)
	assert.Equal(t, 1, pose.Len())

	_, err = f.Table("empty")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = f.Table("missing")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSummary(t *testing.T) {
	f := Synthesize(SynthOptions{Records: 10, Start: 1000, Step: 5})
	summaries := f.Summary()
	require.Len(t, summaries, 2)

	assert.Equal(t, "fixedFrequency", summaries[0].Name)
	assert.Equal(t, 10, summaries[0].Records)
	assert.Equal(t, uint64(1000), summaries[0].FirstTimestamp)
	assert.Equal(t, uint64(1045), summaries[0].LastTimestamp)
	assert.Zero(t, summaries[1].Records)
}

func TestDecoderDecode(t *testing.T) {
	path := writeLog(t, Synthesize(SynthOptions{Records: 20, Step: 10, DropEvery: 4}))

	tbl, err := NewDecoder(Options{}, nil).Decode(path)
	require.NoError(t, err)

	// slots 4, 8, 12 and 16 are dropped
	assert.Equal(t, 16, tbl.Len())
	assert.Equal(t, []string{"tick", "acc.x", "acc.y", "acc.z", "range.zrange"}, tbl.Names())
}

func TestDecoderCRC(t *testing.T) {
	data, err := NewWriter().Encode(Synthesize(SynthOptions{Records: 5}))
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF

	path := filepath.Join(t.TempDir(), "corrupt")
	require.NoError(t, writeBytes(path, data))

	tbl, err := NewDecoder(Options{}, nil).Decode(path)
	require.NoError(t, err, "CRC mismatch is only a warning by default")
	assert.Equal(t, 5, tbl.Len())

	_, err = NewDecoder(Options{StrictCRC: true}, nil).Decode(path)
	assert.ErrorIs(t, err, ErrCRCMismatch)
}

func TestDecoderUnknownEvent(t *testing.T) {
	path := writeLog(t, Synthesize(SynthOptions{Records: 5}))

	_, err := NewDecoder(Options{Event: "controller"}, nil).Decode(path)
	require.ErrorIs(t, err, ErrNoData)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, path, de.Path)
}

func TestSynthesizeKeepsFirstTwoSlots(t *testing.T) {
	f := Synthesize(SynthOptions{Records: 6, Step: 3, DropEvery: 1})
	require.Len(t, f.Records, 2)
	assert.Equal(t, uint64(0), f.Records[0].Timestamp)
	assert.Equal(t, uint64(3), f.Records[1].Timestamp)
}

func writeBytes(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}
