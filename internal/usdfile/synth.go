package usdfile

import (
	"math"
)

// SynthOptions describes a synthetic log used for demos and tests
type SynthOptions struct {
	Version   uint16 // Format version, Version2 when zero
	Records   int    // Number of sample slots before dropping
	Start     uint64 // Timestamp of the first slot
	Step      uint64 // Spacing between slots
	DropEvery int    // Drop every Nth slot after the first two (0 keeps all)
}

// Synthesize builds a log with one "fixedFrequency" event type carrying
// accelerometer and height readings, and an unused "controller" type
func Synthesize(opts SynthOptions) *File {
	if opts.Version == 0 {
		opts.Version = Version2
	}
	if opts.Step == 0 {
		opts.Step = 10
	}

	f := &File{
		Version: opts.Version,
		Types: []EventType{
			{ID: 0, Name: "fixedFrequency", Format: "fffH", Vars: []string{"acc.x", "acc.y", "acc.z", "range.zrange"}},
			{ID: 1, Name: "controller", Format: "ff", Vars: []string{"ctrltarget.roll", "ctrltarget.pitch"}},
		},
	}

	for i := 0; i < opts.Records; i++ {
		if opts.DropEvery > 0 && i > 1 && i%opts.DropEvery == 0 {
			continue
		}
		phase := float64(i) / 20
		f.Records = append(f.Records, Record{
			EventID:   0,
			Timestamp: opts.Start + uint64(i)*opts.Step,
			Values: []float64{
				float64(float32(0.05 * math.Sin(phase))),
				float64(float32(0.05 * math.Cos(phase))),
				float64(float32(1 + 0.01*math.Sin(3*phase))),
				float64(300 + i%50),
			},
		})
	}
	return f
}
