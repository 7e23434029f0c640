package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// TestTranscriptGolden pins the simulated run of the scripted sequence to
// a golden file. Any change to entry ordering, position assignment, or
// decider behavior shows up as a transcript diff.
func TestTranscriptGolden(t *testing.T) {
	f := (&SimBackend{Seed: 7}).Open(t)
	defer f.Close()

	g := goldie.New(t)
	g.Assert(t, "transcript", Transcript(t, f))
}

// TestTranscriptParity runs the same script against the simulated and the
// live networked backend and requires byte-identical observed logs.
func TestTranscriptParity(t *testing.T) {
	sim := (&SimBackend{Seed: 7}).Open(t)
	defer sim.Close()
	live := (&LiveBackend{}).Open(t)
	defer live.Close()

	require.Equal(t, string(Transcript(t, sim)), string(Transcript(t, live)))
}

// TestSimDeterminism: identical seed, identical stimuli, byte-identical
// observed run.
func TestSimDeterminism(t *testing.T) {
	a := (&SimBackend{Seed: 1234}).Open(t)
	defer a.Close()
	b := (&SimBackend{Seed: 1234}).Open(t)
	defer b.Close()

	require.Equal(t, string(Transcript(t, a)), string(Transcript(t, b)))
}
