package evaluation

import (
	"fmt"
	"testing"
	"time"

	"ddos-reassembler/internal/fingerprint"
	"ddos-reassembler/internal/reassembler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vector(source string, ttl int, packets float64) fingerprint.AttackVector {
	attack := true
	return fingerprint.AttackVector{
		Protocol:           "UDP",
		SourceIPs:          []string{source},
		TTLBySource:        map[string][]int{source: {ttl}},
		TimeStart:          fingerprint.Timestamp{Time: time.Date(2023, 5, 4, 10, 0, 0, 0, time.UTC)},
		DurationSeconds:    120,
		NrPackets:          packets,
		NrPacketsBySource:  map[string]float64{source: packets},
		DetectionThreshold: 0.9,
		IsAttack:           &attack,
	}
}

func scenario(relays int) []fingerprint.Fingerprint {
	fps := []fingerprint.Fingerprint{{
		Location:      "10.0.0.1",
		Target:        "10.0.0.1",
		AttackVectors: []fingerprint.AttackVector{vector("192.0.2.1", 60, 1000)},
	}}
	for i := 0; i < relays; i++ {
		fps = append(fps, fingerprint.Fingerprint{
			Location:      fmt.Sprintf("10.0.1.%d", i+1),
			Target:        "10.0.0.1",
			AttackVectors: []fingerprint.AttackVector{vector("192.0.2.1", 62, 100)},
		})
	}
	return fps
}

func TestDefaultFractions(t *testing.T) {
	fractions := DefaultFractions()
	require.Len(t, fractions, 10)
	assert.Equal(t, 0.0, fractions[0])
	assert.Equal(t, 0.3, fractions[3])
	assert.Equal(t, 0.9, fractions[9])
}

func TestDropSweep(t *testing.T) {
	fps := scenario(10)
	truth := Truth{Target: "10.0.0.1", Sources: []string{"10.5.0.1"}}

	results, err := DropSweep(fps, reassembler.DefaultOptions(), DefaultFractions(), 7, truth, 3)
	require.NoError(t, err)
	require.Len(t, results, 10)

	for i, res := range results {
		assert.Equal(t, i, res.DroppedKeys, "fraction %v", res.Fraction)
		assert.Equal(t, 11-i, res.NrFingerprints)
		assert.Equal(t, 10-i, res.Estimated)
		assert.Equal(t, 0, res.Discarded)
		require.NotNil(t, res.GroundTruth)
		assert.Equal(t, 10-i, *res.GroundTruth)
		require.NotNil(t, res.TargetMatch)
		assert.True(t, *res.TargetMatch)
	}
}

func TestDropSweepIsReproducible(t *testing.T) {
	fps := scenario(6)
	a, err := DropSweep(fps, reassembler.DefaultOptions(), []float64{0.5}, 1, Truth{}, 1)
	require.NoError(t, err)
	b, err := DropSweep(fps, reassembler.DefaultOptions(), []float64{0.5}, 1, Truth{}, 4)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Nil(t, a[0].GroundTruth)
}

func TestDropSweepRejectsBadFraction(t *testing.T) {
	_, err := DropSweep(scenario(2), reassembler.DefaultOptions(), []float64{0.2, 1.2}, 1, Truth{}, 2)
	require.ErrorIs(t, err, reassembler.ErrInvalidDropFraction)
}

func TestDiscardedRelative(t *testing.T) {
	assert.Equal(t, 0.0, DropResult{}.DiscardedRelative())
	assert.Equal(t, 0.25, DropResult{Estimated: 3, Discarded: 1}.DiscardedRelative())
}
