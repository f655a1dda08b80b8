package pop

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
)

func TestNewInsideBounds(t *testing.T) {
	low := []float64{-1, -2, -3, -math.Pi, -math.Pi, -math.Pi}
	up := []float64{1, 0, 3, math.Pi, math.Pi, math.Pi}
	rng := rand.New(rand.NewSource(1))

	points := New(40, low, up, rng)
	require.Len(t, points, 40)
	for _, pos := range points {
		require.Len(t, pos, registration.PoseDims)
		for j := range pos {
			assert.GreaterOrEqual(t, pos[j], low[j])
			assert.LessOrEqual(t, pos[j], up[j])
		}
	}
}

func TestNewMismatchedBoundsPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(1, []float64{0}, []float64{1, 2}, rand.New(rand.NewSource(1)))
	})
}

func TestVelocitiesInsideLimits(t *testing.T) {
	vmax := []float64{1, 2, 3, 0.5, 0.5, 0.5}
	vels := Velocities(40, vmax, rand.New(rand.NewSource(2)))
	require.Len(t, vels, 40)
	for _, v := range vels {
		for j := range v {
			assert.LessOrEqual(t, math.Abs(v[j]), vmax[j])
		}
	}
}

func TestBoundsCoverTarget(t *testing.T) {
	target := registration.PointCloud{{X: -1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: 1}}
	low, up := Bounds(target)

	// the translation box is the cloud box padded by half its diagonal
	pad := 0.5 * math.Sqrt(12)
	assert.InDelta(t, -1-pad, low[0], 1e-12)
	assert.InDelta(t, 1+pad, up[0], 1e-12)

	// angles span a full turn
	for i := 3; i < registration.PoseDims; i++ {
		assert.Equal(t, -math.Pi, low[i])
		assert.Equal(t, math.Pi, up[i])
	}
}

func TestVmax(t *testing.T) {
	got := Vmax([]float64{0, -1}, []float64{2, 1})
	assert.Equal(t, []float64{2, 2}, got)
}
