// Package pop generates initial particle populations for the swarm:
// uniformly sampled pose vectors inside a bounding box derived from the
// target cloud, and matching initial velocities.
package pop

import (
	"math"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
)

// Rng is the random source injected into the samplers so populations are
// reproducible.
type Rng interface {
	Float64() float64
}

// New samples n pose vectors uniformly inside the box [low, up].
func New(n int, low, up []float64, rng Rng) [][]float64 {
	if len(low) != len(up) {
		panic("pop: low and up vectors are not same length")
	}

	points := make([][]float64, n)
	for i := 0; i < n; i++ {
		pos := make([]float64, len(low))
		for j := range pos {
			pos[j] = low[j] + rng.Float64()*(up[j]-low[j])
		}
		points[i] = pos
	}
	return points
}

// Velocities samples n velocity vectors with each dimension uniform in
// [-vmax[j], vmax[j]].
func Velocities(n int, vmax []float64, rng Rng) [][]float64 {
	vels := make([][]float64, n)
	for i := 0; i < n; i++ {
		v := make([]float64, len(vmax))
		for j := range v {
			v[j] = vmax[j] * (1 - 2*rng.Float64())
		}
		vels[i] = v
	}
	return vels
}

// Bounds derives the sampling box for pose vectors from the target cloud:
// translations ranging over the cloud's bounding box expanded by half its
// diagonal on every side, and the three Euler angles over (-pi, pi].
func Bounds(target registration.PointCloud) (low, up []float64) {
	lo, hi := target.Bounds()
	dx := hi.X - lo.X
	dy := hi.Y - lo.Y
	dz := hi.Z - lo.Z
	pad := 0.5 * math.Sqrt(dx*dx+dy*dy+dz*dz)

	low = []float64{lo.X - pad, lo.Y - pad, lo.Z - pad, -math.Pi, -math.Pi, -math.Pi}
	up = []float64{hi.X + pad, hi.Y + pad, hi.Z + pad, math.Pi, math.Pi, math.Pi}
	return low, up
}

// Vmax returns the per-dimension speed limit implied by the sampling box.
// Eberhart et al. suggest (up-low)/2 - removing the divide by two seems to
// help the swarm avoid premature convergence in difficult problems.
func Vmax(low, up []float64) []float64 {
	vmax := make([]float64, len(low))
	for i := range vmax {
		vmax[i] = up[i] - low[i]
	}
	return vmax
}
