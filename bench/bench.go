// Package bench provides synthetic registration scenarios with known
// ground-truth transforms, plus a harness for running a swarm against a
// scenario and measuring the recovered transform's error.
package bench

import (
	"math"
	"math/rand"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
	"github.com/liuxinren456852/probabilistic-point-clouds-registration/pop"
	"github.com/liuxinren456852/probabilistic-point-clouds-registration/pswarm"
)

// Scenario is a registration problem with a known answer: aligning Source
// onto Target should recover Truth.
type Scenario struct {
	Name   string
	Source registration.PointCloud
	Target registration.PointCloud
	Truth  registration.Transform
}

// Cloud generates n points uniformly distributed in a cube of the given
// side length centered at the origin.
func Cloud(n int, side float64, seed int64) registration.PointCloud {
	rng := rand.New(rand.NewSource(seed))
	c := make(registration.PointCloud, n)
	for i := range c {
		c[i] = registration.Point{
			X: side * (rng.Float64() - 0.5),
			Y: side * (rng.Float64() - 0.5),
			Z: side * (rng.Float64() - 0.5),
		}
	}
	return c
}

// Aligned returns a scenario whose source and target are the same cloud;
// the truth is the identity.
func Aligned(n int, seed int64) Scenario {
	c := Cloud(n, 2, seed)
	return Scenario{Name: "aligned", Source: c, Target: c, Truth: registration.Identity()}
}

// Displaced returns a scenario whose target is the source moved through
// the given truth transform.
func Displaced(n int, seed int64, truth registration.Transform) Scenario {
	c := Cloud(n, 2, seed)
	return Scenario{
		Name:   "displaced",
		Source: c,
		Target: c.Transformed(truth),
		Truth:  truth,
	}
}

// Run builds a swarm for the scenario with nparticles randomly sampled
// particles and runs it for up to ngen generations, stopping early once
// the global best has stopped improving for patience consecutive
// generations (patience <= 0 disables the early stop).  It returns the
// final swarm for inspection.
func Run(sc Scenario, prm registration.Params, nparticles, ngen, patience int, seed int64, opts ...pswarm.Option) (*pswarm.Swarm, error) {
	low, up := pop.Bounds(sc.Target)
	opts = append([]pswarm.Option{pswarm.Seed(seed), pswarm.VmaxBounds(low, up)}, opts...)
	s, err := pswarm.New(sc.Source, sc.Target, prm, opts...)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	poses := pop.New(nparticles, low, up, rng)
	vels := pop.Velocities(nparticles, pop.Vmax(low, up), rng)
	for i := range poses {
		s.AddParticle(registration.FromVector(poses[i]), vels[i])
	}

	if err := s.Init(); err != nil {
		return nil, err
	}
	stall := 0
	last := s.BestCost()
	for g := 0; g < ngen; g++ {
		if err := s.Evolve(); err != nil {
			return nil, err
		}
		if patience > 0 {
			if last-s.BestCost() < 1e-12 {
				stall++
				if stall >= patience {
					break
				}
			} else {
				stall = 0
			}
			last = s.BestCost()
		}
	}
	return s, nil
}

// RotationError returns the geodesic angle in degrees between the rotation
// components of a and b.
func RotationError(a, b registration.Transform) float64 {
	ra, rb := a.Rotation(), b.Rotation()
	// trace of ra^T * rb
	tr := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			tr += ra[3*j+i] * rb[3*j+i]
		}
	}
	cos := (tr - 1) / 2
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// TranslationError returns the Euclidean distance between the translation
// components of a and b.
func TranslationError(a, b registration.Transform) float64 {
	ta, tb := a.Translation(), b.Translation()
	dx := ta.X - tb.X
	dy := ta.Y - tb.Y
	dz := ta.Z - tb.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// RMSE returns the root mean square distance between same-index points of
// two equally sized clouds.
func RMSE(a, b registration.PointCloud) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := range a {
		dx := a[i].X - b[i].X
		dy := a[i].Y - b[i].Y
		dz := a[i].Z - b[i].Z
		sum += dx*dx + dy*dy + dz*dz
	}
	return math.Sqrt(sum / float64(len(a)))
}
