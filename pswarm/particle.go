// Package pswarm implements particle-swarm registration on top of the
// registration package: each particle is a candidate rigid transform that
// robustly polishes itself against the target cloud while the swarm
// searches the pose space globally.
package pswarm

import (
	"math"
	"math/rand"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
)

// Particle is one candidate transform with its search velocity and
// personal-best bookkeeping.  Particles share the source cloud, target
// index and params read-only and never reference each other.
type Particle struct {
	Id   int
	Pose registration.Transform
	Vel  []float64
	Cost float64

	Best     registration.Transform
	BestCost float64

	src registration.PointCloud
	tgt *registration.TargetIndex
	prm registration.Params
	rng *rand.Rand
}

// Evaluate computes the particle's robust cost at its current pose.  When
// the configuration enables inner refinement (NIter > 0) the particle
// additionally settles into its nearest local alignment: recompute
// correspondences, solve the weighted alignment in closed form, adopt the
// solution and re-cost, stopping after NIter rounds or once the cost drop
// has stayed below CostDropThresh for NCostDropIt consecutive rounds.  The
// refined pose overwrites the particle's position.
//
// A pose with no usable correspondences costs +Inf; the error is reported
// but the particle stays in the swarm.
func (p *Particle) Evaluate() error {
	_, cost, err := registration.Correspond(p.Pose, p.src, p.tgt, p.prm)
	if err != nil {
		p.Cost = math.Inf(1)
		return err
	}

	pose := p.Pose
	drops := 0
	for it := 0; it < p.prm.NIter; it++ {
		corrs, _, err := registration.Correspond(pose, p.src, p.tgt, p.prm)
		if err != nil {
			break
		}
		next, err := registration.SolveWeighted(corrs)
		if err != nil {
			break
		}
		ncost, err := registration.Cost(next, p.src, p.tgt, p.prm)
		if err != nil {
			break
		}
		pose = next
		if cost-ncost < p.prm.CostDropThresh {
			drops++
		} else {
			drops = 0
		}
		cost = ncost
		if drops >= p.prm.NCostDropIt {
			break
		}
	}

	p.Pose = pose
	p.Cost = cost
	return nil
}

// Move performs the canonical velocity and position update against the
// previous generation's global best.  r1 and r2 MUST be drawn inside the
// loop, uniquely for each dimension.  The position add runs through
// FromVector, which wraps the angle parameters back into (-pi, pi] so the
// rotation stays on the valid manifold.
func (p *Particle) Move(gbest registration.Transform, vmax []float64, inertia, social, cognition float64) {
	pos := p.Pose.Vector()
	for i := range p.Vel {
		r1 := p.rng.Float64()
		r2 := p.rng.Float64()
		p.Vel[i] = inertia*p.Vel[i] +
			cognition*r1*(p.Best.At(i)-pos[i]) +
			social*r2*(gbest.At(i)-pos[i])
		if math.Abs(p.Vel[i]) > vmax[i] {
			p.Vel[i] = math.Copysign(vmax[i], p.Vel[i])
		}
	}
	for i := range pos {
		pos[i] += p.Vel[i]
	}
	p.Pose = registration.FromVector(pos)
}

// update records the current pose as the personal best if it improved.
func (p *Particle) update() {
	if p.Cost < p.BestCost {
		p.BestCost = p.Cost
		p.Best = p.Pose
	}
}
