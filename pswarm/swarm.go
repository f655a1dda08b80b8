package pswarm

import (
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"sync"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
)

// These params are calculated using a constriction factor originally
// described in:
//
//	Clerc and M.  “The swarm and the queen: towards a deterministic and
//	adaptive particle swarm optimization” Proc. 1999 Congress on
//	Evolutionary Computation, pp. 1951-1957
//
// The cognition and social parameters correspond to c1 and c2 values of
// 2.05 that have been multiplied by their constriction coefficient - i.e.
// DefaultSocial = Constriction(2.05, 2.05)*2.05.  DefaultInertia is set
// equal to the constriction coefficient.
const (
	DefaultCognition = 1.496179765663133
	DefaultSocial    = 1.496179765663133
	DefaultInertia   = 0.7298437881283576
)

// Constriction calculates the constriction coefficient for the given c1
// and c2 of the particle velocity equation.  c1+c2 should usually be
// greater than (but close to) 4.
func Constriction(c1, c2 float64) float64 {
	phi := c1 + c2
	return 2 / math.Abs(2-phi-math.Sqrt(phi*phi-4*phi))
}

// Option configures a Swarm at construction.
type Option func(*Swarm)

// Seed fixes the random source used for velocity updates, making runs
// reproducible.  Each particle derives its own child stream from this
// seed and its id, so generations can be evaluated in parallel without
// perturbing the draw order.
func Seed(seed int64) Option {
	return func(s *Swarm) { s.seed = seed }
}

// LearnFactors overrides the cognition (personal) and social (global)
// acceleration coefficients.
func LearnFactors(cognition, social float64) Option {
	return func(s *Swarm) {
		s.cognition = cognition
		s.social = social
	}
}

// FixedInertia uses a constant velocity inertia.
func FixedInertia(v float64) Option {
	return func(s *Swarm) {
		s.inertiaFn = func(gen int) float64 { return v }
	}
}

// LinInertia varies the inertia linearly from start (high) to end (low)
// over maxgen generations.  Common values are start = 0.9 and end = 0.4 -
// for details see:
//
//	Eberhart, R.C.; Yuhui Shi, "Particle swarm optimization: developments,
//	applications and resources," Evolutionary Computation, 2001.
//	Proceedings of the 2001 Congress on, vol.1, pp.81-86 doi:
//	10.1109/CEC.2001.934374
func LinInertia(start, end float64, maxgen int) Option {
	return func(s *Swarm) {
		s.inertiaFn = func(gen int) float64 {
			return start - (start-end)*float64(gen)/float64(maxgen)
		}
	}
}

// Vmax sets the per-dimension particle speed limit.
func Vmax(vmax []float64) Option {
	return func(s *Swarm) { copy(s.vmax, vmax) }
}

// VmaxAll sets a single speed limit for every dimension.
func VmaxAll(vmax float64) Option {
	return func(s *Swarm) {
		for i := range s.vmax {
			s.vmax[i] = vmax
		}
	}
}

// VmaxBounds sets the speed limit per dimension equal to the bounded
// range of the initial sampling box, the rule of thumb from Eberhart and
// Shi (2001).
func VmaxBounds(low, up []float64) Option {
	return func(s *Swarm) {
		for i := range s.vmax {
			s.vmax[i] = up[i] - low[i]
		}
	}
}

// DB enables per-generation recording of particle and best state into the
// given database (see db.go for the schema).
func DB(db *sql.DB) Option {
	return func(s *Swarm) { s.db = db }
}

// Serial disables parallel particle evaluation.  Results are identical
// either way; this exists for profiling and debugging.
func Serial() Option {
	return func(s *Swarm) { s.serial = true }
}

// Swarm owns the ordered particle population and the generational PSO
// update.  Construct with New, add particles, call Init once, then Evolve
// once per generation.
type Swarm struct {
	pop []*Particle
	src registration.PointCloud
	tgt *registration.TargetIndex
	prm registration.Params

	cognition float64
	social    float64
	inertiaFn func(gen int) float64
	vmax      []float64
	seed      int64
	serial    bool

	best     registration.Transform
	bestCost float64
	gen      int
	history  []float64
	inited   bool

	db *sql.DB
}

// New builds an empty swarm bound to the shared source and target clouds.
// Both clouds must be non-empty and prm must validate; the target index is
// built here, once, and shared read-only by every particle.
func New(src, tgt registration.PointCloud, prm registration.Params, opts ...Option) (*Swarm, error) {
	if err := prm.Validate(); err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("source cloud: %w", registration.ErrEmptyCloud)
	}
	ix, err := registration.NewTargetIndex(tgt)
	if err != nil {
		return nil, fmt.Errorf("target cloud: %w", err)
	}

	s := &Swarm{
		src:       src,
		tgt:       ix,
		prm:       prm,
		cognition: DefaultCognition,
		social:    DefaultSocial,
		inertiaFn: func(gen int) float64 { return DefaultInertia },
		vmax:      make([]float64, registration.PoseDims),
		bestCost:  math.Inf(1),
		seed:      1,
	}
	for i := range s.vmax {
		s.vmax[i] = math.Inf(1)
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initdb(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddParticle appends a particle at the given starting pose with the given
// initial velocity (length PoseDims).  Ids are assigned in insertion
// order.  Calling AddParticle after Init is a programmer error and panics.
func (s *Swarm) AddParticle(start registration.Transform, vel []float64) *Particle {
	if s.inited {
		panic("pswarm: AddParticle called after Init")
	}
	if len(vel) != registration.PoseDims {
		panic(fmt.Sprintf("pswarm: velocity has length %v, want %v", len(vel), registration.PoseDims))
	}
	p := &Particle{
		Id:       len(s.pop),
		Pose:     start,
		Vel:      append([]float64{}, vel...),
		BestCost: math.Inf(1),
		src:      s.src,
		tgt:      s.tgt,
		prm:      s.prm,
		rng:      rand.New(rand.NewSource(s.seed + 0x9e3779b9*int64(len(s.pop)+1))),
	}
	s.pop = append(s.pop, p)
	return p
}

// Init runs the first evaluation of every particle, seeds each personal
// best from it and establishes the initial global best.  The population is
// fixed from here on.
func (s *Swarm) Init() error {
	if s.inited {
		panic("pswarm: Init called twice")
	}
	if len(s.pop) == 0 {
		return fmt.Errorf("%w: swarm has no particles", registration.ErrInvalidConfig)
	}

	s.each(func(p *Particle) {
		p.Evaluate()
		p.BestCost = p.Cost
		p.Best = p.Pose
	})
	s.inited = true
	s.reduceBest()
	return s.record()
}

// Evolve runs one generation: every particle updates its velocity against
// the previous generation's global best, moves, re-evaluates and updates
// its personal best; only after the whole population has finished is the
// global best recomputed.  Particles are independent within a generation,
// so the map runs in parallel with a barrier before the reduce.
func (s *Swarm) Evolve() error {
	if !s.inited {
		panic("pswarm: Evolve called before Init")
	}

	gbest := s.best // fixed snapshot for the whole generation
	inertia := s.inertiaFn(s.gen)
	s.each(func(p *Particle) {
		p.Move(gbest, s.vmax, inertia, s.social, s.cognition)
		p.Evaluate()
		p.update()
	})

	s.gen++
	s.reduceBest()
	s.history = append(s.history, s.bestCost)
	return s.record()
}

// each applies fn to every particle, in parallel unless Serial was set.
func (s *Swarm) each(fn func(*Particle)) {
	if s.serial {
		for _, p := range s.pop {
			fn(p)
		}
		return
	}
	var wg sync.WaitGroup
	for _, p := range s.pop {
		wg.Add(1)
		go func(p *Particle) {
			defer wg.Done()
			fn(p)
		}(p)
	}
	wg.Wait()
}

// reduceBest scans the population in insertion order so that equal
// personal bests resolve to the lowest particle id.
func (s *Swarm) reduceBest() {
	for _, p := range s.pop {
		if p.BestCost < s.bestCost {
			s.bestCost = p.BestCost
			s.best = p.Best
		}
	}
}

// Best returns a copy of the global-best transform.
func (s *Swarm) Best() registration.Transform { return s.best }

// BestCost returns the global-best cost.
func (s *Swarm) BestCost() float64 { return s.bestCost }

// Generation returns the number of completed Evolve calls.
func (s *Swarm) Generation() int { return s.gen }

// Len returns the population size.
func (s *Swarm) Len() int { return len(s.pop) }

// History returns a copy of the per-generation global-best costs.
func (s *Swarm) History() []float64 {
	return append([]float64{}, s.history...)
}
