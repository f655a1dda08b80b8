package pswarm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Report is an observational snapshot of the swarm.  Producing one has no
// effect on optimization state.
type Report struct {
	Generation int
	BestCost   float64
	MeanCost   float64
	StdCost    float64
	Particles  int
	// Unmatched counts particles whose latest evaluation found no usable
	// correspondences (cost +Inf); they are excluded from the mean/std.
	Unmatched int
}

// Report summarizes the current generation.
func (s *Swarm) Report() Report {
	costs := make([]float64, 0, len(s.pop))
	unmatched := 0
	for _, p := range s.pop {
		if math.IsInf(p.Cost, 1) {
			unmatched++
			continue
		}
		costs = append(costs, p.Cost)
	}

	r := Report{
		Generation: s.gen,
		BestCost:   s.bestCost,
		Particles:  len(s.pop),
		Unmatched:  unmatched,
	}
	if len(costs) > 0 {
		r.MeanCost, r.StdCost = stat.MeanStdDev(costs, nil)
		if math.IsNaN(r.StdCost) { // single sample
			r.StdCost = 0
		}
	}
	return r
}

func (r Report) String() string {
	return fmt.Sprintf("gen %v: best %.6g, mean %.6g (std %.6g), %v particles",
		r.Generation, r.BestCost, r.MeanCost, r.StdCost, r.Particles)
}

func (s *Swarm) String() string { return s.Report().String() }
