// Package registration provides the shared vocabulary for probabilistic
// point-cloud registration: rigid transforms over a 6-dimensional pose
// vector, immutable point clouds with a reusable nearest-neighbour index,
// and a robust (Student's-t weighted) alignment cost with its closed-form
// weighted rigid solver.  The pswarm package drives these pieces with a
// particle swarm.
package registration

import (
	"errors"
	"fmt"
)

// PoseDims is the dimensionality of the pose parameter vector:
// three translation components followed by three Euler angles.
const PoseDims = 6

var (
	// ErrEmptyCloud is returned when a source or target cloud contains no
	// points.  Registration against an empty cloud is a setup error, not
	// something the optimizer can recover from.
	ErrEmptyCloud = errors.New("registration: empty point cloud")

	// ErrNoCorrespondences is returned by an evaluation in which every
	// nearest-neighbour match was farther than MaxCorrDist.  The cost for
	// such an evaluation is +Inf.
	ErrNoCorrespondences = errors.New("registration: no usable correspondences")

	// ErrInvalidConfig wraps all Params validation failures.
	ErrInvalidConfig = errors.New("registration: invalid configuration")
)

// Params holds the registration configuration shared read-only by every
// particle.  Construct it once (DefaultParams is a reasonable start),
// Validate it, and never mutate it afterwards.
type Params struct {
	// Dof is the degrees-of-freedom shape parameter of the Student's-t
	// robust weighting kernel.  Must be > 0.  Large values approach plain
	// least squares.
	Dof float64

	// NIter caps the embedded local-refinement iterations run inside each
	// particle evaluation.  Zero disables refinement entirely.
	NIter int

	// CostDropThresh is the minimum per-iteration cost improvement for the
	// refinement loop to be considered still making progress.
	CostDropThresh float64

	// NCostDropIt is how many consecutive sub-threshold iterations are
	// tolerated before the refinement loop stops early.  Must be >= 1 when
	// NIter > 0.
	NCostDropIt int

	// Sigma scales squared residuals before they enter the t-weight
	// (normalized squared residual = r^2/Sigma^2).  Zero means 1.
	Sigma float64

	// MaxCorrDist bounds the usable nearest-neighbour distance.  Matches
	// farther than this are excluded from the weighted sum.  Zero means
	// unlimited.
	MaxCorrDist float64

	// Verbose and Summary gate progress output in drivers.  They have no
	// effect on the optimization result.
	Verbose bool
	Summary bool
}

// DefaultParams mirrors the historical command-line defaults: dof 5, ten
// inner iterations, cost drop threshold 0.01 tolerated for five iterations.
func DefaultParams() Params {
	return Params{
		Dof:            5,
		NIter:          10,
		CostDropThresh: 0.01,
		NCostDropIt:    5,
		Sigma:          1,
	}
}

// Validate reports the first configuration problem found, wrapped in
// ErrInvalidConfig, or nil.
func (p Params) Validate() error {
	if p.Dof <= 0 {
		return fmt.Errorf("%w: dof must be > 0 (got %v)", ErrInvalidConfig, p.Dof)
	}
	if p.NIter < 0 {
		return fmt.Errorf("%w: n_iter must be >= 0 (got %v)", ErrInvalidConfig, p.NIter)
	}
	if p.CostDropThresh < 0 {
		return fmt.Errorf("%w: cost_drop_thresh must be >= 0 (got %v)", ErrInvalidConfig, p.CostDropThresh)
	}
	if p.NIter > 0 && p.NCostDropIt < 1 {
		return fmt.Errorf("%w: n_cost_drop_it must be >= 1 (got %v)", ErrInvalidConfig, p.NCostDropIt)
	}
	if p.Sigma < 0 {
		return fmt.Errorf("%w: sigma must be >= 0 (got %v)", ErrInvalidConfig, p.Sigma)
	}
	if p.MaxCorrDist < 0 {
		return fmt.Errorf("%w: max_corr_dist must be >= 0 (got %v)", ErrInvalidConfig, p.MaxCorrDist)
	}
	return nil
}

// sigma2 returns the residual normalization divisor, defaulting to 1.
func (p Params) sigma2() float64 {
	if p.Sigma == 0 {
		return 1
	}
	return p.Sigma * p.Sigma
}
