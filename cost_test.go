package registration

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCloud(n int, seed int64) PointCloud {
	rng := rand.New(rand.NewSource(seed))
	c := make(PointCloud, n)
	for i := range c {
		c[i] = Point{X: 2*rng.Float64() - 1, Y: 2*rng.Float64() - 1, Z: 2*rng.Float64() - 1}
	}
	return c
}

func TestTWeight(t *testing.T) {
	// nsr = 1 gives exactly unit weight
	assert.InDelta(t, 1, TWeight(5, 1), 1e-12)

	// zero residual has the maximum weight
	assert.Equal(t, TWeight(5, 0), (5.0+1)/5.0)

	// weights decrease monotonically with the residual
	prev := math.Inf(1)
	for nsr := 0.0; nsr < 100; nsr += 0.5 {
		w := TWeight(5, nsr)
		assert.Less(t, w, prev)
		prev = w
	}
}

func TestTWeightLargeDofIsUnity(t *testing.T) {
	for _, nsr := range []float64{0, 0.1, 1, 10, 1000} {
		assert.InDelta(t, 1, TWeight(1e12, nsr), 1e-6, "nsr=%v", nsr)
	}
}

func TestCostIdentityAligned(t *testing.T) {
	c := testCloud(50, 3)
	ix, err := NewTargetIndex(c)
	require.NoError(t, err)

	cost, err := Cost(Identity(), c, ix, DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, 0, cost, 1e-12)
}

func TestRobustCostApproachesLeastSquares(t *testing.T) {
	src := testCloud(60, 5)
	tgt := testCloud(60, 6)
	ix, err := NewTargetIndex(tgt)
	require.NoError(t, err)

	// plain sum of squared nearest-neighbour residuals
	plain := 0.0
	for _, p := range src {
		_, d2 := ix.Nearest(p)
		plain += d2
	}

	prm := DefaultParams()
	prm.Dof = 1e12
	cost, err := Cost(Identity(), src, ix, prm)
	require.NoError(t, err)
	assert.InDelta(t, plain, cost, 1e-6*plain)
}

func TestCorrespondMaxDist(t *testing.T) {
	src := PointCloud{{X: 0}, {X: 10}}
	tgt := PointCloud{{X: 0.05}}
	ix, err := NewTargetIndex(tgt)
	require.NoError(t, err)

	prm := DefaultParams()
	prm.MaxCorrDist = 1
	corrs, _, err := Correspond(Identity(), src, ix, prm)
	require.NoError(t, err)
	// the far point is excluded, not fatal
	require.Len(t, corrs, 1)
	assert.Equal(t, src[0], corrs[0].Src)

	// and when nothing matches, the evaluation degrades to +Inf
	prm.MaxCorrDist = 0.01
	_, cost, err := Correspond(Identity(), src, ix, prm)
	assert.ErrorIs(t, err, ErrNoCorrespondences)
	assert.True(t, math.IsInf(cost, 1))
}

func TestNewTargetIndexEmpty(t *testing.T) {
	_, err := NewTargetIndex(nil)
	assert.ErrorIs(t, err, ErrEmptyCloud)
}

func TestNearest(t *testing.T) {
	tgt := PointCloud{{X: 0}, {X: 1}, {X: 2, Y: 2}}
	ix, err := NewTargetIndex(tgt)
	require.NoError(t, err)

	q, d2 := ix.Nearest(Point{X: 1.1})
	assert.Equal(t, tgt[1], q)
	assert.InDelta(t, 0.01, d2, 1e-12)
}

func TestSolveWeightedRecoversTransform(t *testing.T) {
	src := testCloud(40, 9)
	truth := FromVector([]float64{0.4, -0.3, 0.2, 0.2, -0.1, math.Pi / 6})

	corrs := make([]Correspondence, len(src))
	for i, p := range src {
		corrs[i] = Correspondence{Src: p, Tgt: truth.Apply(p), Weight: 1}
	}

	got, err := SolveWeighted(corrs)
	require.NoError(t, err)
	for i := 0; i < PoseDims; i++ {
		assert.InDelta(t, truth.At(i), got.At(i), 1e-9, "dim %v", i)
	}
	checkRotation(t, got.Rotation())
}

func TestSolveWeightedDownweightsOutliers(t *testing.T) {
	src := testCloud(40, 13)
	truth := FromVector([]float64{0.1, 0.2, -0.1, 0, 0, 0.3})

	corrs := make([]Correspondence, 0, len(src)+1)
	for _, p := range src {
		corrs = append(corrs, Correspondence{Src: p, Tgt: truth.Apply(p), Weight: 1})
	}
	// a gross mismatch with a near-zero robust weight must barely move the
	// solution
	corrs = append(corrs, Correspondence{Src: Point{X: 5}, Tgt: Point{X: -40, Y: 13}, Weight: 1e-9})

	got, err := SolveWeighted(corrs)
	require.NoError(t, err)
	for i := 0; i < PoseDims; i++ {
		assert.InDelta(t, truth.At(i), got.At(i), 1e-6, "dim %v", i)
	}
}

func TestSolveWeightedNoCorrespondences(t *testing.T) {
	_, err := SolveWeighted(nil)
	assert.ErrorIs(t, err, ErrNoCorrespondences)
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero dof", func(p *Params) { p.Dof = 0 }},
		{"negative dof", func(p *Params) { p.Dof = -3 }},
		{"negative n_iter", func(p *Params) { p.NIter = -1 }},
		{"negative cost drop", func(p *Params) { p.CostDropThresh = -0.1 }},
		{"zero drop patience", func(p *Params) { p.NCostDropIt = 0 }},
		{"negative sigma", func(p *Params) { p.Sigma = -1 }},
		{"negative corr dist", func(p *Params) { p.MaxCorrDist = -1 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := DefaultParams()
			c.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)
		})
	}
}
