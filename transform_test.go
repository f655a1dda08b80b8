package registration

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkRotation asserts R*R^T = I and det(R) = 1 within tolerance.
func checkRotation(t *testing.T, r [9]float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dot := r[3*i]*r[3*j] + r[3*i+1]*r[3*j+1] + r[3*i+2]*r[3*j+2]
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, dot, 1e-9, "row %v . row %v", i, j)
		}
	}
	det := r[0]*(r[4]*r[8]-r[5]*r[7]) - r[1]*(r[3]*r[8]-r[5]*r[6]) + r[2]*(r[3]*r[7]-r[4]*r[6])
	assert.InDelta(t, 1, det, 1e-9, "determinant")
}

func TestFromVectorWrapsAngles(t *testing.T) {
	tr := FromVector([]float64{1, 2, 3, 3 * math.Pi, -5 * math.Pi / 2, math.Pi})
	assert.InDelta(t, math.Pi, tr.At(3), 1e-12)
	assert.InDelta(t, -math.Pi/2, tr.At(4), 1e-12)
	assert.InDelta(t, math.Pi, tr.At(5), 1e-12)

	// translation untouched
	assert.Equal(t, 1.0, tr.At(0))
	assert.Equal(t, 2.0, tr.At(1))
	assert.Equal(t, 3.0, tr.At(2))
}

func TestFromVectorBadLengthPanics(t *testing.T) {
	assert.Panics(t, func() { FromVector([]float64{1, 2, 3}) })
}

func TestRotationAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		v := make([]float64, PoseDims)
		for j := range v {
			v[j] = 20 * (rng.Float64() - 0.5)
		}
		checkRotation(t, FromVector(v).Rotation())
	}
}

func TestIdentityApply(t *testing.T) {
	p := Point{X: 1.5, Y: -2, Z: 0.25}
	got := Identity().Apply(p)
	assert.Equal(t, p, got)
}

func TestApplyKnownRotation(t *testing.T) {
	// 90 degrees about z maps +x to +y
	tr := FromVector([]float64{0, 0, 0, 0, 0, math.Pi / 2})
	got := tr.Apply(Point{X: 1})
	assert.InDelta(t, 0, got.X, 1e-12)
	assert.InDelta(t, 1, got.Y, 1e-12)
	assert.InDelta(t, 0, got.Z, 1e-12)
}

func TestEulerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		v := []float64{0, 0, 0,
			math.Pi * (2*rng.Float64() - 1),
			// keep ry clear of the gimbal singularity for exact roundtrips
			1.4 * (2*rng.Float64() - 1),
			math.Pi * (2*rng.Float64() - 1),
		}
		want := FromVector(v)
		got := FromRotation(want.Rotation(), want.Translation())
		for j := 0; j < PoseDims; j++ {
			assert.InDelta(t, want.At(j), got.At(j), 1e-9, "dim %v", j)
		}
	}
}

func TestFromRotationGimbal(t *testing.T) {
	want := FromVector([]float64{0, 0, 0, 0.3, math.Pi / 2, 0})
	got := FromRotation(want.Rotation(), Point{})
	checkRotation(t, got.Rotation())
	// the factorization must still reproduce the same rotation
	for i := range want.Rotation() {
		assert.InDelta(t, want.Rotation()[i], got.Rotation()[i], 1e-9)
	}
}

func TestMatrixHomogeneous(t *testing.T) {
	tr := FromVector([]float64{1, 2, 3, 0.1, 0.2, 0.3})
	m := tr.Matrix()
	require.Equal(t, []int{4, 4}, func() []int { r, c := m.Dims(); return []int{r, c} }())
	p := Point{X: 0.5, Y: -1, Z: 2}
	want := tr.Apply(p)
	assert.InDelta(t, want.X, m.At(0, 0)*p.X+m.At(0, 1)*p.Y+m.At(0, 2)*p.Z+m.At(0, 3), 1e-12)
	assert.InDelta(t, want.Y, m.At(1, 0)*p.X+m.At(1, 1)*p.Y+m.At(1, 2)*p.Z+m.At(1, 3), 1e-12)
	assert.InDelta(t, want.Z, m.At(2, 0)*p.X+m.At(2, 1)*p.Y+m.At(2, 2)*p.Z+m.At(2, 3), 1e-12)
	assert.Equal(t, 1.0, m.At(3, 3))
}
