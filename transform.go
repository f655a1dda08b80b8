package registration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Transform is a rigid motion parameterized by the pose vector
// [tx ty tz rx ry rz], where the angles are XYZ Euler angles applied as
// R = Rz(rz)*Ry(ry)*Rx(rx).  The rotation matrix is derived from the
// angles, so it is orthonormal with determinant one by construction; the
// only canonicalization needed after pose arithmetic is wrapping the
// angles back into (-pi, pi].
type Transform struct {
	pose [PoseDims]float64
	rot  [9]float64 // row-major 3x3, cached from the angles
}

// Identity returns the identity transform.
func Identity() Transform {
	return FromVector([]float64{0, 0, 0, 0, 0, 0})
}

// FromVector builds a Transform from a pose vector of length PoseDims.
// Angles are wrapped into (-pi, pi], so the result always satisfies the
// rotation invariants regardless of what arithmetic produced v.
func FromVector(v []float64) Transform {
	if len(v) != PoseDims {
		panic(fmt.Sprintf("registration: pose vector has length %v, want %v", len(v), PoseDims))
	}
	var t Transform
	copy(t.pose[:3], v[:3])
	for i := 3; i < PoseDims; i++ {
		t.pose[i] = wrapAngle(v[i])
	}
	t.rot = eulerMatrix(t.pose[3], t.pose[4], t.pose[5])
	return t
}

// FromRotation builds a Transform from a row-major 3x3 rotation matrix and
// a translation.  The matrix is factored back into Euler angles; r must be
// a proper rotation.
func FromRotation(r [9]float64, trans Point) Transform {
	rx, ry, rz := matrixToEuler(r)
	return FromVector([]float64{trans.X, trans.Y, trans.Z, rx, ry, rz})
}

// Vector returns a copy of the pose parameter vector.
func (t Transform) Vector() []float64 {
	v := make([]float64, PoseDims)
	copy(v, t.pose[:])
	return v
}

// At returns the i-th pose parameter.
func (t Transform) At(i int) float64 { return t.pose[i] }

// Translation returns the translation component.
func (t Transform) Translation() Point {
	return Point{X: t.pose[0], Y: t.pose[1], Z: t.pose[2]}
}

// Rotation returns the row-major 3x3 rotation matrix.
func (t Transform) Rotation() [9]float64 { return t.rot }

// Apply maps p through the rigid motion.
func (t Transform) Apply(p Point) Point {
	r := &t.rot
	return Point{
		X: r[0]*p.X + r[1]*p.Y + r[2]*p.Z + t.pose[0],
		Y: r[3]*p.X + r[4]*p.Y + r[5]*p.Z + t.pose[1],
		Z: r[6]*p.X + r[7]*p.Y + r[8]*p.Z + t.pose[2],
	}
}

// Matrix returns the 4x4 homogeneous matrix of the transform.
func (t Transform) Matrix() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, t.rot[3*i+j])
		}
		m.Set(i, 3, t.pose[i])
	}
	m.Set(3, 3, 1)
	return m
}

func (t Transform) String() string {
	return fmt.Sprintf("t=(%.4f %.4f %.4f) r=(%.4f %.4f %.4f)",
		t.pose[0], t.pose[1], t.pose[2], t.pose[3], t.pose[4], t.pose[5])
}

// wrapAngle maps a into (-pi, pi].
func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// eulerMatrix builds R = Rz(rz)*Ry(ry)*Rx(rx), row-major.
func eulerMatrix(rx, ry, rz float64) [9]float64 {
	ca, sa := math.Cos(rx), math.Sin(rx)
	cb, sb := math.Cos(ry), math.Sin(ry)
	cc, sc := math.Cos(rz), math.Sin(rz)
	return [9]float64{
		cb * cc, cc*sa*sb - ca*sc, ca*cc*sb + sa*sc,
		cb * sc, ca*cc + sa*sb*sc, ca*sb*sc - cc*sa,
		-sb, cb * sa, ca * cb,
	}
}

// matrixToEuler factors a proper rotation back into XYZ Euler angles.
// At the gimbal singularity (|ry| = pi/2) rx and rz are coupled; rz is
// fixed to zero there, which keeps the factorization deterministic.
func matrixToEuler(r [9]float64) (rx, ry, rz float64) {
	sb := -r[6]
	if sb > 1 {
		sb = 1
	} else if sb < -1 {
		sb = -1
	}
	ry = math.Asin(sb)
	if math.Abs(math.Cos(ry)) > 1e-9 {
		rx = math.Atan2(r[7], r[8])
		rz = math.Atan2(r[3], r[0])
	} else {
		rx = math.Atan2(-r[5], r[4])
		rz = 0
	}
	return rx, ry, rz
}
