package registration

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// TWeight is the Student's-t robust weight for a normalized squared
// residual: (dof+1)/(dof+nsr).  Small residuals weigh close to one, large
// residuals are damped rather than cut off, and as dof grows the weight of
// every residual tends to one (plain least squares).
func TWeight(dof, nsr float64) float64 {
	return (dof + 1) / (dof + nsr)
}

// Correspondence pairs an untransformed source point with its current
// nearest target point and the robust weight of the match.
type Correspondence struct {
	Src    Point
	Tgt    Point
	Weight float64
}

// Correspond applies t to every source point, matches it against the
// target index and accumulates the robust cost: the sum over usable
// matches of weight*squared-residual.  Matches whose squared distance
// exceeds MaxCorrDist^2 are excluded from both the correspondence set and
// the sum.  If no match is usable the cost is +Inf and the error is
// ErrNoCorrespondences.
func Correspond(t Transform, src PointCloud, tgt *TargetIndex, prm Params) ([]Correspondence, float64, error) {
	maxd2 := math.Inf(1)
	if prm.MaxCorrDist > 0 {
		maxd2 = prm.MaxCorrDist * prm.MaxCorrDist
	}
	s2 := prm.sigma2()

	corrs := make([]Correspondence, 0, len(src))
	cost := 0.0
	for _, sp := range src {
		q, d2 := tgt.Nearest(t.Apply(sp))
		if d2 > maxd2 {
			continue
		}
		w := TWeight(prm.Dof, d2/s2)
		cost += w * d2
		corrs = append(corrs, Correspondence{Src: sp, Tgt: q, Weight: w})
	}
	if len(corrs) == 0 {
		return nil, math.Inf(1), ErrNoCorrespondences
	}
	return corrs, cost, nil
}

// Cost is Correspond without retaining the correspondence set.
func Cost(t Transform, src PointCloud, tgt *TargetIndex, prm Params) (float64, error) {
	_, cost, err := Correspond(t, src, tgt, prm)
	return cost, err
}

// SolveWeighted computes in closed form the rigid transform minimizing the
// weighted sum of squared distances between transformed source points and
// their fixed target matches (weighted orthogonal Procrustes, solved with
// an SVD of the weighted cross-covariance).  The reflection case is folded
// back onto a proper rotation, so the result always satisfies the rotation
// invariants.
func SolveWeighted(corrs []Correspondence) (Transform, error) {
	if len(corrs) == 0 {
		return Transform{}, ErrNoCorrespondences
	}

	var wsum float64
	var sc, tc Point // weighted centroids
	for _, c := range corrs {
		wsum += c.Weight
		sc.X += c.Weight * c.Src.X
		sc.Y += c.Weight * c.Src.Y
		sc.Z += c.Weight * c.Src.Z
		tc.X += c.Weight * c.Tgt.X
		tc.Y += c.Weight * c.Tgt.Y
		tc.Z += c.Weight * c.Tgt.Z
	}
	sc.X, sc.Y, sc.Z = sc.X/wsum, sc.Y/wsum, sc.Z/wsum
	tc.X, tc.Y, tc.Z = tc.X/wsum, tc.Y/wsum, tc.Z/wsum

	// weighted cross-covariance H = sum w * (s - sc) (t - tc)^T
	h := mat.NewDense(3, 3, nil)
	for _, c := range corrs {
		s := [3]float64{c.Src.X - sc.X, c.Src.Y - sc.Y, c.Src.Z - sc.Z}
		d := [3]float64{c.Tgt.X - tc.X, c.Tgt.Y - tc.Y, c.Tgt.Z - tc.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				h.Set(i, j, h.At(i, j)+c.Weight*s[i]*d[j])
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return Transform{}, ErrNoCorrespondences
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = V * diag(1,1,det(V U^T)) * U^T
	var r mat.Dense
	r.Mul(&v, u.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			v.Set(i, 2, -v.At(i, 2))
		}
		r.Mul(&v, u.T())
	}

	var rot [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot[3*i+j] = r.At(i, j)
		}
	}
	trans := Point{
		X: tc.X - (rot[0]*sc.X + rot[1]*sc.Y + rot[2]*sc.Z),
		Y: tc.Y - (rot[3]*sc.X + rot[4]*sc.Y + rot[5]*sc.Z),
		Z: tc.Z - (rot[6]*sc.X + rot[7]*sc.Y + rot[8]*sc.Z),
	}
	return FromRotation(rot, trans), nil
}
