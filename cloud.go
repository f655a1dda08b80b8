package registration

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Point is a single 3-D point.
type Point struct {
	X, Y, Z float64
}

// PointCloud is an ordered set of points.  The registration core treats
// clouds as immutable: every operation that changes points returns a new
// cloud.
type PointCloud []Point

// Centroid returns the arithmetic mean of the cloud's points.
func (c PointCloud) Centroid() Point {
	var s Point
	for _, p := range c {
		s.X += p.X
		s.Y += p.Y
		s.Z += p.Z
	}
	n := float64(len(c))
	return Point{X: s.X / n, Y: s.Y / n, Z: s.Z / n}
}

// Bounds returns the axis-aligned bounding box of the cloud.
func (c PointCloud) Bounds() (low, up Point) {
	low = Point{math.Inf(1), math.Inf(1), math.Inf(1)}
	up = Point{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range c {
		low.X = math.Min(low.X, p.X)
		low.Y = math.Min(low.Y, p.Y)
		low.Z = math.Min(low.Z, p.Z)
		up.X = math.Max(up.X, p.X)
		up.Y = math.Max(up.Y, p.Y)
		up.Z = math.Max(up.Z, p.Z)
	}
	return low, up
}

// Transformed returns a copy of the cloud with t applied to every point.
func (c PointCloud) Transformed(t Transform) PointCloud {
	out := make(PointCloud, len(c))
	for i, p := range c {
		out[i] = t.Apply(p)
	}
	return out
}

// TargetIndex is a k-d tree over a target cloud.  It is built once per run
// and shared read-only by every particle evaluation; the target cloud never
// changes mid-run, so the tree is never rebuilt.
type TargetIndex struct {
	tree *kdtree.Tree
}

// NewTargetIndex builds the index.  An empty cloud is ErrEmptyCloud.
func NewTargetIndex(c PointCloud) (*TargetIndex, error) {
	if len(c) == 0 {
		return nil, ErrEmptyCloud
	}
	pts := make(kdtree.Points, len(c))
	for i, p := range c {
		pts[i] = kdtree.Point{p.X, p.Y, p.Z}
	}
	return &TargetIndex{tree: kdtree.New(pts, false)}, nil
}

// Nearest returns the target point closest to q and the squared distance
// between them.
func (ix *TargetIndex) Nearest(q Point) (Point, float64) {
	got, d2 := ix.tree.Nearest(kdtree.Point{q.X, q.Y, q.Z})
	n := got.(kdtree.Point)
	return Point{X: n[0], Y: n[1], Z: n[2]}, d2
}
