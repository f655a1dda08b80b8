package pcd

import (
	"math"
	"sort"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
)

// VoxelGrid downsamples the cloud by replacing all points inside each
// cubic voxel of the given leaf size with their centroid.  A leaf size of
// zero returns the cloud unchanged.  The output is ordered by voxel key so
// repeated runs over the same cloud are deterministic.
func VoxelGrid(cloud registration.PointCloud, leaf float64) registration.PointCloud {
	if leaf <= 0 || len(cloud) == 0 {
		return cloud
	}

	type acc struct {
		x, y, z float64
		n       int
	}
	cells := make(map[[3]int]*acc)
	for _, p := range cloud {
		key := [3]int{
			int(math.Floor(p.X / leaf)),
			int(math.Floor(p.Y / leaf)),
			int(math.Floor(p.Z / leaf)),
		}
		a := cells[key]
		if a == nil {
			a = &acc{}
			cells[key] = a
		}
		a.x += p.X
		a.y += p.Y
		a.z += p.Z
		a.n++
	}

	keys := make([][3]int, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})

	out := make(registration.PointCloud, 0, len(cells))
	for _, k := range keys {
		a := cells[k]
		n := float64(a.n)
		out = append(out, registration.Point{X: a.x / n, Y: a.y / n, Z: a.z / n})
	}
	return out
}
