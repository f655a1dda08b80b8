// Package pcd reads and writes point clouds in the PCD format and
// provides voxel-grid downsampling.  Only the x, y and z fields are
// consumed; other fields are skipped on read and not written.
package pcd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	registration "github.com/liuxinren456852/probabilistic-point-clouds-registration"
)

type header struct {
	fields []string
	sizes  []int
	types  []string
	counts []int
	points int
	data   string // "ascii" or "binary"
}

func (h header) rowBytes() int {
	n := 0
	for i := range h.fields {
		n += h.sizes[i] * h.counts[i]
	}
	return n
}

func (h header) fieldOffset(name string) (offset, size int, typ string, ok bool) {
	off := 0
	for i, f := range h.fields {
		if f == name {
			return off, h.sizes[i], h.types[i], true
		}
		off += h.sizes[i] * h.counts[i]
	}
	return 0, 0, "", false
}

// Load reads a PCD file.  ASCII and binary data sections are supported;
// the file must declare x, y and z fields.
func Load(path string) (registration.PointCloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pcd: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("pcd: %v: %w", path, err)
	}

	var cloud registration.PointCloud
	switch h.data {
	case "ascii":
		cloud, err = readASCII(r, h)
	case "binary":
		cloud, err = readBinary(r, h)
	default:
		err = fmt.Errorf("unsupported DATA kind %q", h.data)
	}
	if err != nil {
		return nil, fmt.Errorf("pcd: %v: %w", path, err)
	}
	return cloud, nil
}

func readHeader(r *bufio.Reader) (header, error) {
	h := header{points: -1}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return h, fmt.Errorf("truncated header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tok := strings.Fields(line)
		key, vals := tok[0], tok[1:]
		switch key {
		case "FIELDS":
			h.fields = vals
		case "SIZE":
			h.sizes = atois(vals)
		case "TYPE":
			h.types = vals
		case "COUNT":
			h.counts = atois(vals)
		case "WIDTH", "HEIGHT", "VIEWPOINT", "VERSION":
			// width*height must equal POINTS; POINTS is authoritative
		case "POINTS":
			h.points, _ = strconv.Atoi(vals[0])
		case "DATA":
			h.data = vals[0]
			if len(h.counts) == 0 {
				h.counts = make([]int, len(h.fields))
				for i := range h.counts {
					h.counts[i] = 1
				}
			}
			if len(h.fields) == 0 || h.points < 0 {
				return h, fmt.Errorf("header missing FIELDS or POINTS")
			}
			if len(h.sizes) != len(h.fields) || len(h.types) != len(h.fields) || len(h.counts) != len(h.fields) {
				return h, fmt.Errorf("header field descriptors are inconsistent")
			}
			for _, name := range []string{"x", "y", "z"} {
				if _, _, _, ok := h.fieldOffset(name); !ok {
					return h, fmt.Errorf("missing %q field", name)
				}
			}
			return h, nil
		}
	}
}

func readASCII(r *bufio.Reader, h header) (registration.PointCloud, error) {
	xi, yi, zi := fieldIndexes(h)
	cloud := make(registration.PointCloud, 0, h.points)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		tok := strings.Fields(line)
		if len(tok) <= xi || len(tok) <= yi || len(tok) <= zi {
			return nil, fmt.Errorf("short data row %q", line)
		}
		x, err1 := strconv.ParseFloat(tok[xi], 64)
		y, err2 := strconv.ParseFloat(tok[yi], 64)
		z, err3 := strconv.ParseFloat(tok[zi], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("bad data row %q", line)
		}
		cloud = append(cloud, registration.Point{X: x, Y: y, Z: z})
		if len(cloud) == h.points {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(cloud) != h.points {
		return nil, fmt.Errorf("expected %v points, got %v", h.points, len(cloud))
	}
	return cloud, nil
}

// fieldIndexes returns the column indexes of x, y and z for ascii rows.
// Multi-count fields occupy count columns each.
func fieldIndexes(h header) (xi, yi, zi int) {
	col := 0
	for i, f := range h.fields {
		switch f {
		case "x":
			xi = col
		case "y":
			yi = col
		case "z":
			zi = col
		}
		col += h.counts[i]
	}
	return xi, yi, zi
}

func readBinary(r io.Reader, h header) (registration.PointCloud, error) {
	xo, xs, xt, _ := h.fieldOffset("x")
	yo, ys, yt, _ := h.fieldOffset("y")
	zo, zs, zt, _ := h.fieldOffset("z")

	row := make([]byte, h.rowBytes())
	cloud := make(registration.PointCloud, 0, h.points)
	for i := 0; i < h.points; i++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("truncated data at point %v: %w", i, err)
		}
		x, err1 := decodeScalar(row[xo:], xs, xt)
		y, err2 := decodeScalar(row[yo:], ys, yt)
		z, err3 := decodeScalar(row[zo:], zs, zt)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("bad scalar at point %v", i)
		}
		cloud = append(cloud, registration.Point{X: x, Y: y, Z: z})
	}
	return cloud, nil
}

func decodeScalar(b []byte, size int, typ string) (float64, error) {
	switch {
	case typ == "F" && size == 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case typ == "F" && size == 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("unsupported scalar type %v%v", typ, size)
	}
}

func atois(vals []string) []int {
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i], _ = strconv.Atoi(v)
	}
	return out
}

// Save writes the cloud as an x/y/z PCD file.  When bin is true the data
// section is binary little-endian float32, otherwise ascii.
func Save(path string, cloud registration.PointCloud, bin bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pcd: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	data := "ascii"
	if bin {
		data = "binary"
	}
	fmt.Fprintf(w, "# .PCD v0.7 - Point Cloud Data file format\n")
	fmt.Fprintf(w, "VERSION 0.7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n")
	fmt.Fprintf(w, "WIDTH %v\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS %v\nDATA %v\n", len(cloud), len(cloud), data)

	if bin {
		buf := make([]byte, 12)
		for _, p := range cloud {
			binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("pcd: %w", err)
			}
		}
	} else {
		for _, p := range cloud {
			fmt.Fprintf(w, "%g %g %g\n", p.X, p.Y, p.Z)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("pcd: %w", err)
	}
	return nil
}
