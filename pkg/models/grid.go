package models

import (
	"fmt"
	"math"
)

// Shape holds the spatial extent of a grid, outermost axis first. The last
// axis is the depth axis.
type Shape []int

// Dims returns the spatial dimensionality
func (s Shape) Dims() int {
	return len(s)
}

// Size returns the number of voxels
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether both shapes have the same extents
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Strides returns row-major strides
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	step := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = step
		step *= s[i]
	}
	return strides
}

// Index converts spatial coordinates into a flat row-major index
func (s Shape) Index(coords []int) int {
	idx := 0
	for i, c := range coords {
		idx = idx*s[i] + c
	}
	return idx
}

// Coords converts a flat index back into spatial coordinates
func (s Shape) Coords(idx int) []int {
	coords := make([]int, len(s))
	for i := len(s) - 1; i >= 0; i-- {
		coords[i] = idx % s[i]
		idx /= s[i]
	}
	return coords
}

// Contains reports whether coords fall inside the shape
func (s Shape) Contains(coords []int) bool {
	if len(coords) != len(s) {
		return false
	}
	for i, c := range coords {
		if c < 0 || c >= s[i] {
			return false
		}
	}
	return true
}

// Clamp returns a copy of coords with every component clamped into bounds
func (s Shape) Clamp(coords []int) []int {
	out := make([]int, len(coords))
	for i, c := range coords {
		out[i] = max(0, min(c, s[i]-1))
	}
	return out
}

func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// Grid is a dense scalar field in row-major order
type Grid struct {
	Shape Shape
	Data  []float32
}

// NewGrid allocates a zero-filled grid
func NewGrid(shape Shape) *Grid {
	return &Grid{
		Shape: append(Shape(nil), shape...),
		Data:  make([]float32, shape.Size()),
	}
}

// At returns the value at the given spatial coordinates
func (g *Grid) At(coords ...int) float32 {
	return g.Data[g.Shape.Index(coords)]
}

// Set stores v at the given spatial coordinates
func (g *Grid) Set(v float32, coords ...int) {
	g.Data[g.Shape.Index(coords)] = v
}

// Clone returns a deep copy
func (g *Grid) Clone() *Grid {
	return &Grid{
		Shape: append(Shape(nil), g.Shape...),
		Data:  append([]float32(nil), g.Data...),
	}
}

// Sum returns the sum of all values
func (g *Grid) Sum() float64 {
	sum := 0.0
	for _, v := range g.Data {
		sum += float64(v)
	}
	return sum
}

// MinMax returns the smallest and largest value. Empty grids report zeros.
func (g *Grid) MinMax() (float32, float32) {
	if len(g.Data) == 0 {
		return 0, 0
	}
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range g.Data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Crop copies the box [origin, origin+size) into a new grid. The box is
// clipped to the grid bounds.
func (g *Grid) Crop(origin, size []int) *Grid {
	extent := make(Shape, len(g.Shape))
	for i := range extent {
		extent[i] = min(size[i], g.Shape[i]-origin[i])
	}
	out := NewGrid(extent)
	local := make([]int, len(extent))
	global := make([]int, len(extent))
	for idx := range out.Data {
		copy(local, extent.Coords(idx))
		for i := range local {
			global[i] = origin[i] + local[i]
		}
		out.Data[idx] = g.Data[g.Shape.Index(global)]
	}
	return out
}

// LabelMap is an integer label grid sharing the spatial layout of a Grid
type LabelMap struct {
	Shape Shape
	Data  []int32
}

// NewLabelMap allocates a background-filled label map
func NewLabelMap(shape Shape) *LabelMap {
	return &LabelMap{
		Shape: append(Shape(nil), shape...),
		Data:  make([]int32, shape.Size()),
	}
}

// At returns the label id at the given spatial coordinates
func (l *LabelMap) At(coords ...int) int32 {
	return l.Data[l.Shape.Index(coords)]
}

// Set stores id at the given spatial coordinates
func (l *LabelMap) Set(id int32, coords ...int) {
	l.Data[l.Shape.Index(coords)] = id
}

// Clone returns a deep copy
func (l *LabelMap) Clone() *LabelMap {
	return &LabelMap{
		Shape: append(Shape(nil), l.Shape...),
		Data:  append([]int32(nil), l.Data...),
	}
}

// Count returns the number of voxels carrying id
func (l *LabelMap) Count(id int32) int {
	n := 0
	for _, v := range l.Data {
		if v == id {
			n++
		}
	}
	return n
}

// Mask returns a {0,1} grid marking voxels equal to id
func (l *LabelMap) Mask(id int32) *Grid {
	out := NewGrid(l.Shape)
	for i, v := range l.Data {
		if v == id {
			out.Data[i] = 1
		}
	}
	return out
}
