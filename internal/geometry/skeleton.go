package geometry

import "github.com/GoSim-25-26J-441/clicksim/pkg/models"

// Offsets into the 3x3x3 neighbourhood are encoded as (dx+1)*9+(dy+1)*3+(dz+1).
const center = 13

var (
	// adj26 lists, per neighbourhood cell, the cells sharing a face, edge or corner
	adj26 [27][]int
	// adj6in18 lists, per cell of the 18-neighbourhood, its face neighbours inside the 18-neighbourhood
	adj6in18 [27][]int
	in18     [27]bool
	face     [27]bool
	// thinning directions: the six face neighbours
	borderDirs = [6][3]int{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}}
)

func init() {
	decode := func(i int) (int, int, int) { return i/9 - 1, (i/3)%3 - 1, i%3 - 1 }
	abs := func(a int) int {
		if a < 0 {
			return -a
		}
		return a
	}
	for i := 0; i < 27; i++ {
		x, y, z := decode(i)
		l1 := abs(x) + abs(y) + abs(z)
		in18[i] = l1 > 0 && l1 <= 2
		face[i] = l1 == 1
	}
	for i := 0; i < 27; i++ {
		xi, yi, zi := decode(i)
		for j := 0; j < 27; j++ {
			if i == j || i == center || j == center {
				continue
			}
			xj, yj, zj := decode(j)
			dx, dy, dz := abs(xi-xj), abs(yi-yj), abs(zi-zj)
			if dx <= 1 && dy <= 1 && dz <= 1 {
				adj26[i] = append(adj26[i], j)
				if in18[i] && in18[j] && dx+dy+dz == 1 {
					adj6in18[i] = append(adj6in18[i], j)
				}
			}
		}
	}
}

// Skeletonize thins mask to a one-voxel-wide medial structure while keeping
// its topology: only simple points are removed, one border direction at a
// time, and curve end points are kept.
func Skeletonize(mask *models.Grid) *models.Grid {
	shape := lift(mask.Shape)
	out := models.NewGrid(mask.Shape)
	if len(shape) != 3 {
		copy(out.Data, mask.Data)
		return out
	}
	fg := make([]bool, len(mask.Data))
	var active []int
	for i, v := range mask.Data {
		if v > 0 {
			fg[i] = true
			active = append(active, i)
		}
	}

	var nb [27]bool
	for {
		removed := 0
		for _, dir := range borderDirs {
			var candidates []int
			for _, idx := range active {
				if !fg[idx] {
					continue
				}
				coords := shape.Coords(idx)
				if isSet(fg, shape, coords[0]+dir[0], coords[1]+dir[1], coords[2]+dir[2]) {
					continue
				}
				neighbourhood(fg, shape, coords, &nb)
				if !isEndPoint(&nb) && isSimple(&nb) {
					candidates = append(candidates, idx)
				}
			}
			// Deleting one candidate can change the status of the next
			for _, idx := range candidates {
				neighbourhood(fg, shape, shape.Coords(idx), &nb)
				if !isEndPoint(&nb) && isSimple(&nb) {
					fg[idx] = false
					removed++
				}
			}
		}
		if removed == 0 {
			break
		}
		kept := active[:0]
		for _, idx := range active {
			if fg[idx] {
				kept = append(kept, idx)
			}
		}
		active = kept
	}

	for i, v := range fg {
		if v {
			out.Data[i] = 1
		}
	}
	return out
}

// lift turns a 2-D shape into a 3-D shape with unit depth; the flat layout is
// unchanged.
func lift(shape models.Shape) models.Shape {
	if len(shape) == 2 {
		return models.Shape{shape[0], shape[1], 1}
	}
	return shape
}

func isSet(fg []bool, shape models.Shape, x, y, z int) bool {
	if x < 0 || y < 0 || z < 0 || x >= shape[0] || y >= shape[1] || z >= shape[2] {
		return false
	}
	return fg[(x*shape[1]+y)*shape[2]+z]
}

func neighbourhood(fg []bool, shape models.Shape, coords []int, nb *[27]bool) {
	for i := 0; i < 27; i++ {
		nb[i] = isSet(fg, shape, coords[0]+i/9-1, coords[1]+(i/3)%3-1, coords[2]+i%3-1)
	}
}

func isEndPoint(nb *[27]bool) bool {
	count := 0
	for i, v := range nb {
		if v && i != center {
			count++
		}
	}
	return count == 1
}

// isSimple applies the Bertrand-Malandain characterisation: exactly one
// 26-component of foreground in N26 and exactly one 6-component of
// background in N18 touching a face neighbour.
func isSimple(nb *[27]bool) bool {
	var seen [27]bool
	stack := make([]int, 0, 27)

	fgComponents := 0
	for i := 0; i < 27; i++ {
		if i == center || !nb[i] || seen[i] {
			continue
		}
		fgComponents++
		if fgComponents > 1 {
			return false
		}
		seen[i] = true
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, j := range adj26[c] {
				if nb[j] && !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	if fgComponents != 1 {
		return false
	}

	seen = [27]bool{}
	bgComponents := 0
	for i := 0; i < 27; i++ {
		if !face[i] || nb[i] || seen[i] {
			continue
		}
		bgComponents++
		if bgComponents > 1 {
			return false
		}
		seen[i] = true
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, j := range adj6in18[c] {
				if !nb[j] && !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return bgComponents == 1
}
