package seal

// medianFilter applies a k x k median filter to a binary mask with
// replicated borders. For binary input the median is set when more than half
// of the window is set.
func medianFilter(mask []bool, w, h, k int) []bool {
	if k <= 1 {
		return mask
	}
	r := k / 2
	need := k*k/2 + 1
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -r; dy <= r; dy++ {
				yy := clamp(y+dy, 0, h-1)
				row := yy * w
				for dx := -r; dx <= r; dx++ {
					if mask[row+clamp(x+dx, 0, w-1)] {
						n++
					}
				}
			}
			out[y*w+x] = n >= need
		}
	}
	return out
}

type component struct {
	label      int
	count      int
	minX, minY int
	maxX, maxY int
}

// components labels 8-connected regions of the mask.
func components(mask []bool, w, h int) ([]component, []int) {
	labels := make([]int, w*h)
	var comps []component
	queue := make([]int, 0, 64)
	next := 1

	for start := range mask {
		if !mask[start] || labels[start] != 0 {
			continue
		}
		c := component{label: next, minX: start % w, minY: start / w, maxX: start % w, maxY: start / w}
		labels[start] = next
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			ci := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			cx, cy := ci%w, ci/w
			c.count++
			c.minX, c.maxX = min(c.minX, cx), max(c.maxX, cx)
			c.minY, c.maxY = min(c.minY, cy), max(c.maxY, cy)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := ny*w + nx
					if mask[ni] && labels[ni] == 0 {
						labels[ni] = next
						queue = append(queue, ni)
					}
				}
			}
		}
		comps = append(comps, c)
		next++
	}
	return comps, labels
}

// filledArea returns the number of pixels enclosed by the component's outer
// boundary: its own pixels plus any holes. Background is flood filled
// (4-connected) from a one-pixel frame around the bounding box.
func filledArea(c component, labels []int, w int) int {
	bw := c.maxX - c.minX + 3
	bh := c.maxY - c.minY + 3
	outside := make([]bool, bw*bh)
	inComp := func(bx, by int) bool {
		x, y := c.minX+bx-1, c.minY+by-1
		if x < c.minX || x > c.maxX || y < c.minY || y > c.maxY {
			return false
		}
		return labels[y*w+x] == c.label
	}

	queue := []int{0}
	outside[0] = true
	reached := 0
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		reached++
		x, y := i%bw, i/bw
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= bw || ny >= bh {
				continue
			}
			ni := ny*bw + nx
			if !outside[ni] && !inComp(nx, ny) {
				outside[ni] = true
				queue = append(queue, ni)
			}
		}
	}
	return bw*bh - reached
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
