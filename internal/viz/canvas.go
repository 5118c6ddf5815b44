package viz

import (
	"strings"
)

const brailleBlank = 0x2800

// Braille cells are 2x4 dots; dotBits[row][col] is the bit for each dot.
var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a Braille dot grid of Width x Height cells, addressed in dots
// (Width*2 by Height*4).
type Canvas struct {
	Width, Height int
	cells         []rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, cells: make([]rune, w*h)}
	c.Clear()
	return c
}

func (c *Canvas) cell(x, y int) (int, rune, bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, false
	}
	return row*c.Width + col, dotBits[y%4][x%2], true
}

func (c *Canvas) Set(x, y int) {
	if i, bit, ok := c.cell(x, y); ok {
		c.cells[i] |= bit
	}
}

func (c *Canvas) Unset(x, y int) {
	if i, bit, ok := c.cell(x, y); ok {
		c.cells[i] &^= bit
	}
}

// Dot fills a square of side 2r+1 centred on (x, y).
func (c *Canvas) Dot(x, y, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			c.Set(x+dx, y+dy)
		}
	}
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = brailleBlank
	}
}

// DrawLine uses Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(len(c.cells)*3 + c.Height)
	for row := 0; row < c.Height; row++ {
		b.WriteString(string(c.cells[row*c.Width : (row+1)*c.Width]))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
