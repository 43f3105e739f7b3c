package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/tauleap/internal/tauleap"
)

// PhasePortrait holds one variable against another along a trajectory.
type PhasePortrait struct {
	XName, YName string
	Points       []struct{ X, Y float64 }
}

func NewPhasePortrait(res *tauleap.Result, xIdx, yIdx int) (*PhasePortrait, error) {
	if xIdx < 0 || yIdx < 0 || xIdx >= len(res.Names) || yIdx >= len(res.Names) {
		return nil, fmt.Errorf("variable index out of range: %d, %d", xIdx, yIdx)
	}
	p := &PhasePortrait{
		XName:  res.Names[xIdx],
		YName:  res.Names[yIdx],
		Points: make([]struct{ X, Y float64 }, len(res.Points)),
	}
	for i, pt := range res.Points {
		p.Points[i].X = pt.State[xIdx]
		p.Points[i].Y = pt.State[yIdx]
	}
	return p, nil
}

// ASCII draws the portrait on a width × height character canvas. The origin
// is the bottom left corner; amounts are never negative. The first and last
// points are marked 'o' and 'x'.
func (p *PhasePortrait) ASCII(width, height int) string {
	if len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	maxX, maxY := 0.0, 0.0
	for _, pt := range p.Points {
		maxX = max(maxX, pt.X)
		maxY = max(maxY, pt.Y)
	}
	if maxX == 0 {
		maxX = 1
	}
	if maxY == 0 {
		maxY = 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	cell := func(x, y float64) (int, int) {
		col := int(x / maxX * float64(width-1))
		row := height - 1 - int(y/maxY*float64(height-1))
		return row, col
	}
	for _, pt := range p.Points {
		row, col := cell(pt.X, pt.Y)
		canvas[row][col] = '•'
	}
	first, last := p.Points[0], p.Points[len(p.Points)-1]
	row, col := cell(first.X, first.Y)
	canvas[row][col] = 'o'
	row, col = cell(last.X, last.Y)
	canvas[row][col] = 'x'

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (max %g)\n", p.YName, maxY)
	for _, line := range canvas {
		sb.WriteRune('│')
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	sb.WriteRune('└')
	sb.WriteString(strings.Repeat("─", width))
	fmt.Fprintf(&sb, "\n%s (max %g)\n", p.XName, maxX)
	return sb.String()
}
