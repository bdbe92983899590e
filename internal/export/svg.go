// Package export renders runs and canvases as SVG.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/mbsim/internal/sim"
	"github.com/san-kum/mbsim/internal/viz"
)

var palette = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800", "#8888ff"}

// CanvasSVG writes each lit braille dot of canvas as a circle.
func CanvasSVG(w io.Writer, canvas *viz.Canvas, scale float64) error {
	if canvas == nil {
		return fmt.Errorf("nil canvas")
	}
	pw, ph := canvas.PixelSize()
	width, height := float64(pw)*scale, float64(ph)*scale

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height)

	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, 0.4*scale)
			}
		}
	}
	fmt.Fprint(bw, "</g>\n</svg>\n")
	return bw.Flush()
}

// TrajectorySVG draws the x-z path of every body's centre of mass, one
// colored polyline per body, on a shared scale.
func TrajectorySVG(w io.Writer, bodies []string, states []sim.State, width, height int) error {
	if len(states) < 2 {
		return fmt.Errorf("need at least 2 states, got %d", len(states))
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, s := range states {
		for b := range bodies {
			x, z := s[b*sim.BodyStateDim], s[b*sim.BodyStateDim+2]
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minZ, maxZ = math.Min(minZ, z), math.Max(maxZ, z)
		}
	}

	// Equal scale on both axes, with a 10% margin.
	span := math.Max(maxX-minX, maxZ-minZ)
	if span == 0 {
		span = 1
	}
	span *= 1.2
	cx, cz := (minX+maxX)/2, (minZ+maxZ)/2
	scale := math.Min(float64(width), float64(height)) / span

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for b, name := range bodies {
		fmt.Fprintf(bw, "<path id=%q fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", name, palette[b%len(palette)])
		for i, s := range states {
			x := float64(width)/2 + (s[b*sim.BodyStateDim]-cx)*scale
			y := float64(height)/2 - (s[b*sim.BodyStateDim+2]-cz)*scale
			if i == 0 {
				fmt.Fprintf(bw, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(bw, " L%.1f,%.1f", x, y)
			}
		}
		fmt.Fprint(bw, "\"/>\n")
	}
	fmt.Fprint(bw, "</svg>\n")
	return bw.Flush()
}
