package viz

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/mbsim/internal/dynamo"
)

// Segment is a world-space line.
type Segment struct {
	A, B mgl64.Vec3
}

// Scene is a wireframe snapshot of a solver.
type Scene struct {
	// Bodies holds each body's centre of mass.
	Bodies []mgl64.Vec3
	// Axes draws each body's principal axes.
	Axes []Segment
	// Links joins a body to its attachment point and the attachment to its
	// partner or world anchor. A gap between linked points is joint drift.
	Links []Segment
	// Anchors are the world reference points of single-body joints.
	Anchors []mgl64.Vec3
}

// SceneOf captures the current solver state. Body axes are drawn with half
// length axis; zero skips them.
func SceneOf(s *dynamo.Solver, axis float64) Scene {
	var sc Scene
	for _, b := range s.Bodies() {
		p := b.Pose.Position
		sc.Bodies = append(sc.Bodies, p)
		if axis <= 0 {
			continue
		}
		for k := 0; k < 3; k++ {
			var e mgl64.Vec3
			e[k] = axis
			d := b.Pose.Rotation.Rotate(e)
			sc.Axes = append(sc.Axes, Segment{p.Sub(d), p.Add(d)})
		}
	}

	for _, c := range s.Constraints() {
		var ends []mgl64.Vec3
		for _, conn := range c.Connections {
			b := s.Body(conn.Body)
			w := b.Pose.Mul(conn.Attachment).Position
			sc.Links = append(sc.Links, Segment{b.Pose.Position, w})
			ends = append(ends, w)
		}
		if len(ends) == 1 {
			ends = append(ends, c.Reference.Position)
			sc.Anchors = append(sc.Anchors, c.Reference.Position)
		}
		sc.Links = append(sc.Links, Segment{ends[0], ends[1]})
	}
	return sc
}

// Points lists every point the scene touches.
func (sc Scene) Points() []mgl64.Vec3 {
	pts := append([]mgl64.Vec3{}, sc.Bodies...)
	pts = append(pts, sc.Anchors...)
	for _, s := range sc.Links {
		pts = append(pts, s.A, s.B)
	}
	return pts
}

// Render draws the scene onto c.
func Render(c *Canvas, sc Scene, cam *Camera) {
	if c == nil || cam == nil {
		return
	}
	w, h := c.PixelSize()
	line := func(s Segment) {
		x1, y1, _, v1 := cam.Project(s.A, w, h)
		x2, y2, _, v2 := cam.Project(s.B, w, h)
		if v1 || v2 {
			c.DrawLine(x1, y1, x2, y2)
		}
	}
	for _, s := range sc.Links {
		line(s)
	}
	for _, s := range sc.Axes {
		line(s)
	}
	for _, a := range sc.Anchors {
		if x, y, _, ok := cam.Project(a, w, h); ok {
			c.DrawLine(x-2, y, x+2, y)
		}
	}
	for _, p := range sc.Bodies {
		if x, y, _, ok := cam.Project(p, w, h); ok {
			c.DrawBox(x, y, 1)
		}
	}
}

// RenderTrail plots a trail of world points onto c.
func RenderTrail(c *Canvas, trail []mgl64.Vec3, cam *Camera) {
	w, h := c.PixelSize()
	for _, p := range trail {
		if x, y, _, ok := cam.Project(p, w, h); ok {
			c.Set(x, y)
		}
	}
}
