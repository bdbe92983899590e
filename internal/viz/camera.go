package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera projects world points onto a canvas. With zero yaw and pitch it
// looks along +y with +z up, so the x-z plane fills the screen.
type Camera struct {
	Yaw, Pitch float64
	Zoom       float64
	Center     mgl64.Vec3
	// Extent is the world half-width that fits the shorter canvas side at
	// unit zoom.
	Extent float64
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1, Extent: 1}
}

func (c *Camera) Rotate(yaw, pitch float64) {
	c.Yaw += yaw
	c.Pitch = mgl64.Clamp(c.Pitch+pitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) orientation() mgl64.Quat {
	pitch := mgl64.QuatRotate(c.Pitch, mgl64.Vec3{1, 0, 0})
	yaw := mgl64.QuatRotate(c.Yaw, mgl64.Vec3{0, 0, 1})
	return pitch.Mul(yaw)
}

// Project maps p to sub-pixel coordinates on a w x h pixel area. It also
// returns the depth along the view direction and whether the point lands
// inside the area.
func (c *Camera) Project(p mgl64.Vec3, w, h int) (int, int, float64, bool) {
	q := c.orientation().Rotate(p.Sub(c.Center))
	side := w
	if h < side {
		side = h
	}
	scale := c.Zoom * float64(side) / (2 * c.Extent)
	x := int(math.Round(float64(w)/2 + q.X()*scale))
	y := int(math.Round(float64(h)/2 - q.Z()*scale))
	return x, y, q.Y(), x >= 0 && x < w && y >= 0 && y < h
}

// Fit centres the camera on pts and sets Extent so that all of them stay in
// view under any rotation.
func (c *Camera) Fit(pts []mgl64.Vec3) {
	if len(pts) == 0 {
		return
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	c.Center = lo.Add(hi).Mul(0.5)
	c.Extent = math.Max(0.5, 1.2*hi.Sub(lo).Len()/2)
}
