// Package spatial provides the 6-DOF algebra used by the multibody solver.
//
// The package defines two value types:
//
//   - [Screw]: a spatial vector with a linear and an angular part, used for
//     velocities, accelerations, forces and pose errors
//   - [Pose]: a rigid transform (rotation + translation)
//
// [Exp] and [Log] convert between the two: Exp turns a velocity·dt screw into
// a pose increment, Log turns a pose (usually a relative pose error) into a
// 6-vector.
//
// # Frames
//
// A Screw carries no frame tag. Callers keep track of the frame and of the
// reference point a screw is expressed at, and move it explicitly with
// [Screw.Rotate] and [Screw.Carry].
package spatial
