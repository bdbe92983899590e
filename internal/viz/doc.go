// Package viz draws running solvers in the terminal.
//
// [Model] is a Bubble Tea program that steps a solver, renders its bodies and
// joints on a braille [Canvas] through a rotatable [Camera], and records
// frames for replay. [Picker] lists the preset scenes and opens one in a
// [Model].
//
// # Key Bindings
//
//	Space  - Pause/Resume
//	R      - Rebuild the scene
//	[ ]    - Step through recorded frames
//	Arrows - Rotate the view
//	+ -    - Zoom
//	T      - Cycle color themes
//	?      - Show help
package viz
