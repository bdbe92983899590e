package dynamo

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// JointKind selects the constrained directions of a constraint.
type JointKind int

const (
	// Spherical is a ball joint: the attachment points coincide, rotation is
	// free.
	Spherical JointKind = iota

	// Weld locks both the attachment points and their relative orientation.
	Weld

	numJointKinds
)

var jointNames = [numJointKinds]string{
	Spherical: "spherical",
	Weld:      "weld",
}

// jointDirections lists, per kind, the rows of the 6-column direction matrix
// as indices of the unit vectors they select (linear 0-2, angular 3-5).
var jointDirections = [numJointKinds][]int{
	Spherical: {0, 1, 2},
	Weld:      {0, 1, 2, 3, 4, 5},
}

func (k JointKind) Valid() bool { return k >= 0 && k < numJointKinds }

// Rank is the number of constrained directions.
func (k JointKind) Rank() int { return len(jointDirections[k]) }

// Directions returns a new Rank()×6 direction matrix.
func (k JointKind) Directions() *mat.Dense {
	rows := jointDirections[k]
	d := mat.NewDense(len(rows), 6, nil)
	for i, c := range rows {
		d.Set(i, c, 1)
	}
	return d
}

func (k JointKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("JointKind(%d)", int(k))
	}
	return jointNames[k]
}

// ParseJointKind accepts the names printed by String, case-insensitive. "ball"
// is accepted for Spherical.
func ParseJointKind(s string) (JointKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "ball" {
		return Spherical, nil
	}
	for k, n := range jointNames {
		if n == name {
			return JointKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown joint kind: %q", s)
}
