package biology

import "math"

// Vector3 is a 3D quantity such as a force or a strain.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Magnitude returns the Euclidean norm.
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Scale returns v with every component multiplied by k.
func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// IsZero reports whether every component is zero.
func (v Vector3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Finite reports whether every component is finite.
func (v Vector3) Finite() bool {
	return Finite(v.X) && Finite(v.Y) && Finite(v.Z)
}
