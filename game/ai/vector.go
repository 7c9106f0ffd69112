package ai

import "math"

// Vec3 is a world-space vector. Y is up; agents move on the XZ plane.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Up is the world up axis.
var Up = Vec3{0, 1, 0}

// WorldForward is the forward axis used by world-frame steering.
var WorldForward = Vec3{0, 0, 1}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) LenSq() float64       { return v.Dot(v) }
func (v Vec3) Len() float64         { return math.Sqrt(v.LenSq()) }
func (v Vec3) IsZero() bool         { return v.X == 0 && v.Y == 0 && v.Z == 0 }

// Cross returns v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Normalize returns the unit vector of v, or the zero vector when v is zero.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < 1e-9 {
		return Vec3{}
	}
	inv := 1 / l
	return Vec3{v.X * inv, v.Y * inv, v.Z * inv}
}

// Flat drops the vertical component.
func (v Vec3) Flat() Vec3 { return Vec3{v.X, 0, v.Z} }

// RotateY rotates v around the up axis by deg degrees.
// Positive angles turn forward (+Z) toward right (+X).
func (v Vec3) RotateY(deg float64) Vec3 {
	rad := deg * math.Pi / 180
	s, c := math.Sin(rad), math.Cos(rad)
	return Vec3{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}

// Distance returns |a - b|.
func Distance(a, b Vec3) float64 { return a.Sub(b).Len() }

// FlatDistance returns the distance between a and b on the XZ plane.
func FlatDistance(a, b Vec3) float64 { return a.Sub(b).Flat().Len() }

// Angle returns the unsigned angle between a and b in degrees.
func Angle(a, b Vec3) float64 {
	an, bn := a.Normalize(), b.Normalize()
	if an.IsZero() || bn.IsZero() {
		return 0
	}
	d := clamp(an.Dot(bn), -1, 1)
	return math.Acos(d) * 180 / math.Pi
}

// Slerp spherically interpolates between two directions. Magnitudes are
// interpolated linearly. t is clamped to [0, 1].
func Slerp(from, to Vec3, t float64) Vec3 {
	t = clamp(t, 0, 1)
	if from.IsZero() {
		return to.Scale(t)
	}
	if to.IsZero() {
		return from.Scale(1 - t)
	}
	lf, lt := from.Len(), to.Len()
	a, b := from.Scale(1/lf), to.Scale(1/lt)
	d := clamp(a.Dot(b), -1, 1)
	mag := lf + (lt-lf)*t

	if d > 0.9995 {
		return a.Add(b.Sub(a).Scale(t)).Normalize().Scale(mag)
	}
	if d < -0.9995 {
		// Opposite directions: rotate through the horizontal perpendicular.
		axis := Up.Cross(a).Normalize()
		if axis.IsZero() {
			axis = Vec3{1, 0, 0}
		}
		theta := math.Pi * t
		return a.Scale(math.Cos(theta)).Add(axis.Scale(math.Sin(theta))).Scale(mag)
	}
	theta := math.Acos(d) * t
	rel := b.Sub(a.Scale(d)).Normalize()
	return a.Scale(math.Cos(theta)).Add(rel.Scale(math.Sin(theta))).Scale(mag)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

