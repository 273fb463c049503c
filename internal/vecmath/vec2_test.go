package vecmath

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestVec2AddSub(t *testing.T) {
	a := Vec2{1, 2}
	b := Vec2{3, -1}
	if got := a.Add(b); got != (Vec2{4, 1}) {
		t.Errorf("Add = %v, want {4, 1}", got)
	}
	if got := a.Sub(b); got != (Vec2{-2, 3}) {
		t.Errorf("Sub = %v, want {-2, 3}", got)
	}
}

func TestVec2Length(t *testing.T) {
	v := Vec2{3, 4}
	if got := v.Length(); !almostEqual(got, 5, 1e-9) {
		t.Errorf("Length = %v, want 5", got)
	}
}

func TestVec2NormalizeZeroSafe(t *testing.T) {
	if got := Zero.Normalize(); got != Zero {
		t.Errorf("Normalize of zero vector = %v, want zero", got)
	}
	v := Vec2{0, 5}.Normalize()
	if !almostEqual(v.Length(), 1, 1e-9) {
		t.Errorf("Normalize length = %v, want 1", v.Length())
	}
}

func TestVec2DotCross(t *testing.T) {
	a := Vec2{1, 0}
	b := Vec2{0, 1}
	if got := a.Dot(b); got != 0 {
		t.Errorf("Dot = %v, want 0", got)
	}
	if got := a.Cross(b); got != 1 {
		t.Errorf("Cross = %v, want 1", got)
	}
}

func TestVec2Rotate(t *testing.T) {
	v := Vec2{1, 0}
	got := v.Rotate(math.Pi / 2)
	if !almostEqual(got.X, 0, 1e-9) || !almostEqual(got.Y, 1, 1e-9) {
		t.Errorf("Rotate(90deg) = %v, want {0, 1}", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 1) != 1 {
		t.Error("Clamp should cap to hi")
	}
	if Clamp(-5, 0, 1) != 0 {
		t.Error("Clamp should floor to lo")
	}
	if Clamp(0.5, 0, 1) != 0.5 {
		t.Error("Clamp should pass through in-range values")
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(0, 10, 0.5); got != 5 {
		t.Errorf("Lerp(0, 10, 0.5) = %v, want 5", got)
	}
}

func TestAngleConversions(t *testing.T) {
	if !almostEqual(DegToRad(180), math.Pi, 1e-9) {
		t.Error("DegToRad(180) should equal pi")
	}
	if !almostEqual(RadToDeg(math.Pi), 180, 1e-9) {
		t.Error("RadToDeg(pi) should equal 180")
	}
}
