package coordinates

import (
	"math"
	"testing"
)

func matricesClose(a, b Matrix3x3, eps float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(a[i][j]-b[i][j]) > eps {
				return false
			}
		}
	}
	return true
}

// TestRotationMatrix tests the rotation primitives.
func TestRotationMatrix(t *testing.T) {
	axes := []Axis{AxisX, AxisY, AxisZ}

	t.Run("Zero angle is identity", func(t *testing.T) {
		for _, axis := range axes {
			if m := RotationMatrix(axis, 0); m != Identity() {
				t.Errorf("Expected identity for axis %d, got %v", axis, m)
			}
		}
	})

	t.Run("Opposite angles cancel", func(t *testing.T) {
		for _, axis := range axes {
			for _, theta := range []float64{1, 23.4, 90, 137.5, -200} {
				m := RotationMatrix(axis, theta).Mul(RotationMatrix(axis, -theta))
				if !matricesClose(m, Identity(), 1e-15) {
					t.Errorf("Expected identity for axis %d, angle %f, got %v", axis, theta, m)
				}
			}
		}
	})

	t.Run("Transpose is the inverse", func(t *testing.T) {
		m := RotationMatrix(AxisZ, 40).Mul(RotationMatrix(AxisX, -12)).Mul(RotationMatrix(AxisY, 77))
		if !matricesClose(m.Mul(m.Transpose()), Identity(), 1e-15) {
			t.Error("Expected m·mᵀ to be identity")
		}
	})

	t.Run("Z rotation is counterclockwise", func(t *testing.T) {
		v := RotationMatrix(AxisZ, 90).MulVec(Vector3{X: 1})
		if math.Abs(v.X) > 1e-15 || math.Abs(v.Y-1) > 1e-15 {
			t.Errorf("Expected X to rotate onto Y, got %+v", v)
		}
	})

	t.Run("Angles are degrees", func(t *testing.T) {
		// pi radians would be a 180 degree turn; in degrees it is barely a nudge
		v := RotationMatrix(AxisZ, math.Pi).MulVec(Vector3{X: 1})
		if v.X < 0.99 {
			t.Errorf("Expected a small rotation, got %+v", v)
		}
	})
}

// TestEquatorialVectorRoundTrip tests spherical to Cartesian conversion.
func TestEquatorialVectorRoundTrip(t *testing.T) {
	for ra := 0.0; ra < 360.0; ra += 17.3 {
		for dec := -89.5; dec < 90.0; dec += 11.9 {
			for _, r := range []float64{0.2, 1, 5.2} {
				in := Equatorial{Radius: r, RightAscension: ra, Declination: dec}
				out := VectorToEquatorial(EquatorialToVector(in))

				if math.Abs(out.Radius-r) > 1e-12 {
					t.Fatalf("Radius: expected %f, got %f", r, out.Radius)
				}
				if math.Abs(out.RightAscension-ra) > 1e-9 {
					t.Fatalf("RA: expected %f, got %f", ra, out.RightAscension)
				}
				if math.Abs(out.Declination-dec) > 1e-9 {
					t.Fatalf("Dec: expected %f, got %f", dec, out.Declination)
				}
			}
		}
	}
}

// TestEquatorialToVector tests the axis conventions.
func TestEquatorialToVector(t *testing.T) {
	tests := []struct {
		name     string
		in       Equatorial
		expected Vector3
	}{
		{"Vernal equinox", Equatorial{Radius: 1, RightAscension: 0, Declination: 0}, Vector3{X: 1}},
		{"Six hours", Equatorial{Radius: 2, RightAscension: 90, Declination: 0}, Vector3{Y: 2}},
		{"North pole", Equatorial{Radius: 1, RightAscension: 45, Declination: 90}, Vector3{Z: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := EquatorialToVector(tt.in)
			if v.Sub(tt.expected).Length() > 1e-12 {
				t.Errorf("Expected %+v, got %+v", tt.expected, v)
			}
		})
	}
}

// TestVectorLength tests the norm.
func TestVectorLength(t *testing.T) {
	if got := (Vector3{X: 3, Y: 4, Z: 12}).Length(); got != 13 {
		t.Errorf("Expected 13, got %f", got)
	}
}
