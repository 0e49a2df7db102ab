package eyepiece

import (
	"errors"
	"math"
	"testing"
)

func TestTelescopeBuilderValidation(t *testing.T) {
	if _, err := NewTelescope(-1).Build(); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("negative diameter: got %v, want ErrInvalidGeometry", err)
	}
	if _, err := NewTelescope(0).Build(); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("zero diameter: got %v, want ErrInvalidGeometry", err)
	}
	if _, err := NewTelescope(2).Obscuration(1.5).Build(); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("obscuration wider than pupil: got %v, want ErrInvalidGeometry", err)
	}
	if _, err := NewTelescope(8).Obscuration(0.5).Build(); err != nil {
		t.Errorf("valid telescope: unexpected error %v", err)
	}
}

func TestTelescopeInsidePupil(t *testing.T) {
	hst := NewHST()
	cases := []struct {
		x, y float64
		want bool
	}{
		{0.0, 0.0, false},  // central obscuration
		{0.1, 0.0, false},  // still inside the 0.3m obscuration radius
		{1.0, 0.0, true},   // annulus
		{0.0, -1.1, true},  // annulus, other axis
		{1.3, 0.0, false},  // outside the 1.2m outer radius
		{0.9, 0.9, false},  // corner outside the circle
		{0.31, 0.0, true},  // just clear of the obscuration
	}
	for _, c := range cases {
		if got := hst.InsidePupil(c.x, c.y); got != c.want {
			t.Errorf("HST InsidePupil(%g, %g) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestTelescopeArea(t *testing.T) {
	tel, err := NewTelescope(8).Obscuration(0.5).Build()
	if err != nil {
		t.Fatal(err)
	}
	want := math.Pi * (16.0 - 0.25)
	got := PupilArea(tel, 1e-2)
	if rel := math.Abs(got-want) / want; rel > 2e-2 {
		t.Errorf("area = %g, want %g within 2%%", got, want)
	}
}

func TestHexagonMembership(t *testing.T) {
	hex := NewHexagon(0, 0, 2) // flats at y = +/-1, vertices at x = +/-2/sqrt(3)
	cases := []struct {
		x, y float64
		want bool
	}{
		{0, 0, true},
		{0, 0.99, true},
		{0, 1.01, false},
		{1.14, 0, true},
		{1.17, 0, false},
		{0.9, 0.9, false}, // cut by the 30 degree flat
		{0.5, 0.5, true},
	}
	for _, c := range cases {
		if got := hex.InsidePupil(c.x, c.y); got != c.want {
			t.Errorf("InsidePupil(%g, %g) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
	// Off-center hexagons test in their own frame.
	shifted := NewHexagon(3, -2, 2)
	if !shifted.InsidePupil(3, -2) || shifted.InsidePupil(3, -0.9) {
		t.Error("shifted hexagon membership not relative to its origin")
	}
}

func TestHexagonDiameter(t *testing.T) {
	hex := NewHexagon(0, 0, 2)
	want := 2.0 / math.Cos(30*math.Pi/180) // vertex-to-vertex
	if got := hex.Diameter(); math.Abs(got-want) > 1e-12 {
		t.Errorf("diameter = %g, want %g", got, want)
	}
}

func TestJWSTPupil(t *testing.T) {
	jwst := NewJWST()
	if n := len(jwst.Segments()); n != 18 {
		t.Fatalf("JWST has %d segments, want 18", n)
	}
	if jwst.InsidePupil(0, 0) {
		t.Error("JWST center should be open")
	}
	// Every segment origin must be on the pupil.
	for i, hex := range jwst.Segments() {
		if !jwst.InsidePupil(hex.originX, hex.originY) {
			t.Errorf("segment %d origin not inside pupil", i)
		}
	}
	if got := jwst.Diameter(); got != 6.6 {
		t.Errorf("diameter = %g, want 6.6", got)
	}
}

func TestGMTPupil(t *testing.T) {
	gmt := NewGMT()
	if gmt.InsidePupil(0.5, 0) {
		t.Error("center segment hole should be open")
	}
	if !gmt.InsidePupil(2.5, 0) {
		t.Error("center segment annulus should be filled")
	}
	if gmt.InsidePupil(4.3, 0) {
		t.Error("gap between center and outer segments should be open")
	}
	if !gmt.InsidePupil(8.5675, 0) {
		t.Error("outer segment center should be filled")
	}
	// Seven segments minus the center hole.
	want := 7*math.Pi*math.Pow(8.365*0.5, 2) - math.Pi*math.Pow(1.8, 2)
	got := PupilArea(gmt, DefaultPupilResolution)
	if rel := math.Abs(got-want) / want; rel > 1e-2 {
		t.Errorf("GMT area = %g, want %g within 1%%", got, want)
	}
}

func TestParsePreset(t *testing.T) {
	for _, name := range []string{"HST", "jwst", " Gmt "} {
		if _, err := ParsePreset(name); err != nil {
			t.Errorf("ParsePreset(%q): unexpected error %v", name, err)
		}
	}
	if _, err := ParsePreset("ELT"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("ParsePreset(ELT): got %v, want ErrUnknownPreset", err)
	}
}

func TestPupilSampling(t *testing.T) {
	tel, err := NewTelescope(8).Build()
	if err != nil {
		t.Fatal(err)
	}
	resolution := DefaultPupilResolution
	n := pupilSide(tel.Diameter(), resolution)
	if n != 321 {
		t.Fatalf("pupil side = %d, want 321", n)
	}
	pupil := Pupil(tel, resolution, 0, 0)
	if len(pupil) != n*n {
		t.Fatalf("pupil length = %d, want %d", len(pupil), n*n)
	}
	// The grid is centered: the middle sample sits at (0, 0).
	if pupil[(n/2)*n+n/2] != 1 {
		t.Error("center sample should be on the pupil")
	}
	// Corners are outside the circle.
	if pupil[0] != 0 || pupil[n*n-1] != 0 {
		t.Error("corner samples should be off the pupil")
	}
}

func TestPupilTipTiltPhase(t *testing.T) {
	tel, err := NewTelescope(2).Build()
	if err != nil {
		t.Fatal(err)
	}
	pupil := Pupil(tel, 0.25, 0.77, -0.33)
	n := pupilSide(tel.Diameter(), 0.25)
	// Tip-tilt only rotates the phase: magnitudes stay 0 or 1.
	for k, p := range pupil {
		m := math.Hypot(real(p), imag(p))
		if m != 0 && math.Abs(m-1) > 1e-12 {
			t.Fatalf("sample %d magnitude = %g, want 0 or 1", k, m)
		}
	}
	// The central sample is at x = y = 0 where the phase vanishes.
	center := pupil[(n/2)*n+n/2]
	if math.Abs(real(center)-1) > 1e-12 || math.Abs(imag(center)) > 1e-12 {
		t.Errorf("center sample = %v, want 1+0i", center)
	}
}
