package eyepiece

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// DefaultPupilResolution is the pupil sampling step in meters.
const DefaultPupilResolution = 2.5e-2

// Observer is a telescope pupil. Anything with a bounding diameter and a
// point membership test can source a pupil map.
type Observer interface {
	// Diameter returns the pupil bounding diameter in meters.
	Diameter() float64
	// InsidePupil reports whether the point (x, y), in meters from the pupil
	// center, falls on the collecting area.
	InsidePupil(x, y float64) bool
}

// pupilSide returns the sample count across a pupil of the given diameter.
func pupilSide(diameter, resolution float64) int {
	return int(math.Round(diameter/resolution)) + 1
}

// Pupil samples the observer transmission mask on a square grid with the
// given resolution in meters. Row index maps to y, column index to x. A
// non-zero tip-tilt (hx, hy), in cycles per meter, is applied as the phase
// exp(-2i pi (x hx + y hy)); its image-plane effect is a sub-pixel shift.
func Pupil(obs Observer, resolution, hx, hy float64) []complex128 {
	diameter := obs.Diameter()
	nPx := pupilSide(diameter, resolution)
	l := float64(nPx - 1)
	buffer := make([]complex128, nPx*nPx)
	if hx == 0 && hy == 0 {
		for i := 0; i < nPx; i++ {
			y := (float64(i)/l - 0.5) * diameter
			for j := 0; j < nPx; j++ {
				x := (float64(j)/l - 0.5) * diameter
				if obs.InsidePupil(x, y) {
					buffer[i*nPx+j] = 1
				}
			}
		}
		return buffer
	}
	for i := 0; i < nPx; i++ {
		y := (float64(i)/l - 0.5) * diameter
		for j := 0; j < nPx; j++ {
			x := (float64(j)/l - 0.5) * diameter
			if obs.InsidePupil(x, y) {
				buffer[i*nPx+j] = cmplx.Rect(1, -2*math.Pi*(x*hx+y*hy))
			}
		}
	}
	return buffer
}

// PupilArea returns the collecting area in m^2, counted on the sampled grid.
func PupilArea(obs Observer, resolution float64) float64 {
	pupil := Pupil(obs, resolution, 0, 0)
	var count float64
	for _, p := range pupil {
		if real(p)*real(p)+imag(p)*imag(p) > 0 {
			count++
		}
	}
	return count * resolution * resolution
}

// Telescope is a circular pupil with an optional central obscuration.
type Telescope struct {
	diameter    float64
	obscuration float64 // inner radius in meters, 0 when unobscured
}

// TelescopeBuilder assembles a Telescope.
type TelescopeBuilder struct {
	diameter    float64
	obscuration float64
}

// NewTelescope starts a telescope builder for the given primary mirror
// diameter in meters.
func NewTelescope(diameter float64) *TelescopeBuilder {
	return &TelescopeBuilder{diameter: diameter}
}

// Obscuration sets the central obscuration radius in meters.
func (b *TelescopeBuilder) Obscuration(radius float64) *TelescopeBuilder {
	b.obscuration = radius
	return b
}

// Build validates the geometry and returns the telescope.
func (b *TelescopeBuilder) Build() (Telescope, error) {
	if b.diameter <= 0 {
		return Telescope{}, fmt.Errorf("%w: diameter %gm", ErrInvalidGeometry, b.diameter)
	}
	if b.obscuration < 0 || 2*b.obscuration >= b.diameter {
		return Telescope{}, fmt.Errorf("%w: obscuration radius %gm for a %gm pupil",
			ErrInvalidGeometry, b.obscuration, b.diameter)
	}
	return Telescope{diameter: b.diameter, obscuration: b.obscuration}, nil
}

func (t Telescope) Diameter() float64 { return t.diameter }

func (t Telescope) InsidePupil(x, y float64) bool {
	r := math.Hypot(x, y)
	return r >= t.obscuration && r <= 0.5*t.diameter
}

func (t Telescope) String() string {
	if t.obscuration > 0 {
		return fmt.Sprintf("%gm telescope (%gm obscuration radius), %.3fm^2 collection area",
			t.diameter, t.obscuration, PupilArea(t, DefaultPupilResolution))
	}
	return fmt.Sprintf("%gm telescope, %.3fm^2 collection area",
		t.diameter, PupilArea(t, DefaultPupilResolution))
}

// NewHST returns the Hubble Space Telescope pupil: 2.4m diameter with a 0.3m
// obscuration radius.
func NewHST() Telescope {
	return Telescope{diameter: 2.4, obscuration: 0.3}
}

// ParsePreset maps a telescope name onto its pupil. The preset table is
// closed: HST, JWST and GMT.
func ParsePreset(name string) (Observer, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "HST":
		return NewHST(), nil
	case "JWST":
		return NewJWST(), nil
	case "GMT":
		return NewGMT(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}
