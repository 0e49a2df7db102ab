package eyepiece

import (
	"fmt"
	"math"
)

// Hexagon is a regular hexagonal aperture with two horizontal flats, set by
// its origin and flat-to-flat size. Units are whatever the caller samples
// with: meters for pupils, pixels for focal-plane masks.
type Hexagon struct {
	originX, originY float64
	flatToFlat       float64
}

// NewHexagon returns the hexagon centered at (x, y) with the given
// flat-to-flat size.
func NewHexagon(x, y, flatToFlat float64) Hexagon {
	return Hexagon{originX: x, originY: y, flatToFlat: flatToFlat}
}

func (h Hexagon) Diameter() float64 {
	return 2 * (math.Hypot(h.originX, h.originY) + 0.5*h.flatToFlat/math.Cos(30*math.Pi/180))
}

func (h Hexagon) InsidePupil(x, y float64) bool {
	d := 0.5 * h.flatToFlat
	for _, o := range [2]float64{-30 * math.Pi / 180, 30 * math.Pi / 180} {
		so, co := math.Sincos(o)
		xp := (x-h.originX)*co + (y-h.originY)*so
		if math.Abs(xp) > d {
			return false
		}
	}
	return math.Abs(y-h.originY) <= d
}

// JWST is the James Webb Space Telescope pupil: 18 hexagonal segments in
// three rings around an open center.
type JWST struct {
	segments []Hexagon
}

// NewJWST returns the James Webb Space Telescope pupil.
func NewJWST() JWST {
	const f2f = 1.32
	segments := make([]Hexagon, 0, 18)
	for i := 0; i < 6; i++ {
		o := (30 + float64(i)*60) * math.Pi / 180
		segments = append(segments, NewHexagon(f2f*math.Cos(o), f2f*math.Sin(o), f2f))
	}
	for i := 0; i < 6; i++ {
		o := float64(i) * 60 * math.Pi / 180
		r := 3 * f2f / math.Sqrt(3)
		segments = append(segments, NewHexagon(r*math.Cos(o), r*math.Sin(o), f2f))
	}
	for i := 0; i < 6; i++ {
		o := (30 + float64(i)*60) * math.Pi / 180
		segments = append(segments, NewHexagon(2*f2f*math.Cos(o), 2*f2f*math.Sin(o), f2f))
	}
	return JWST{segments: segments}
}

// Segments returns the 18 hexagonal segments.
func (t JWST) Segments() []Hexagon { return t.segments }

func (t JWST) Diameter() float64 { return 6.6 }

func (t JWST) InsidePupil(x, y float64) bool {
	for _, hex := range t.segments {
		if hex.InsidePupil(x, y) {
			return true
		}
	}
	return false
}

func (t JWST) String() string {
	return fmt.Sprintf("JWST: %gm diameter, %d segments, %.3fm^2 collection area",
		t.Diameter(), len(t.segments), PupilArea(t, DefaultPupilResolution))
}

// GMT is the Giant Magellan Telescope pupil: seven 8.365m circular segments,
// the center one pierced by a 3.6m hole. Segments are laid out flat; the
// radial foreshortening of the tilted outer segments is below the default
// pupil sampling and is ignored.
type GMT struct{}

// NewGMT returns the Giant Magellan Telescope pupil.
func NewGMT() GMT { return GMT{} }

func (GMT) Diameter() float64 { return 25.5 }

func (t GMT) InsidePupil(x, y float64) bool {
	const (
		rOuter = 8.365 * 0.5
		rInner = 3.6 * 0.5
		ring   = (25.5 - 8.365) * 0.5
	)
	if r := math.Hypot(x, y); r <= rOuter {
		return r >= rInner
	}
	for i := 0; i < 6; i++ {
		o := float64(i) * 60 * math.Pi / 180
		if math.Hypot(x-ring*math.Cos(o), y-ring*math.Sin(o)) <= rOuter {
			return true
		}
	}
	return false
}

func (t GMT) String() string {
	return fmt.Sprintf("GMT: %gm diameter, %.3fm^2 collection area",
		t.Diameter(), PupilArea(t, DefaultPupilResolution))
}
