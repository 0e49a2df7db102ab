// Package ifu applies integral field unit apertures to rendered field
// images and measures the flux fraction they pass.
//
// Geometries are laid out in pixel units on the image grid: column j maps
// to x = j - (m-1)/2 and row i to y = i - (m-1)/2 for an m pixel frame.
// A geometry sits at the field center unless placed with an At variant.
package ifu

import (
	"fmt"
	"math"

	"github.com/rconan/eyepiece"
)

// Geometry is a focal-plane aperture in pixel units.
type Geometry interface {
	// Inside reports whether the point (x, y), in pixels from the geometry
	// center, falls on the open area.
	Inside(x, y float64) bool
	// Extent returns the width and height of the geometry bounding box in
	// pixels.
	Extent() (w, h float64)
}

// Bundle is a seven-hexagon IFU: a center hexagon and a ring of six
// neighbors, each one flat-to-flat width away.
type Bundle struct {
	hexagons   []eyepiece.Hexagon
	flatToFlat float64
}

// NewBundle returns the seven-hexagon bundle with the given hexagon
// flat-to-flat size in pixels.
func NewBundle(flatToFlat float64) (Bundle, error) {
	if flatToFlat <= 0 || math.IsNaN(flatToFlat) {
		return Bundle{}, fmt.Errorf("%w: %g px hexagon flat-to-flat", eyepiece.ErrInvalidGeometry, flatToFlat)
	}
	s, c := math.Sincos(math.Pi / 6)
	f := flatToFlat
	return Bundle{
		hexagons: []eyepiece.Hexagon{
			eyepiece.NewHexagon(0, 0, f),
			eyepiece.NewHexagon(0, f, f),
			eyepiece.NewHexagon(0, -f, f),
			eyepiece.NewHexagon(c*f, s*f, f),
			eyepiece.NewHexagon(c*f, -s*f, f),
			eyepiece.NewHexagon(-c*f, s*f, f),
			eyepiece.NewHexagon(-c*f, -s*f, f),
		},
		flatToFlat: f,
	}, nil
}

// Hexagons returns the bundle segments, center hexagon first.
func (b Bundle) Hexagons() []eyepiece.Hexagon { return b.hexagons }

func (b Bundle) Inside(x, y float64) bool {
	for _, hex := range b.hexagons {
		if hex.InsidePupil(x, y) {
			return true
		}
	}
	return false
}

func (b Bundle) Extent() (float64, float64) {
	// Widest along x through the vertices of the diagonal ring hexagons,
	// tallest along y through the flats of the top and bottom ones.
	return 5 * b.flatToFlat / math.Sqrt(3), 3 * b.flatToFlat
}

// Aperture is a circular IFU of the given diameter.
type Aperture struct {
	diameter float64
}

// NewAperture returns the circular aperture with the given diameter in
// pixels.
func NewAperture(diameter float64) (Aperture, error) {
	if diameter <= 0 || math.IsNaN(diameter) {
		return Aperture{}, fmt.Errorf("%w: %g px aperture diameter", eyepiece.ErrInvalidGeometry, diameter)
	}
	return Aperture{diameter: diameter}, nil
}

func (a Aperture) Inside(x, y float64) bool {
	return math.Hypot(x, y) <= 0.5*a.diameter
}

func (a Aperture) Extent() (float64, float64) {
	return a.diameter, a.diameter
}

// Slit is a rectangular aperture, width across x and length along y.
type Slit struct {
	width, length float64
}

// NewSlit returns the slit with the given width and length in pixels.
func NewSlit(width, length float64) (Slit, error) {
	if width <= 0 || length <= 0 || math.IsNaN(width) || math.IsNaN(length) {
		return Slit{}, fmt.Errorf("%w: %g x %g px slit", eyepiece.ErrInvalidGeometry, width, length)
	}
	return Slit{width: width, length: length}, nil
}

func (s Slit) Inside(x, y float64) bool {
	return math.Abs(x) < 0.5*s.width && math.Abs(y) < 0.5*s.length
}

func (s Slit) Extent() (float64, float64) {
	return s.width, s.length
}

// Masked returns a copy of img with every pixel outside the geometry
// zeroed, the geometry centered on the field.
func Masked(img *eyepiece.FieldImage, g Geometry) (*eyepiece.FieldImage, error) {
	return MaskedAt(img, g, 0, 0)
}

// MaskedAt is Masked with the geometry center placed at (centerX, centerY)
// in pixels from the field center. A placement pushing the geometry
// bounding box past the image edge fails with ErrGeometryOutOfBounds.
func MaskedAt(img *eyepiece.FieldImage, g Geometry, centerX, centerY float64) (*eyepiece.FieldImage, error) {
	w, h := g.Extent()
	half := 0.5 * float64(img.Side)
	if centerX-0.5*w < -half || centerX+0.5*w > half ||
		centerY-0.5*h < -half || centerY+0.5*h > half {
		return nil, fmt.Errorf("%w: %g x %g px geometry centered at (%g, %g) in a %d px field",
			eyepiece.ErrGeometryOutOfBounds, w, h, centerX, centerY, img.Side)
	}
	n := img.Side
	c := 0.5 * float64(n-1)
	masked := &eyepiece.FieldImage{
		Data:       make([]float64, len(img.Data)),
		Side:       n,
		PixelScale: img.PixelScale,
		Band:       img.Band,
		Exposure:   img.Exposure,
	}
	for i := 0; i < n; i++ {
		y := float64(i) - c - centerY
		for j := 0; j < n; j++ {
			x := float64(j) - c - centerX
			if g.Inside(x, y) {
				masked.Data[i*n+j] = img.Data[i*n+j]
			}
		}
	}
	return masked, nil
}

// Report carries a masked frame and the flux fraction it passes.
type Report struct {
	// Masked is the input frame with pixels outside the geometry zeroed.
	Masked *eyepiece.FieldImage
	// Throughput is the masked flux over the total flux, in [0, 1]. A frame
	// with no flux reports 0.
	Throughput float64
	// Hexagons holds the flux fraction through each segment alone when the
	// geometry is a Bundle, in the order of Bundle.Hexagons. Segments share
	// edges, so the fractions can sum to slightly more than Throughput.
	Hexagons []float64
}

// Measure masks img with the geometry centered on the field and returns the
// masked frame and its throughput.
func Measure(img *eyepiece.FieldImage, g Geometry) (Report, error) {
	return MeasureAt(img, g, 0, 0)
}

// MeasureAt is Measure with the geometry center placed at (centerX,
// centerY) in pixels from the field center.
func MeasureAt(img *eyepiece.FieldImage, g Geometry, centerX, centerY float64) (Report, error) {
	masked, err := MaskedAt(img, g, centerX, centerY)
	if err != nil {
		return Report{}, err
	}
	total := img.Flux()
	report := Report{Masked: masked}
	if total > 0 {
		report.Throughput = masked.Flux() / total
	}
	bundle, ok := g.(Bundle)
	if !ok {
		return report, nil
	}
	report.Hexagons = make([]float64, len(bundle.hexagons))
	n := img.Side
	c := 0.5 * float64(n-1)
	for k, hex := range bundle.hexagons {
		var flux float64
		for i := 0; i < n; i++ {
			y := float64(i) - c - centerY
			for j := 0; j < n; j++ {
				x := float64(j) - c - centerX
				if hex.InsidePupil(x, y) {
					flux += img.Data[i*n+j]
				}
			}
		}
		if total > 0 {
			report.Hexagons[k] = flux / total
		}
	}
	return report, nil
}
