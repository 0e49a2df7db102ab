package eyepiece

import (
	"math"
)

// Degree converts an angle in degrees to radians.
func Degree(x float64) float64 {
	return x * math.Pi / 180.
}

// Arcsec converts an angle in arcseconds to radians.
func Arcsec(x float64) float64 {
	return x * math.Pi / (180. * 3600.)
}

// Mas converts an angle in milliarcseconds to radians.
func Mas(x float64) float64 {
	return Arcsec(x * 1e-3)
}

// ToArcsec converts an angle in radians to arcseconds.
func ToArcsec(x float64) float64 {
	return x * 180. * 3600. / math.Pi
}

// ToMas converts an angle in radians to milliarcseconds.
func ToMas(x float64) float64 {
	return ToArcsec(x) * 1e3
}

type pixelScaleKind int

const (
	pixelScaleNyquist pixelScaleKind = iota
	pixelScaleNyquistFraction
	pixelScaleAngle
)

// PixelScale is the detector resolution, given either relative to the
// telescope Nyquist sampling criterion 0.5λ/D or as an angle on the sky.
//
// The zero value is the Nyquist criterion itself, Nyquist(1).
type PixelScale struct {
	kind  pixelScaleKind
	count float64
	angle float64
	band  *Photometry
}

// Nyquist is the pixel scale at n times the Nyquist sampling criterion,
// n×0.5λ/D, evaluated at the field wavelength.
func Nyquist(n int) PixelScale {
	return PixelScale{kind: pixelScaleNyquist, count: float64(n)}
}

// NyquistAt is the pixel scale at n times the Nyquist sampling criterion
// evaluated at the wavelength of the given band instead of the field band.
func NyquistAt(n int, band Photometry) PixelScale {
	return PixelScale{kind: pixelScaleNyquist, count: float64(n), band: &band}
}

// NyquistFraction is the pixel scale at 1/n times the Nyquist sampling
// criterion, 0.5λ/D/n, evaluated at the field wavelength.
func NyquistFraction(n int) PixelScale {
	return PixelScale{kind: pixelScaleNyquistFraction, count: float64(n)}
}

// NyquistFractionAt is the pixel scale at 1/n times the Nyquist sampling
// criterion evaluated at the wavelength of the given band.
func NyquistFractionAt(n int, band Photometry) PixelScale {
	return PixelScale{kind: pixelScaleNyquistFraction, count: float64(n), band: &band}
}

// NewPixelScale is the pixel scale set to an angle on the sky in radians.
func NewPixelScale(angle float64) PixelScale {
	return PixelScale{kind: pixelScaleAngle, angle: angle}
}

func (s PixelScale) wavelength(band Photometry) float64 {
	if s.band != nil {
		return s.band.Wavelength()
	}
	return band.Wavelength()
}

// Resolution returns the pixel scale in radians.
func (s PixelScale) Resolution(observer Observer, band Photometry) float64 {
	n := s.count
	if n == 0 {
		n = 1
	}
	switch s.kind {
	case pixelScaleNyquist:
		return 0.5 * s.wavelength(band) / observer.Diameter() * n
	case pixelScaleNyquistFraction:
		return 0.5 * s.wavelength(band) / observer.Diameter() / n
	default:
		return s.angle
	}
}

// nyquistClampedRatio returns the ratio of the pixel scale to the Nyquist
// sampling criterion, clamped to 1 below Nyquist.  Star images are
// synthesized at the pixel scale over this ratio and binned back down.
func (s PixelScale) nyquistClampedRatio(observer Observer, band Photometry) float64 {
	switch s.kind {
	case pixelScaleNyquist:
		if s.count == 0 {
			return 1
		}
		return s.count
	case pixelScaleNyquistFraction:
		return 1
	default:
		return math.Ceil(2. * s.angle * observer.Diameter() / band.Wavelength())
	}
}

// belowNyquist reports whether the pixel scale undersamples the
// diffraction limit of the observer at the wavelength of the band.
func (s PixelScale) belowNyquist(observer Observer, band Photometry) bool {
	return s.Resolution(observer, band) > 0.5*band.Wavelength()/observer.Diameter()*(1.+1e-9)
}

type fieldOfViewKind int

const (
	fovPixelCount fieldOfViewKind = iota
	fovAngle
)

// FieldOfView is the extent of the field on the sky, given either as a
// number of pixels or as an angle in radians.
type FieldOfView struct {
	kind  fieldOfViewKind
	count float64
	angle float64
	band  *Photometry
}

// PixelCount is the field of view spanning n pixels.
func PixelCount(n int) FieldOfView {
	return FieldOfView{kind: fovPixelCount, count: float64(n)}
}

// PixelCountAt is the field of view spanning n pixels at the pixel scale
// evaluated in the given band instead of the field band.
func PixelCountAt(n int, band Photometry) FieldOfView {
	return FieldOfView{kind: fovPixelCount, count: float64(n), band: &band}
}

// NewFieldOfView is the field of view set to an angle on the sky in radians.
func NewFieldOfView(angle float64) FieldOfView {
	return FieldOfView{kind: fovAngle, angle: angle}
}

// Angle returns the field of view in radians.
func (f FieldOfView) Angle(scale PixelScale, observer Observer, band Photometry) float64 {
	switch f.kind {
	case fovPixelCount:
		if f.band != nil {
			band = *f.band
		}
		return scale.Resolution(observer, band) * f.count
	default:
		return f.angle
	}
}

// pixelScaleRatio returns the field of view as a number of pixels.
func (f FieldOfView) pixelScaleRatio(scale PixelScale, observer Observer, band Photometry) float64 {
	switch f.kind {
	case fovPixelCount:
		if f.band == nil {
			return f.count
		}
		return f.Angle(scale, observer, band) / scale.Resolution(observer, band)
	default:
		return f.angle / scale.Resolution(observer, band)
	}
}
