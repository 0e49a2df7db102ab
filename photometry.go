package eyepiece

import (
	"fmt"
	"math"
)

// Photometry identifies an astronomical photometric band.
type Photometry int

// The supported bands, visible to near-infrared.
const (
	BandV Photometry = iota
	BandR
	BandI
	BandJ
	BandH
	BandK
)

type photometryData struct {
	wavelength float64 // effective wavelength in meters
	zeropoint  float64 // photon/s/m^2 at magnitude 0
	bandwidth  float64 // spectral bandwidth in meters
}

var photometryTable = [...]photometryData{
	BandV: {0.55e-6, 8.97e9, 0.09e-6},
	BandR: {0.64e-6, 10.87e9, 0.15e-6},
	BandI: {0.79e-6, 7.34e9, 0.15e-6},
	BandJ: {1.215e-6, 5.16e9, 0.26e-6},
	BandH: {1.654e-6, 2.99e9, 0.29e-6},
	BandK: {2.179e-6, 1.90e9, 0.41e-6},
}

var bandNames = [...]string{"V", "R", "I", "J", "H", "K"}

// PhotometricBands returns all supported bands in wavelength order.
func PhotometricBands() []Photometry {
	return []Photometry{BandV, BandR, BandI, BandJ, BandH, BandK}
}

// ParseBand converts a band name into its Photometry.
func ParseBand(band string) (Photometry, error) {
	for p, name := range bandNames {
		if band == name {
			return Photometry(p), nil
		}
	}
	return 0, fmt.Errorf("%w: photometric band %q, expected one of V, R, I, J, H, K",
		ErrInvalidParameter, band)
}

func (p Photometry) String() string {
	if p < 0 || int(p) >= len(bandNames) {
		return fmt.Sprintf("Photometry(%d)", int(p))
	}
	return bandNames[p]
}

// Wavelength returns the band effective wavelength in meters.
func (p Photometry) Wavelength() float64 { return photometryTable[p].wavelength }

// SpectralBandwidth returns the band spectral bandwidth in meters.
func (p Photometry) SpectralBandwidth() float64 { return photometryTable[p].bandwidth }

// NPhoton returns the photon flux in photon/s/m^2 of a star with the given
// apparent magnitude.
func (p Photometry) NPhoton(magnitude float64) float64 {
	return photometryTable[p].zeropoint * math.Pow(10, -0.4*magnitude)
}
