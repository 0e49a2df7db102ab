package eyepiece

import (
	"errors"
	"math"
	"testing"
)

func TestParseBand(t *testing.T) {
	for _, name := range []string{"V", "R", "I", "J", "H", "K"} {
		p, err := ParseBand(name)
		if err != nil {
			t.Fatalf("ParseBand(%q): %v", name, err)
		}
		if p.String() != name {
			t.Errorf("ParseBand(%q).String() = %q", name, p.String())
		}
	}
	if _, err := ParseBand("L"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("ParseBand(L): got %v, want ErrInvalidParameter", err)
	}
}

func TestNPhotonZeropoint(t *testing.T) {
	// At magnitude 0 the flux is the band zero point.
	cases := map[Photometry]float64{
		BandV: 8.97e9,
		BandR: 10.87e9,
		BandI: 7.34e9,
		BandJ: 5.16e9,
		BandH: 2.99e9,
		BandK: 1.90e9,
	}
	for p, want := range cases {
		if got := p.NPhoton(0); got != want {
			t.Errorf("%s zero point = %g, want %g", p, got, want)
		}
	}
}

func TestNPhotonMagnitudeScale(t *testing.T) {
	// 2.5 magnitudes is a factor 10 in flux, 5 magnitudes a factor 100.
	p := BandI
	if got, want := p.NPhoton(10)/p.NPhoton(12.5), 10.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("2.5 mag ratio = %g, want 10", got)
	}
	if got, want := p.NPhoton(5)/p.NPhoton(10), 100.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("5 mag ratio = %g, want 100", got)
	}
}

func TestBandWavelengthOrder(t *testing.T) {
	bands := PhotometricBands()
	for i := 1; i < len(bands); i++ {
		if bands[i].Wavelength() <= bands[i-1].Wavelength() {
			t.Errorf("band %s at %gm not redder than %s at %gm",
				bands[i], bands[i].Wavelength(), bands[i-1], bands[i-1].Wavelength())
		}
	}
}
