package eyepiece

import (
	"math"
)

// atmosphereTransferFunction samples the long exposure atmosphere transfer
// function on an n by n grid, corner-centered, with baseline spacing d in
// meters.
func atmosphereTransferFunction(friedParameter, outerScale, d float64, n int) []float64 {
	otf := make([]float64, n*n)
	for i := 0; i < n; i++ {
		q := i - n/2
		y := float64(q) * d
		ii := q
		if q < 0 {
			ii += n
		}
		for j := 0; j < n; j++ {
			q = j - n/2
			x := float64(q) * d
			jj := q
			if q < 0 {
				jj += n
			}
			otf[ii*n+jj] = AtmosphereOTF(math.Hypot(x, y), friedParameter, outerScale)
		}
	}
	return otf
}

// observing evaluates star intensity maps in one of three modes selected by
// the seeing descriptor: diffraction limited (nil seeing), seeing limited,
// or adaptive optics (seeing with a correction). Each render worker owns a
// clone; the adaptive optics state is shared between clones.
type observing struct {
	seeing *seeing
	fft    *ZpDft
	ifft   *ZpDft
	otf    []complex128
	ao     *adaptiveOptics
}

func newObserving(s *seeing) *observing {
	return &observing{seeing: s}
}

// initFFT sizes the transforms for an nDft point pupil grid sampled every
// pupilResolution meters. For the seeing limited mode the atmosphere
// transfer function is fixed over the field and computed once here.
func (o *observing) initFFT(nDft int, pupilResolution float64) error {
	o.fft = NewZpDft(nDft)
	if o.seeing == nil {
		return nil
	}
	o.ifft = NewZpDftInverse(nDft)
	if o.seeing.ao == nil {
		atm := atmosphereTransferFunction(
			o.seeing.friedParameter, o.seeing.outerScale, pupilResolution, nDft)
		o.otf = make([]complex128, len(atm))
		for k, v := range atm {
			o.otf[k] = complex(v, 0)
		}
		return nil
	}
	ao, err := newAdaptiveOptics(o.seeing, nDft, pupilResolution)
	if err != nil {
		return err
	}
	o.ao = ao
	return nil
}

// clone returns an observing mode with its own transform buffers, sharing
// the read-only atmosphere transfer function and the adaptive optics state.
func (o *observing) clone() *observing {
	c := &observing{seeing: o.seeing, otf: o.otf, ao: o.ao}
	if o.fft != nil {
		c.fft = NewZpDft(o.fft.Len())
	}
	if o.ifft != nil {
		c.ifft = NewZpDftInverse(o.ifft.Len())
	}
	return c
}

// intensity maps the pupil onto the star image sampled on an
// intensitySampling square grid. The energy of the image is the energy of
// the pupil.
func (o *observing) intensity(pupil []complex128, intensitySampling int, star Star) []float64 {
	if o.seeing == nil {
		return o.fft.Reset().
			ZeroPadding(pupil).
			Process().
			Shift().
			Resize(intensitySampling).
			NormSqr()
	}
	// The squared magnitude of the pupil transform is the diffraction
	// point spread function, corner-centered; its inverse transform is the
	// optical transfer function, which the atmosphere filters.
	psf := o.fft.Reset().ZeroPadding(pupil).Process().NormSqr()
	spread := make([]complex128, len(psf))
	for k, v := range psf {
		spread[k] = complex(v, 0)
	}
	otf := o.otf
	if o.ao != nil {
		otf, _ = o.ao.transferFunction(star)
	}
	o.ifft.ZeroPadding(spread).Process().Filter(otf)
	return o.fft.ZeroPadding(o.ifft.Buffer()).
		Process().
		Shift().
		Resize(intensitySampling).
		Norm()
}

// strehlAt reports the Strehl ratio delivered at the star position for the
// adaptive optics mode.
func (o *observing) strehlAt(star Star) (float64, bool) {
	if o.ao == nil {
		return 0, false
	}
	return o.ao.strehlAt(star), true
}
