package eyepiece

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
)

// minPupilResolution is the coarsest turbulence scale the adaptive optics
// residual model resolves; the pupil sampling must not be finer.
const minPupilResolution = 2.5e-2

// Seven layer turbulence profile used for the anisoplanatism error,
// heights in meters and fractional Cn2 weights.
var turbulenceProfile = struct {
	height, weight []float64
}{
	height: []float64{25, 275, 425, 1250, 4000, 8000, 13000},
	weight: []float64{0.1257, 0.0874, 0.0666, 0.3498, 0.2273, 0.0681, 0.0751},
}

// fittingCutoffFrequency returns the spatial frequency below which the
// deformable mirror cancels the turbulent phase. It is set so that the
// phase variance left above the cutoff matches the target Strehl ratio
// through the Marechal approximation, residual variance = -ln(S).
func fittingCutoffFrequency(strehlRatio, friedParameter, outerScale float64) float64 {
	residual := -math.Log(strehlRatio)
	if residual == 0 {
		return math.Inf(1)
	}
	a := 6 * math.Pi * psdCoeff / 5 * math.Pow(friedParameter, -5./3.) / residual
	fc2 := math.Pow(a, 6./5.) - 1/(outerScale*outerScale)
	if fc2 <= 0 {
		// The requested residual exceeds the full turbulence variance:
		// no correction is needed.
		return 0
	}
	return math.Sqrt(fc2)
}

type aoTransfer struct {
	otf    []complex128
	strehl float64
}

// adaptiveOptics computes the optical transfer function of the residual
// wavefront error of an adaptive optics system: the fitting error above the
// correction cutoff frequency plus the anisoplanatism error for stars away
// from the guide direction.
//
// Transfer functions depend on the star position only through its offset
// from the guide direction and are memoized by that offset. The spectral
// grid is large, so a single transform buffer is shared and computations
// are serialized; clones of an observing mode share one adaptiveOptics.
type adaptiveOptics struct {
	correction     *aoCorrection
	friedParameter float64
	outerScale     float64
	nOtf           int
	d              float64
	kappa          int
	fittingCutoff  float64

	mu    sync.Mutex
	fft   *ZpDft
	cache map[[2]float64]aoTransfer
}

// newAdaptiveOptics sizes the residual phase spectrum grid for transfer
// functions sampled on nOtf points at the pupil resolution d in meters.
func newAdaptiveOptics(s *seeing, nOtf int, d float64) (*adaptiveOptics, error) {
	if d < minPupilResolution {
		return nil, fmt.Errorf("%w: pupil resolution %gm, must be at least %gm",
			ErrInvalidParameter, d, minPupilResolution)
	}
	kappa := int(math.Ceil(d / minPupilResolution))
	n := kappa * nOtf
	if n < 4096 {
		n = 4096
	}
	return &adaptiveOptics{
		correction:     s.ao,
		friedParameter: s.friedParameter,
		outerScale:     s.outerScale,
		nOtf:           nOtf,
		d:              d,
		kappa:          kappa,
		fittingCutoff: fittingCutoffFrequency(
			s.ao.strehlRatio, s.friedParameter, s.outerScale),
		fft:   NewZpDft(n),
		cache: make(map[[2]float64]aoTransfer),
	}, nil
}

// guideOffset returns the star offset from the guide direction in radians.
// For NGAO this is the separation from the guide star. For LTAO the
// correction holds over the whole laser asterism: the offset is zero inside
// the asterism radius and grows radially beyond it.
func (ao *adaptiveOptics) guideOffset(star Star) (float64, float64) {
	switch ao.correction.mode {
	case modeLTAO:
		r := star.Distance()
		if r <= ao.correction.radius {
			return 0, 0
		}
		s := (r - ao.correction.radius) / r
		return star.X * s, star.Y * s
	default:
		return star.X - ao.correction.guideStar.X, star.Y - ao.correction.guideStar.Y
	}
}

// transferFunction returns the residual error transfer function for the
// star, sampled corner-centered on the nOtf grid at the pupil resolution,
// along with the Strehl ratio delivered at the star position.
func (ao *adaptiveOptics) transferFunction(star Star) ([]complex128, float64) {
	dx, dy := ao.guideOffset(star)

	ao.mu.Lock()
	defer ao.mu.Unlock()
	if t, ok := ao.cache[[2]float64{dx, dy}]; ok {
		return t.otf, t.strehl
	}

	n := ao.fft.Len()
	df := float64(ao.kappa) / (ao.d * float64(n-1))
	buf := ao.fft.Reset().Buffer()
	twoPi := 2 * math.Pi
	for i := 0; i < n; i++ {
		q := i - n/2
		fy := float64(q) * df
		ii := q
		if q < 0 {
			ii += n
		}
		for j := 0; j < n; j++ {
			q = j - n/2
			fx := float64(q) * df
			jj := q
			if q < 0 {
				jj += n
			}
			f := math.Hypot(fx, fy)
			phi := PhaseSpectrum(f, ao.friedParameter, ao.outerScale)
			var aniso float64
			for l, h := range turbulenceProfile.height {
				red := twoPi * h * (fx*dx + fy*dy)
				aniso += turbulenceProfile.weight[l] * (1 - math.Cos(red))
			}
			aniso *= phi
			psd := aniso
			if f >= ao.fittingCutoff {
				psd += phi
			}
			buf[ii*n+jj] = complex(psd, 0)
		}
	}
	covariance := ao.fft.Process().Buffer()

	// Decimate the covariance down to the transfer function grid, scaled so
	// that the zero lag is the residual phase variance, cov[0] = sum(psd)df^2.
	m := ao.nOtf
	k := ao.kappa
	scale := complex(df*df*float64(n), 0)
	cov := make([]complex128, m*m)
	for i := 0; i < (m+1)/2; i++ {
		ii := i * k
		for j := 0; j < (m+1)/2; j++ {
			cov[i*m+j] = covariance[ii*n+j*k] * scale
		}
		for j := 1; j <= m/2; j++ {
			cov[i*m+m-j] = covariance[ii*n+n-j*k] * scale
		}
	}
	for i := 1; i <= m/2; i++ {
		ii := n - i*k
		for j := 0; j < (m+1)/2; j++ {
			cov[(m-i)*m+j] = covariance[ii*n+j*k] * scale
		}
		for j := 1; j <= m/2; j++ {
			cov[(m-i)*m+m-j] = covariance[ii*n+n-j*k] * scale
		}
	}

	variance := cov[0]
	otf := make([]complex128, m*m)
	for p, c := range cov {
		otf[p] = cmplx.Exp(c - variance)
	}
	t := aoTransfer{otf: otf, strehl: math.Exp(-real(variance))}
	ao.cache[[2]float64{dx, dy}] = t
	return t.otf, t.strehl
}

// strehlAt returns the Strehl ratio delivered at the star position, the
// target ratio degraded by anisoplanatism.
func (ao *adaptiveOptics) strehlAt(star Star) float64 {
	_, strehl := ao.transferFunction(star)
	return strehl
}
