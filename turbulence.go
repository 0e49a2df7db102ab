package eyepiece

import "math"

// Von Karman statistics of the turbulent phase for Fried parameter r0 and
// outer scale L0, both in meters. The covariance needs the fractional-order
// Bessel function K(5/6, .) ported in besselk.go.

// psdCoeff is the leading coefficient of the von Karman phase power spectrum,
// Gamma(11/6)^2 * (24*Gamma(6/5)/5)^(5/6) / (2*pi^(11/3)), about 0.0229.
var psdCoeff = math.Gamma(11.0/6.0) * math.Gamma(11.0/6.0) *
	math.Pow(24.0*math.Gamma(6.0/5.0)/5.0, 5.0/6.0) /
	(2.0 * math.Pow(math.Pi, 11.0/3.0))

// PhaseVariance returns the total phase variance in rd^2.
func PhaseVariance(r0, bigL0 float64) float64 {
	g11o6 := math.Gamma(11.0 / 6.0)
	g5o6 := math.Gamma(5.0 / 6.0)
	p56 := math.Pow(24.0*math.Gamma(6.0/5.0)/5.0, 5.0/6.0)
	pi83 := math.Pow(math.Pi, 8.0/3.0)
	return 0.5 * g11o6 * g5o6 * p56 * math.Pow(bigL0/r0, 5.0/3.0) / pi83
}

// PhaseCovariance returns the phase covariance at separation x meters.
func PhaseCovariance(x, r0, bigL0 float64) float64 {
	if x == 0.0 {
		return PhaseVariance(r0, bigL0)
	}
	r := math.Abs(x)
	g11o6 := math.Gamma(11.0 / 6.0)
	p56 := math.Pow(24.0*math.Gamma(6.0/5.0)/5.0, 5.0/6.0)
	pi83 := math.Pow(math.Pi, 8.0/3.0)
	red := 2.0 * math.Pi * r / bigL0
	return g11o6 * p56 * math.Pow(bigL0/r0, 5.0/3.0) *
		math.Pow(red, 5.0/6.0) * BesselK(5.0/6.0, red) /
		(pi83 * math.Pow(2.0, 5.0/6.0))
}

// PhaseStructure returns the phase structure function at separation x meters,
// twice the variance minus covariance.
func PhaseStructure(x, r0, bigL0 float64) float64 {
	if x == 0.0 {
		return 0.0
	}
	return 2.0 * (PhaseVariance(r0, bigL0) - PhaseCovariance(x, r0, bigL0))
}

// AtmosphereOTF returns the long-exposure atmospheric transfer function at
// baseline x meters, exp(covariance - variance). It is 1 at x = 0 and decays
// to exp(-variance) for baselines much longer than the outer scale.
func AtmosphereOTF(x, r0, bigL0 float64) float64 {
	if x == 0.0 {
		return 1.0
	}
	return math.Exp(PhaseCovariance(x, r0, bigL0) - PhaseVariance(r0, bigL0))
}

// PhaseSpectrum returns the phase power spectral density at spatial frequency
// f cycles per meter, in rd^2 m^2.
func PhaseSpectrum(f, r0, bigL0 float64) float64 {
	return psdCoeff * math.Pow(r0, -5.0/3.0) *
		math.Pow(f*f+1.0/(bigL0*bigL0), -11.0/6.0)
}

// phaseSpectrumTail integrates the power spectrum over all frequencies above
// fc: 2*pi * int_fc^inf f*PSD(f) df has the closed form below.
func phaseSpectrumTail(fc, r0, bigL0 float64) float64 {
	return 6.0 * math.Pi * psdCoeff / 5.0 * math.Pow(r0, -5.0/3.0) *
		math.Pow(fc*fc+1.0/(bigL0*bigL0), -5.0/6.0)
}
