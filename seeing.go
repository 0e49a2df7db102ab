package eyepiece

import (
	"fmt"
	"math"
	"strings"
)

type aoMode int

const (
	modeNGAO aoMode = iota
	modeLTAO
)

// aoCorrection is a steady-state adaptive optics descriptor. Only the
// fitting and anisoplanatism errors of the system are modeled; the fitting
// error is set from the target Strehl ratio.
type aoCorrection struct {
	mode        aoMode
	strehlRatio float64
	guideStar   Star    // NGAO anisoplanatism reference
	radius      float64 // LTAO asterism radius in radians
}

func (ao *aoCorrection) String() string {
	switch ao.mode {
	case modeLTAO:
		return fmt.Sprintf("LTAO (Strehl: %.2f, asterism radius: %.3farcsec)",
			ao.strehlRatio, ToArcsec(ao.radius))
	default:
		return fmt.Sprintf("NGAO (Strehl: %.2f, guide star @(%.3f,%.3f)arcsec)",
			ao.strehlRatio, ToArcsec(ao.guideStar.X), ToArcsec(ao.guideStar.Y))
	}
}

// SeeingBuilder assembles an atmospheric seeing descriptor.
//
//	seeing := eyepiece.NewSeeing(16e-2).
//		ZenithAngle(eyepiece.Degree(30)).
//		OuterScale(30)
type SeeingBuilder struct {
	friedParameter float64
	outerScale     float64
	ao             *aoCorrection
	err            error
}

// NewSeeing starts a seeing builder from the Fried parameter in meters,
// given at zenith and at 550nm. The outer scale defaults to 25m.
func NewSeeing(friedParameter float64) *SeeingBuilder {
	b := &SeeingBuilder{friedParameter: friedParameter, outerScale: 25}
	if friedParameter <= 0 {
		b.err = fmt.Errorf("%w: Fried parameter %gm", ErrInvalidParameter, friedParameter)
	}
	return b
}

// OuterScale sets the atmosphere outer scale in meters.
func (b *SeeingBuilder) OuterScale(outerScale float64) *SeeingBuilder {
	if b.err == nil && outerScale <= 0 {
		b.err = fmt.Errorf("%w: outer scale %gm", ErrInvalidParameter, outerScale)
	}
	b.outerScale = outerScale
	return b
}

// ZenithAngle scales the Fried parameter for an observation at the given
// zenith angle in radians.
func (b *SeeingBuilder) ZenithAngle(zenithAngle float64) *SeeingBuilder {
	if b.err == nil && (zenithAngle < 0 || zenithAngle >= Degree(90)) {
		b.err = fmt.Errorf("%w: zenith angle %g degree outside [0,90)",
			ErrInvalidParameter, zenithAngle/Degree(1))
		return b
	}
	b.friedParameter *= math.Pow(math.Cos(zenithAngle), 3./5.)
	return b
}

// Glao reduces the seeing FWHM by the given fraction, modeling an ideal
// ground layer adaptive optics correction uniform over the field.
func (b *SeeingBuilder) Glao(correctedFraction float64) *SeeingBuilder {
	if b.err == nil && (correctedFraction < 0 || correctedFraction >= 1) {
		b.err = fmt.Errorf("%w: GLAO corrected fraction %g outside [0,1)",
			ErrInvalidParameter, correctedFraction)
		return b
	}
	b.friedParameter /= 1 - correctedFraction
	return b
}

// Ngao corrects the seeing with a natural guide star adaptive optics system
// delivering the target Strehl ratio on the guide star. The anisoplanatism
// error grows with the distance to the guide star; a nil guide star pins
// the correction to the field center.
func (b *SeeingBuilder) Ngao(strehlRatio float64, guideStar *Star) *SeeingBuilder {
	if b.err == nil && (strehlRatio <= 0 || strehlRatio > 1) {
		b.err = fmt.Errorf("%w: Strehl ratio %g outside (0,1]", ErrInvalidParameter, strehlRatio)
		return b
	}
	ao := &aoCorrection{mode: modeNGAO, strehlRatio: strehlRatio}
	if guideStar != nil {
		ao.guideStar = *guideStar
	}
	b.ao = ao
	return b
}

// Ltao corrects the seeing with a laser tomography adaptive optics system
// delivering the target Strehl ratio inside the laser asterism radius given
// in radians. The anisoplanatism error grows with the distance beyond the
// asterism radius.
func (b *SeeingBuilder) Ltao(strehlRatio float64, asterismRadius float64) *SeeingBuilder {
	if b.err == nil && (strehlRatio <= 0 || strehlRatio > 1) {
		b.err = fmt.Errorf("%w: Strehl ratio %g outside (0,1]", ErrInvalidParameter, strehlRatio)
		return b
	}
	if b.err == nil && asterismRadius <= 0 {
		b.err = fmt.Errorf("%w: asterism radius %garcsec", ErrInvalidParameter, ToArcsec(asterismRadius))
		return b
	}
	b.ao = &aoCorrection{mode: modeLTAO, strehlRatio: strehlRatio, radius: asterismRadius}
	return b
}

func (b *SeeingBuilder) String() string {
	var s strings.Builder
	fmt.Fprintln(&s, "seeing limited:")
	fmt.Fprintf(&s, " . Fried parameter: %.3fcm\n", b.friedParameter*1e2)
	fmt.Fprintf(&s, " . outer scale: %.3fm", b.outerScale)
	if b.ao != nil {
		fmt.Fprintf(&s, "\n . with %s", b.ao)
	}
	return s.String()
}

// seeing is a SeeingBuilder resolved at the observation wavelength.
type seeing struct {
	friedParameter float64
	outerScale     float64
	ao             *aoCorrection
}

// build validates the accumulated parameters and scales the Fried parameter
// from 550nm to the wavelength of the band.
func (b *SeeingBuilder) build(band Photometry) (*seeing, error) {
	if b == nil {
		return nil, nil
	}
	if b.err != nil {
		return nil, b.err
	}
	r0 := b.friedParameter * math.Pow(band.Wavelength()/BandV.Wavelength(), 1.2)
	return &seeing{friedParameter: r0, outerScale: b.outerScale, ao: b.ao}, nil
}
