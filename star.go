package eyepiece

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Star is a point source at field coordinates (X,Y) in radians relative to
// the optical axis, with the given stellar magnitude.
type Star struct {
	X, Y      float64
	Magnitude float64
}

// Distance returns the angular separation from the optical axis in radians.
func (s Star) Distance() float64 {
	return math.Hypot(s.X, s.Y)
}

func (s Star) insideBox(width float64) bool {
	h := 0.5 * width
	return math.Abs(s.X) <= h && math.Abs(s.Y) <= h
}

func (s Star) String() string {
	return fmt.Sprintf("star @(%.3f,%.3f)arcsec with %.3f magnitude",
		ToArcsec(s.X), ToArcsec(s.Y), s.Magnitude)
}

// Objects is a collection of stars.
type Objects []Star

// Brightest returns the star with the smallest magnitude.
func (o Objects) Brightest() Star {
	if len(o) == 0 {
		return Star{}
	}
	b := o[0]
	for _, s := range o[1:] {
		if s.Magnitude < b.Magnitude {
			b = s
		}
	}
	return b
}

// Faintest returns the star with the largest magnitude.
func (o Objects) Faintest() Star {
	if len(o) == 0 {
		return Star{}
	}
	f := o[0]
	for _, s := range o[1:] {
		if s.Magnitude > f.Magnitude {
			f = s
		}
	}
	return f
}

// Closest returns the star closest to the optical axis.
func (o Objects) Closest() Star {
	if len(o) == 0 {
		return Star{}
	}
	c := o[0]
	for _, s := range o[1:] {
		if s.Distance() < c.Distance() {
			c = s
		}
	}
	return c
}

// Furthest returns the star furthest from the optical axis.
func (o Objects) Furthest() Star {
	if len(o) == 0 {
		return Star{}
	}
	f := o[0]
	for _, s := range o[1:] {
		if s.Distance() > f.Distance() {
			f = s
		}
	}
	return f
}

func (o Objects) String() string {
	return fmt.Sprintf("%d stars, magnitudes [%.3f,%.3f], distances [%.3f,%.3f]arcsec",
		len(o),
		o.Brightest().Magnitude, o.Faintest().Magnitude,
		ToArcsec(o.Closest().Distance()), ToArcsec(o.Furthest().Distance()))
}

// StarDistribution draws star positions on the sky.
type StarDistribution interface {
	Draw(rng *rand.Rand) Objects
}

// UniformStars distributes N stars uniformly over [-Width/2,Width/2]
// independently along each axis.
type UniformStars struct {
	Width float64
	N     int
}

// Draw implements StarDistribution.
func (u UniformStars) Draw(rng *rand.Rand) Objects {
	h := 0.5 * u.Width
	dist := distuv.Uniform{Min: -h, Max: h, Src: rng}
	stars := make(Objects, u.N)
	for i := range stars {
		stars[i] = Star{X: dist.Rand(), Y: dist.Rand()}
	}
	return stars
}

// LorentzStars distributes N stars according to a Lorentz (Cauchy)
// probability distribution centered on (CenterX,CenterY), independently
// along each axis with the given scales.  All angles are in radians.
type LorentzStars struct {
	CenterX, CenterY float64
	ScaleX, ScaleY   float64
	N                int
}

// Draw implements StarDistribution.
func (l LorentzStars) Draw(rng *rand.Rand) Objects {
	// A Student's t with one degree of freedom is the Cauchy law.
	lorentzX := distuv.StudentsT{Mu: l.CenterX, Sigma: l.ScaleX, Nu: 1, Src: rng}
	lorentzY := distuv.StudentsT{Mu: l.CenterY, Sigma: l.ScaleY, Nu: 1, Src: rng}
	stars := make(Objects, l.N)
	for i := range stars {
		stars[i] = Star{X: lorentzX.Rand(), Y: lorentzY.Rand()}
	}
	return stars
}

// GlobularStars distributes N stars with a Lorentz (Cauchy) radial profile
// around (CenterX,CenterY) and uniform azimuth.  All angles are in radians.
type GlobularStars struct {
	CenterX, CenterY float64
	Scale            float64
	N                int
}

// Draw implements StarDistribution.
func (g GlobularStars) Draw(rng *rand.Rand) Objects {
	radius := distuv.StudentsT{Mu: 0, Sigma: g.Scale, Nu: 1, Src: rng}
	azimuth := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: rng}
	stars := make(Objects, g.N)
	for i := range stars {
		r := radius.Rand()
		so, co := math.Sincos(azimuth.Rand())
		stars[i] = Star{X: g.CenterX + r*co, Y: g.CenterY + r*so}
	}
	return stars
}

// MagnitudeDistribution draws star magnitudes.
type MagnitudeDistribution interface {
	DrawMagnitudes(rng *rand.Rand, n int) []float64
}

// NormalMagnitudes distributes magnitudes normally with the given mean and
// standard deviation.
type NormalMagnitudes struct {
	Mean   float64
	StdDev float64
}

// DrawMagnitudes implements MagnitudeDistribution.
func (nm NormalMagnitudes) DrawMagnitudes(rng *rand.Rand, n int) []float64 {
	dist := distuv.Normal{Mu: nm.Mean, Sigma: nm.StdDev, Src: rng}
	m := make([]float64, n)
	for i := range m {
		m[i] = dist.Rand()
	}
	return m
}

// LogNormalMagnitudes distributes magnitudes as Offset plus a log-normal
// variate with the given linear-space mean and standard deviation.
type LogNormalMagnitudes struct {
	Offset float64
	Mean   float64
	StdDev float64
}

// DrawMagnitudes implements MagnitudeDistribution.
func (lm LogNormalMagnitudes) DrawMagnitudes(rng *rand.Rand, n int) []float64 {
	mu := math.Log(lm.Mean * lm.Mean / math.Sqrt(lm.Mean*lm.Mean+lm.StdDev*lm.StdDev))
	sigma := math.Sqrt(math.Log(1 + (lm.StdDev/lm.Mean)*(lm.StdDev/lm.Mean)))
	dist := distuv.LogNormal{Mu: mu, Sigma: sigma, Src: rng}
	m := make([]float64, n)
	for i := range m {
		m[i] = lm.Offset + dist.Rand()
	}
	return m
}

// NewObjects draws star positions from the coordinate distribution and
// assigns each star a magnitude from the magnitude distribution.
func NewObjects(rng *rand.Rand, coords StarDistribution, magnitudes MagnitudeDistribution) Objects {
	stars := coords.Draw(rng)
	m := magnitudes.DrawMagnitudes(rng, len(stars))
	for i := range stars {
		stars[i].Magnitude = m[i]
	}
	return stars
}
