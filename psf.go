package eyepiece

import (
	"context"
	"math"
)

// Psf is the point spread function delivered at a star position: a Side x
// Side kernel sampled at the field pixel scale and normalized to unit total
// energy, short of truncation by the frame edge.
type Psf struct {
	Data       []float64
	Side       int
	PixelScale float64 // radian
	Star       Star
}

// Psf synthesizes the point spread function at the star position, rendered
// on the field grid with a unit photon budget.
func (f *Field) Psf(ctx context.Context, star Star) (*Psf, error) {
	samples := PupilArea(f.observer, f.pupilRes) / (f.pupilRes * f.pupilRes)
	buffer, err := f.render(ctx, Objects{star}, 1/samples, false)
	if err != nil {
		return nil, err
	}
	return &Psf{
		Data:       f.bin(buffer),
		Side:       f.side,
		PixelScale: f.resolution,
		Star:       star,
	}, nil
}

// At returns the kernel value at row i, column j.
func (p *Psf) At(i, j int) float64 {
	return p.Data[i*p.Side+j]
}

// centroid returns the intensity-weighted kernel center in fractional pixel
// coordinates (column, row) along with the total kernel energy.
func (p *Psf) centroid() (cx, cy, total float64) {
	for i := 0; i < p.Side; i++ {
		for j := 0; j < p.Side; j++ {
			v := p.Data[i*p.Side+j]
			total += v
			cx += float64(j) * v
			cy += float64(i) * v
		}
	}
	if total == 0 {
		c := 0.5 * float64(p.Side-1)
		return c, c, 0
	}
	return cx / total, cy / total, total
}

// EncircledEnergy returns the fraction of the kernel energy inside the given
// angular radius around the kernel centroid.
func (p *Psf) EncircledEnergy(radius float64) float64 {
	cx, cy, total := p.centroid()
	if total == 0 {
		return 0
	}
	rPx := radius / p.PixelScale
	var inside float64
	for i := 0; i < p.Side; i++ {
		dy := float64(i) - cy
		for j := 0; j < p.Side; j++ {
			dx := float64(j) - cx
			if math.Hypot(dx, dy) <= rPx {
				inside += p.Data[i*p.Side+j]
			}
		}
	}
	return inside / total
}

// RadialProfile returns the azimuthal average of the kernel at one pixel
// radial steps from its centroid, out to half the frame.
func (p *Psf) RadialProfile() []float64 {
	const nTheta = 64
	cx, cy, _ := p.centroid()
	profile := make([]float64, p.Side/2)
	for k := range profile {
		r := float64(k)
		var sum float64
		for t := 0; t < nTheta; t++ {
			s, c := math.Sincos(2 * math.Pi * float64(t) / nTheta)
			sum += p.interpolateAt(cx+r*c, cy+r*s)
		}
		profile[k] = sum / nTheta
	}
	return profile
}

// interpolateAt samples the kernel bilinearly at fractional pixel
// coordinates, clamped to the frame.
func (p *Psf) interpolateAt(x, y float64) float64 {
	n := p.Side
	if n == 0 {
		return 0
	}
	if n < 2 {
		return p.Data[0]
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= float64(n-1) {
		x = float64(n-1) - 1e-9
	}
	if y >= float64(n-1) {
		y = float64(n-1) - 1e-9
	}

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	xFrac := x - float64(x0)
	yFrac := y - float64(y0)

	v00 := p.Data[y0*n+x0]
	v01 := p.Data[y0*n+x1]
	v10 := p.Data[y1*n+x0]
	v11 := p.Data[y1*n+x1]

	v0 := v00*(1-xFrac) + v01*xFrac
	v1 := v10*(1-xFrac) + v11*xFrac
	return v0*(1-yFrac) + v1*yFrac
}
