package eyepiece

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"sort"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/plot/palette"
)

// FieldImage is a rendered detector frame: Side x Side samples in row-major
// order, in photon counts accumulated over Exposure seconds in a single band.
type FieldImage struct {
	Data       []float64
	Side       int
	PixelScale float64 // radian
	Band       Photometry
	Exposure   float64 // second
}

// At returns the intensity of the pixel at row i, column j.
func (img *FieldImage) At(i, j int) float64 {
	return img.Data[i*img.Side+j]
}

// Flux returns the intensity integrated over the whole frame.
func (img *FieldImage) Flux() float64 {
	var sum float64
	for _, v := range img.Data {
		sum += v
	}
	return sum
}

// Saturation sets the intensity that maps to the top of the colormap when a
// frame is written with SavePNG.
//
// The zero value saturates at the frame maximum, meaning no saturation.
type Saturation struct {
	gain     float64
	logSigma bool
}

// LogSigma returns a Saturation with threshold exp(m + gain*s) where m and s
// are the mean and standard deviation of the log of the positive intensities.
// Bright cores clip at the threshold, leaving the stretch to the faint wings.
func LogSigma(gain float64) Saturation {
	return Saturation{gain: gain, logSigma: true}
}

// threshold returns the saturation intensity for data.
func (s Saturation) threshold(data []float64) float64 {
	max := math.Inf(-1)
	for _, v := range data {
		if v > max {
			max = v
		}
	}
	if !s.logSigma {
		return max
	}
	var n int
	var mean float64
	for _, v := range data {
		if v > 0 {
			mean += math.Log(v)
			n++
		}
	}
	if n == 0 {
		return max
	}
	mean /= float64(n)
	var variance float64
	for _, v := range data {
		if v > 0 {
			d := math.Log(v) - mean
			variance += d * d
		}
	}
	variance /= float64(n)
	return math.Exp(mean + s.gain*math.Sqrt(variance))
}

// SaveOptions controls how a frame is rendered and written.
//
// The zero value writes the image without saturation, without an intensity
// look-up function and without a progress bar.
type SaveOptions struct {
	// Saturation sets the intensity mapped to the top of the colormap.
	Saturation Saturation
	// Lufn remaps intensities before normalization, e.g. math.Log1p to
	// compress the dynamic range.
	Lufn func(float64) float64
	// Progress displays a progress bar while the frame renders.
	Progress bool
}

// SavePNG writes the frame to path as a colormapped 8-bit PNG.
//
// Intensities are passed through opts.Lufn when set, divided by the
// opts.Saturation threshold and clamped to [0, 1] before the colormap
// look-up. Non-finite samples are written as black.
func (img *FieldImage) SavePNG(path string, opts SaveOptions) (err error) {
	vals := make([]float64, len(img.Data))
	copy(vals, img.Data)
	if opts.Lufn != nil {
		for i, v := range vals {
			vals[i] = opts.Lufn(v)
		}
	}
	threshold := opts.Saturation.threshold(vals)
	if threshold <= 0 || math.IsNaN(threshold) {
		threshold = 1
	}

	lut := palette.Heat(256, 1).Colors()
	out := image.NewRGBA(image.Rect(0, 0, img.Side, img.Side))
	for y := 0; y < img.Side; y++ {
		for x := 0; x < img.Side; x++ {
			v := vals[y*img.Side+x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			t := v / threshold
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			out.Set(x, y, lut[int(math.Round(t*float64(len(lut)-1)))])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, out)
}

// SaveDataPNG writes the frame to path as a 16-bit grayscale PNG with the
// fixed physical mapping Y16 = round(v*scale), clamped to [0, 65535].
// Non-finite samples are written as 0.
func (img *FieldImage) SaveDataPNG(path string, scale float64) (err error) {
	if scale <= 0 {
		return fmt.Errorf("data png scale %g: %w", scale, ErrInvalidParameter)
	}
	out := image.NewGray16(image.Rect(0, 0, img.Side, img.Side))
	for y := 0; y < img.Side; y++ {
		row := y * out.Stride
		for x := 0; x < img.Side; x++ {
			v := img.Data[y*img.Side+x]
			i := row + 2*x
			if math.IsNaN(v) || math.IsInf(v, 0) {
				out.Pix[i], out.Pix[i+1] = 0, 0
				continue
			}
			u := math.Round(v * scale)
			if u < 0 {
				u = 0
			} else if u > 65535 {
				u = 65535
			}
			y16 := uint16(u)
			// Gray16 Pix is big-endian per pixel: high then low
			out.Pix[i] = uint8(y16 >> 8)
			out.Pix[i+1] = uint8(y16)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, out)
}

// SaveViewPNG writes the frame to path as an 8-bit grayscale PNG, mapping the
// pLow and pHigh percentiles of the finite intensities to 0 and 255 and
// clamping in between. Non-finite samples are written as 0.
func (img *FieldImage) SaveViewPNG(path string, pLow, pHigh float64) (err error) {
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return fmt.Errorf("view png percentiles %g, %g: %w", pLow, pHigh, ErrInvalidParameter)
	}

	vals := make([]float64, 0, len(img.Data))
	for _, v := range img.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return fmt.Errorf("image has no finite values: %w", ErrInvalidParameter)
	}
	sort.Float64s(vals)

	percentile := func(p float64) float64 {
		if p <= 0 {
			return vals[0]
		}
		if p >= 100 {
			return vals[len(vals)-1]
		}
		pos := p / 100 * float64(len(vals)-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i >= len(vals)-1 {
			return vals[len(vals)-1]
		}
		return vals[i]*(1-f) + vals[i+1]*f
	}

	lo := percentile(pLow)
	hi := percentile(pHigh)
	if hi == lo {
		hi = lo + 1 // avoid divide-by-zero; image becomes mostly constant
	}

	out := image.NewGray(image.Rect(0, 0, img.Side, img.Side))
	for y := 0; y < img.Side; y++ {
		row := y * out.Stride
		for x := 0; x < img.Side; x++ {
			v := img.Data[y*img.Side+x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				out.Pix[row+x] = 0
				continue
			}
			t := (v - lo) / (hi - lo)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			out.Pix[row+x] = uint8(math.Round(t * 255))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, out)
}

// SaveFITS writes the frame to path as a single-HDU FITS file with 64-bit
// float pixels, recording the exposure time, pixel scale and band in the
// header.
func (img *FieldImage) SaveFITS(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fits, err := fitsio.Create(f)
	if err != nil {
		return err
	}
	defer fits.Close()

	hdu := fitsio.NewImage(-64, []int{img.Side, img.Side})
	defer hdu.Close()
	err = hdu.Header().Append(
		fitsio.Card{Name: "EXPTIME", Value: img.Exposure, Comment: "exposure time [s]"},
		fitsio.Card{Name: "PIXSCALE", Value: ToMas(img.PixelScale), Comment: "pixel scale [mas]"},
		fitsio.Card{Name: "BAND", Value: img.Band.String(), Comment: "photometric band"},
	)
	if err != nil {
		return err
	}
	if err = hdu.Write(img.Data); err != nil {
		return err
	}
	return fits.Write(hdu)
}
