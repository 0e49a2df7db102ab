package eyepiece

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FieldBuilder assembles a Field around an observer. The zero defaults are a
// Nyquist pixel scale, the V band, a one second exposure, no turbulence and
// no photon noise.
type FieldBuilder struct {
	observer        Observer
	scale           PixelScale
	fov             FieldOfView
	band            Photometry
	objects         Objects
	exposure        float64
	seeing          *SeeingBuilder
	flux            float64
	magnitudeLimit  *float64
	noiseSeed       *uint64
	workers         int
	pupilResolution float64
	log             *zap.Logger
}

// NewField starts a field builder for the given observer.
func NewField(observer Observer) *FieldBuilder {
	return &FieldBuilder{
		observer:        observer,
		exposure:        1,
		pupilResolution: DefaultPupilResolution,
	}
}

// PixelScale sets the detector pixel scale.
func (b *FieldBuilder) PixelScale(scale PixelScale) *FieldBuilder {
	b.scale = scale
	return b
}

// FieldOfView sets the extent of the field on the sky.
func (b *FieldBuilder) FieldOfView(fov FieldOfView) *FieldBuilder {
	b.fov = fov
	return b
}

// Photometry sets the photometric band the field is observed in.
func (b *FieldBuilder) Photometry(band Photometry) *FieldBuilder {
	b.band = band
	return b
}

// Objects sets the stars in and around the field.
func (b *FieldBuilder) Objects(objects Objects) *FieldBuilder {
	b.objects = objects
	return b
}

// Exposure sets the exposure time in seconds (default 1s).
func (b *FieldBuilder) Exposure(seconds float64) *FieldBuilder {
	b.exposure = seconds
	return b
}

// Seeing observes the field through the atmosphere described by the seeing
// builder, possibly with an adaptive optics correction.
func (b *FieldBuilder) Seeing(seeing *SeeingBuilder) *FieldBuilder {
	b.seeing = seeing
	return b
}

// Flux overrides the photometric flux of every star with a fixed number of
// photons per pupil sample.
func (b *FieldBuilder) Flux(flux float64) *FieldBuilder {
	b.flux = flux
	return b
}

// MagnitudeLimit drops the stars fainter than the given magnitude.
func (b *FieldBuilder) MagnitudeLimit(magnitude float64) *FieldBuilder {
	b.magnitudeLimit = &magnitude
	return b
}

// PhotonNoise draws every rendered pixel from a Poisson law seeded with the
// given value. Renders with the same seed are identical.
func (b *FieldBuilder) PhotonNoise(seed uint64) *FieldBuilder {
	b.noiseSeed = &seed
	return b
}

// Workers sets the number of render workers (default GOMAXPROCS).
func (b *FieldBuilder) Workers(n int) *FieldBuilder {
	b.workers = n
	return b
}

// PupilResolution sets the pupil sampling step in meters (default 2.5cm).
func (b *FieldBuilder) PupilResolution(resolution float64) *FieldBuilder {
	b.pupilResolution = resolution
	return b
}

// Logger sets the render diagnostics logger (default none).
func (b *FieldBuilder) Logger(log *zap.Logger) *FieldBuilder {
	b.log = log
	return b
}

// Field renders images of a star field seen through an observer, either at
// the diffraction limit, through the atmosphere, or behind an adaptive
// optics correction.
type Field struct {
	observer  Observer
	scale     PixelScale
	band      Photometry
	objects   Objects
	exposure  float64
	flux      float64
	noiseSeed *uint64
	workers   int
	log       *zap.Logger
	observing *observing

	resolution   float64 // detector pixel scale, radian
	fieldOfView  float64 // radian
	oversampling int     // pixel scale to Nyquist criterion ratio
	sampling     int     // oversampled grid side
	side         int     // detector image side
	pupilSize    float64 // pupil plane span, meter
	nDft         int
	alpha        float64 // oversampled pixel scale, radian
	pupilRes     float64 // pupil sampling step, meter
	belowNyquist bool
}

// Build validates the field parameters, derives the render geometry and
// sizes the transforms.
func (b *FieldBuilder) Build() (*Field, error) {
	if b.observer == nil {
		return nil, fmt.Errorf("field has no observer: %w", ErrInvalidParameter)
	}
	if b.exposure <= 0 {
		return nil, fmt.Errorf("exposure %gs: %w", b.exposure, ErrInvalidParameter)
	}
	if b.flux < 0 {
		return nil, fmt.Errorf("flux override %g: %w", b.flux, ErrInvalidParameter)
	}
	if b.workers < 0 {
		return nil, fmt.Errorf("%d render workers: %w", b.workers, ErrInvalidParameter)
	}
	diameter := b.observer.Diameter()
	if b.pupilResolution <= 0 || pupilSide(diameter, b.pupilResolution) < 2 {
		return nil, fmt.Errorf("pupil resolution %gm over a %gm pupil: %w",
			b.pupilResolution, diameter, ErrInvalidGeometry)
	}

	log := b.log
	if log == nil {
		log = zap.NewNop()
	}

	resolution := b.scale.Resolution(b.observer, b.band)
	if resolution <= 0 {
		return nil, fmt.Errorf("pixel scale %g radian: %w", resolution, ErrInvalidParameter)
	}
	ratio := b.scale.nyquistClampedRatio(b.observer, b.band)
	if ratio < 1 {
		return nil, fmt.Errorf("pixel scale to Nyquist criterion ratio %g: %w",
			ratio, ErrInvalidParameter)
	}
	fieldOfView := b.fov.Angle(b.scale, b.observer, b.band)
	// Intensity grid, oversampled by the clamped Nyquist ratio.
	sampling := int(math.Ceil(ratio * b.fov.pixelScaleRatio(b.scale, b.observer, b.band)))
	if sampling < 1 {
		return nil, fmt.Errorf("field of view spans no pixel: %w", ErrInvalidParameter)
	}
	oversampling := int(ratio)
	// Pupil plane span matching the oversampled angular resolution.
	pupilSize := ratio * b.band.Wavelength() / resolution
	nDft := int(math.Ceil(pupilSize / b.pupilResolution))
	// Match the transform parity to the intensity grid when the latter is
	// larger, so that the center crop stays centered.
	if sampling > nDft && sampling%2 != nDft%2 {
		nDft++
	}
	alpha := resolution / ratio

	objects := b.objects
	if b.magnitudeLimit != nil {
		kept := make(Objects, 0, len(objects))
		for _, star := range objects {
			if star.Magnitude <= *b.magnitudeLimit {
				kept = append(kept, star)
			}
		}
		objects = kept
	}
	visible := 0
	for _, star := range objects {
		if star.insideBox(fieldOfView + 2*resolution) {
			visible++
		}
	}
	if visible == 0 {
		return nil, fmt.Errorf("no star within the %.3farcsec field: %w",
			ToArcsec(fieldOfView), ErrEmptyField)
	}

	atm, err := b.seeing.build(b.band)
	if err != nil {
		return nil, err
	}
	obs := newObserving(atm)
	if err := obs.initFFT(nDft, b.pupilResolution); err != nil {
		return nil, err
	}

	workers := b.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	below := b.scale.belowNyquist(b.observer, b.band)
	if below {
		log.Warn("pixel scale undersamples the diffraction limit",
			zap.Float64("pixel_scale_mas", ToMas(resolution)),
			zap.Float64("nyquist_mas", ToMas(0.5*b.band.Wavelength()/diameter)))
	}
	log.Debug("render geometry",
		zap.Int("image_sampling", sampling),
		zap.Int("oversampling", oversampling),
		zap.Float64("pupil_size_m", pupilSize),
		zap.Int("dft_sampling", nDft))

	return &Field{
		observer:     b.observer,
		scale:        b.scale,
		band:         b.band,
		objects:      objects,
		exposure:     b.exposure,
		flux:         b.flux,
		noiseSeed:    b.noiseSeed,
		workers:      workers,
		log:          log,
		observing:    obs,
		resolution:   resolution,
		fieldOfView:  fieldOfView,
		oversampling: oversampling,
		sampling:     sampling,
		side:         sampling / oversampling,
		pupilSize:    pupilSize,
		nDft:         nDft,
		alpha:        alpha,
		pupilRes:     b.pupilResolution,
		belowNyquist: below,
	}, nil
}

// Resolution returns the detector pixel scale in radians.
func (f *Field) Resolution() float64 { return f.resolution }

// FieldOfView returns the extent of the field on the sky in radians.
func (f *Field) FieldOfView() float64 { return f.fieldOfView }

// BelowNyquist reports whether the pixel scale undersamples the diffraction
// limit of the observer.
func (f *Field) BelowNyquist() bool { return f.belowNyquist }

// AchievedStrehl returns the Strehl ratio the adaptive optics correction
// delivers at the star position. It reports false when the field is not
// observed with adaptive optics.
func (f *Field) AchievedStrehl(star Star) (float64, bool) {
	return f.observing.strehlAt(star)
}

func (f *Field) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Field in %s band\n", f.band)
	fmt.Fprintf(&b, " . pixel scale: %.3fmas\n", ToMas(f.resolution))
	fmt.Fprintf(&b, " . field-of-view: %.3farcsec\n", ToArcsec(f.fieldOfView))
	fmt.Fprintf(&b, " . pupil area: %.3fm^2\n", PupilArea(f.observer, f.pupilRes))
	var nStar int
	for _, star := range f.objects {
		if star.insideBox(f.fieldOfView) {
			nStar++
		}
	}
	fmt.Fprintf(&b, " . star #: %d\n", nStar)
	if len(f.objects) > 0 {
		fmt.Fprintf(&b, " . star magnitudes: [%.1f,%.1f]\n",
			f.objects.Brightest().Magnitude, f.objects.Faintest().Magnitude)
	}
	fmt.Fprintf(&b, " . exposure time: %gs", f.exposure)
	return b.String()
}

// Render synthesizes the star field image.
func (f *Field) Render(ctx context.Context) (*FieldImage, error) {
	return f.renderImage(ctx, false)
}

// RenderProgress is Render with a per-star progress bar on the terminal.
func (f *Field) RenderProgress(ctx context.Context) (*FieldImage, error) {
	return f.renderImage(ctx, true)
}

// Save renders the field and writes it to path in a format selected by the
// file extension, .png or .fits.
func (f *Field) Save(ctx context.Context, path string, opts SaveOptions) error {
	img, err := f.renderImage(ctx, opts.Progress)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return img.SavePNG(path, opts)
	case ".fits":
		return img.SaveFITS(path)
	default:
		return fmt.Errorf("image format %q: %w", ext, ErrInvalidParameter)
	}
}

func (f *Field) renderImage(ctx context.Context, progress bool) (*FieldImage, error) {
	buffer, err := f.render(ctx, f.objects, f.flux, progress)
	if err != nil {
		return nil, err
	}
	img := &FieldImage{
		Data:       f.bin(buffer),
		Side:       f.side,
		PixelScale: f.resolution,
		Band:       f.band,
		Exposure:   f.exposure,
	}
	if f.noiseSeed != nil {
		rng := rand.New(rand.NewPCG(*f.noiseSeed, *f.noiseSeed))
		if err := img.AddPhotonNoise(rng); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// render accumulates star intensity maps on the oversampled grid. Workers
// take deterministic star stripes into private buffers; the partial sums are
// reduced in worker order so the image does not depend on scheduling.
func (f *Field) render(ctx context.Context, stars Objects, flux float64, progress bool) ([]float64, error) {
	workers := f.workers
	if workers > len(stars) {
		workers = len(stars)
	}
	if workers < 1 {
		workers = 1
	}

	var bar *pb.ProgressBar
	if progress {
		bar = pb.StartNew(len(stars))
	}

	partial := make([][]float64, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		buffer := make([]float64, f.sampling*f.sampling)
		partial[w] = buffer
		obs := f.observing.clone()
		stripe := w
		g.Go(func() error {
			for s := stripe; s < len(stars); s += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				f.accumulate(obs, buffer, stars[s], flux)
				if bar != nil {
					bar.Increment()
				}
			}
			return nil
		})
	}
	err := g.Wait()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}

	image := partial[0]
	for w := 1; w < workers; w++ {
		for k, v := range partial[w] {
			image[k] += v
		}
	}
	return image, nil
}

// accumulate renders one star and stacks it on the buffer. The integer part
// of the star offset shifts the stacking window; the sub-pixel remainder is
// carried into the pupil tip-tilt so the image lands between grid nodes.
func (f *Field) accumulate(obs *observing, buffer []float64, star Star, flux float64) {
	if !star.insideBox(f.fieldOfView + 2*f.resolution) {
		return
	}
	nPhoton := flux
	if nPhoton == 0 {
		nPhoton = f.band.NPhoton(star.Magnitude) * f.exposure * f.pupilRes * f.pupilRes
	}
	// Sky +y runs against the row index, sky +x along the column index.
	rowShift := -math.Round(star.Y / f.alpha)
	colShift := math.Round(star.X / f.alpha)
	frRow := -star.Y - rowShift*f.alpha
	frCol := star.X - colShift*f.alpha
	lambda := f.band.Wavelength()
	hy := -frRow / lambda
	hx := -frCol / lambda
	if f.sampling%2 == 0 {
		// Even grids take an extra half pixel to land the image center on
		// the (sampling-1)/2 node.
		hy += 0.5 / f.pupilSize
		hx += 0.5 / f.pupilSize
	}

	pupil := Pupil(f.observer, f.pupilRes, hx, hy)
	amplitude := complex(math.Sqrt(nPhoton), 0)
	for k := range pupil {
		pupil[k] *= amplitude
	}
	intensity := obs.intensity(pupil, f.sampling, star)

	n := f.sampling
	i0 := int(rowShift)
	j0 := int(colShift)
	for i := 0; i < n; i++ {
		ii := i0 + i
		if ii < 0 || ii >= n {
			continue
		}
		for j := 0; j < n; j++ {
			jj := j0 + j
			if jj < 0 || jj >= n {
				continue
			}
			buffer[ii*n+jj] += intensity[i*n+j]
		}
	}
}

// bin folds the oversampled grid back to the detector pixel scale.
func (f *Field) bin(buffer []float64) []float64 {
	m := f.oversampling
	if m == 1 {
		return buffer
	}
	n := f.side
	image := make([]float64, n*n)
	for i := 0; i < n; i++ {
		ii := i * m
		for j := 0; j < n; j++ {
			jj := j * m
			var bin float64
			for ib := 0; ib < m; ib++ {
				row := (ii + ib) * f.sampling
				for jb := 0; jb < m; jb++ {
					bin += buffer[row+jj+jb]
				}
			}
			image[i*n+j] = bin
		}
	}
	return image
}
