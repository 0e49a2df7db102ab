package eyepiece

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestFieldBuilderValidation(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	base := func() *FieldBuilder {
		return NewField(tel).
			PixelScale(Nyquist(1)).
			FieldOfView(PixelCount(16)).
			Photometry(BandV).
			Objects(Objects{{}})
	}

	cases := []struct {
		name    string
		builder *FieldBuilder
		want    error
	}{
		{"no observer", NewField(nil).FieldOfView(PixelCount(16)).Objects(Objects{{}}), ErrInvalidParameter},
		{"zero exposure", base().Exposure(0), ErrInvalidParameter},
		{"negative flux", base().Flux(-1), ErrInvalidParameter},
		{"negative workers", base().Workers(-2), ErrInvalidParameter},
		{"zero pupil resolution", base().PupilResolution(0), ErrInvalidGeometry},
		{"coarse pupil resolution", base().PupilResolution(3), ErrInvalidGeometry},
		{"no field of view", NewField(tel).PixelScale(Nyquist(1)).Objects(Objects{{}}), ErrInvalidParameter},
		{"no star", base().Objects(nil), ErrEmptyField},
		{"stars outside the field", base().Objects(Objects{{X: Arcsec(10)}}), ErrEmptyField},
		{"magnitude limit drops all", base().Objects(Objects{{Magnitude: 10}}).MagnitudeLimit(5), ErrEmptyField},
		{"invalid seeing", base().Seeing(NewSeeing(-0.1)), ErrInvalidParameter},
		{"adaptive optics pupil resolution", base().Seeing(NewSeeing(0.15).Ngao(0.8, nil)).PupilResolution(0.01), ErrInvalidParameter},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			field, err := c.builder.Build()
			if !errors.Is(err, c.want) {
				t.Errorf("Build() err = %v, want %v", err, c.want)
			}
			if field != nil {
				t.Errorf("Build() returned a field alongside the error")
			}
		})
	}
}

func TestFieldString(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	field, err := NewField(tel).
		PixelScale(Nyquist(1)).
		FieldOfView(PixelCount(16)).
		Photometry(BandK).
		Objects(Objects{{Magnitude: 8.21}, {Magnitude: 12.94}}).
		Exposure(30).
		Build()
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	s := field.String()
	for _, want := range []string{
		"Field in K band",
		"pixel scale:",
		"field-of-view:",
		"pupil area:",
		"star #: 2",
		"star magnitudes: [8.2,12.9]",
		"exposure time: 30s",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

// renderTotal renders the field and returns the frame total intensity.
func renderTotal(t *testing.T, field *Field) float64 {
	t.Helper()
	img, err := field.Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return img.Flux()
}

func TestRenderFluxOverride(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	field, err := NewField(tel).
		PixelScale(Nyquist(1)).
		FieldOfView(PixelCount(80)).
		Photometry(BandV).
		Objects(Objects{{}}).
		Flux(5).
		Build()
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	samples := PupilArea(tel, DefaultPupilResolution) / (DefaultPupilResolution * DefaultPupilResolution)
	want := 5 * samples
	if got := renderTotal(t, field); math.Abs(got-want) > 1e-9*want {
		t.Errorf("frame total = %g, want %g", got, want)
	}
}

func TestRenderPhotometricFlux(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	field, err := NewField(tel).
		PixelScale(Nyquist(1)).
		FieldOfView(PixelCount(80)).
		Photometry(BandV).
		Objects(Objects{{Magnitude: 2}}).
		Exposure(2).
		Build()
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	// With the transform grid fully inside the frame, the render holds the
	// whole photon budget: flux times exposure times collecting area.
	want := BandV.NPhoton(2) * 2 * PupilArea(tel, DefaultPupilResolution)
	if got := renderTotal(t, field); math.Abs(got-want) > 1e-9*want {
		t.Errorf("frame total = %g, want %g", got, want)
	}
}

func TestRenderSeeingFlux(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	field, err := NewField(tel).
		PixelScale(Nyquist(1)).
		FieldOfView(PixelCount(80)).
		Photometry(BandV).
		Objects(Objects{{}}).
		Seeing(NewSeeing(0.2)).
		Flux(1).
		Build()
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	samples := PupilArea(tel, DefaultPupilResolution) / (DefaultPupilResolution * DefaultPupilResolution)
	if got := renderTotal(t, field); math.Abs(got-samples) > 1e-6*samples {
		t.Errorf("seeing limited frame total = %g, want %g", got, samples)
	}
}

func TestRenderStarOrderInvariance(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	stars := Objects{
		{X: Mas(120), Y: Mas(-80), Magnitude: 1},
		{X: Mas(-250), Y: Mas(40), Magnitude: 3},
		{Magnitude: 2},
		{X: Mas(60), Y: Mas(310), Magnitude: 4},
		{X: Mas(-90), Y: Mas(-330), Magnitude: 0},
	}
	permuted := Objects{stars[3], stars[0], stars[4], stars[2], stars[1]}

	render := func(objects Objects, workers int) *FieldImage {
		field, err := NewField(tel).
			PixelScale(Nyquist(1)).
			FieldOfView(PixelCount(32)).
			Photometry(BandV).
			Objects(objects).
			Workers(workers).
			Build()
		if err != nil {
			t.Fatalf("field: %v", err)
		}
		img, err := field.Render(context.Background())
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		return img
	}

	a := render(stars, 1)
	b := render(permuted, 3)
	var max float64
	for _, v := range a.Data {
		if v > max {
			max = v
		}
	}
	for k := range a.Data {
		if diff := math.Abs(a.Data[k] - b.Data[k]); diff > 1e-9*max {
			t.Fatalf("pixel %d differs across star orders: %g vs %g", k, a.Data[k], b.Data[k])
		}
	}
}

func TestRenderBinning(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	stars := Objects{
		{X: Mas(95), Y: Mas(-33), Magnitude: 1},
		{X: Mas(-140), Y: Mas(72), Magnitude: 2.5},
	}
	coarse, err := NewField(tel).
		PixelScale(Nyquist(2)).
		FieldOfView(PixelCount(20)).
		Photometry(BandV).
		Objects(stars).
		Build()
	if err != nil {
		t.Fatalf("coarse field: %v", err)
	}
	fine, err := NewField(tel).
		PixelScale(Nyquist(1)).
		FieldOfView(PixelCount(40)).
		Photometry(BandV).
		Objects(stars).
		Build()
	if err != nil {
		t.Fatalf("fine field: %v", err)
	}
	if !coarse.BelowNyquist() {
		t.Errorf("BelowNyquist() = false at twice the Nyquist criterion")
	}
	if fine.BelowNyquist() {
		t.Errorf("BelowNyquist() = true at the Nyquist criterion")
	}

	ctx := context.Background()
	binned, err := coarse.Render(ctx)
	if err != nil {
		t.Fatalf("coarse render: %v", err)
	}
	full, err := fine.Render(ctx)
	if err != nil {
		t.Fatalf("fine render: %v", err)
	}
	if binned.Side != 20 || full.Side != 40 {
		t.Fatalf("sides = %d and %d, want 20 and 40", binned.Side, full.Side)
	}

	// Both fields synthesize the same oversampled grid; the coarse one then
	// folds 2x2 blocks into detector pixels.
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			var want float64
			for ib := 0; ib < 2; ib++ {
				for jb := 0; jb < 2; jb++ {
					want += full.At(2*i+ib, 2*j+jb)
				}
			}
			got := binned.At(i, j)
			if math.Abs(got-want) > 1e-12*math.Max(want, 1) {
				t.Fatalf("binned pixel (%d,%d) = %g, want %g", i, j, got, want)
			}
		}
	}
}

func TestRenderCancelled(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	field, err := NewField(tel).
		PixelScale(Nyquist(1)).
		FieldOfView(PixelCount(16)).
		Photometry(BandV).
		Objects(Objects{{}, {X: Mas(30)}}).
		Build()
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img, err := field.Render(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render on a cancelled context: err = %v, want context.Canceled", err)
	}
	if img != nil {
		t.Errorf("Render on a cancelled context returned an image")
	}
}

func TestRenderPhotonNoiseSeeded(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	build := func(seed uint64) *Field {
		field, err := NewField(tel).
			PixelScale(Nyquist(1)).
			FieldOfView(PixelCount(16)).
			Photometry(BandV).
			Objects(Objects{{Magnitude: 12}}).
			PhotonNoise(seed).
			Build()
		if err != nil {
			t.Fatalf("field: %v", err)
		}
		return field
	}
	ctx := context.Background()

	first, err := build(123).Render(ctx)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	again, err := build(123).Render(ctx)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	other, err := build(321).Render(ctx)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	same := true
	for k := range first.Data {
		if v := first.Data[k]; math.Trunc(v) != v || v < 0 {
			t.Fatalf("noisy pixel %d = %g is not a photon count", k, v)
		}
		if first.Data[k] != again.Data[k] {
			t.Fatalf("same seed diverged at pixel %d", k)
		}
		if first.Data[k] != other.Data[k] {
			same = false
		}
	}
	if same {
		t.Errorf("different seeds produced identical frames")
	}
}

func TestFieldSaveDispatch(t *testing.T) {
	tel, err := NewTelescope(1).Build()
	if err != nil {
		t.Fatalf("telescope: %v", err)
	}
	field, err := NewField(tel).
		PixelScale(Nyquist(1)).
		FieldOfView(PixelCount(16)).
		Photometry(BandV).
		Objects(Objects{{Magnitude: 5}}).
		Build()
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	ctx := context.Background()
	dir := t.TempDir()

	png := filepath.Join(dir, "field.png")
	if err := field.Save(ctx, png, SaveOptions{}); err != nil {
		t.Fatalf("save png: %v", err)
	}
	if img := decodePNG(t, png); img.Bounds().Dx() != 16 {
		t.Errorf("png width = %d, want 16", img.Bounds().Dx())
	}

	if err := field.Save(ctx, filepath.Join(dir, "field.fits"), SaveOptions{}); err != nil {
		t.Fatalf("save fits: %v", err)
	}

	err = field.Save(ctx, filepath.Join(dir, "field.bmp"), SaveOptions{})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("save bmp: err = %v, want ErrInvalidParameter", err)
	}
}

func TestAchievedStrehlDiffractionLimited(t *testing.T) {
	field := unitField(t)
	if _, ok := field.AchievedStrehl(Star{}); ok {
		t.Errorf("AchievedStrehl reported without adaptive optics")
	}
}
