package eyepiece

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFieldImageAccessors(t *testing.T) {
	img := &FieldImage{
		Data: []float64{1, 2, 3, 4},
		Side: 2,
	}
	if got := img.At(0, 1); got != 2 {
		t.Errorf("At(0,1) = %g, want 2", got)
	}
	if got := img.At(1, 0); got != 3 {
		t.Errorf("At(1,0) = %g, want 3", got)
	}
	if got := img.Flux(); got != 10 {
		t.Errorf("Flux() = %g, want 10", got)
	}
}

func TestSaturationThreshold(t *testing.T) {
	data := []float64{math.E, math.Exp(3), 0, -5}

	var max Saturation
	if got := max.threshold(data); got != math.Exp(3) {
		t.Errorf("max threshold = %g, want %g", got, math.Exp(3))
	}

	// ln of the positive values is {1, 3}: mean 2, standard deviation 1.
	if got, want := LogSigma(1).threshold(data), math.Exp(3); math.Abs(got-want) > 1e-12*want {
		t.Errorf("LogSigma(1) threshold = %g, want %g", got, want)
	}
	if got, want := LogSigma(0).threshold(data), math.Exp(2); math.Abs(got-want) > 1e-12*want {
		t.Errorf("LogSigma(0) threshold = %g, want %g", got, want)
	}

	// Without positive values the threshold falls back to the maximum.
	if got := LogSigma(1).threshold([]float64{0, -1}); got != 0 {
		t.Errorf("LogSigma(1) threshold without positive values = %g, want 0", got)
	}
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestSavePNG(t *testing.T) {
	n := 8
	img := &FieldImage{Data: make([]float64, n*n), Side: n, Exposure: 1}
	img.Data[3*n+5] = 100 // single bright pixel at row 3, column 5

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := img.SavePNG(path, SaveOptions{}); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	out := decodePNG(t, path)
	if got := out.Bounds(); got.Dx() != n || got.Dy() != n {
		t.Fatalf("decoded bounds = %v, want %dx%d", got, n, n)
	}
	br, bg, bb, _ := out.At(5, 3).RGBA()
	dr, dg, db, _ := out.At(0, 0).RGBA()
	if br+bg+bb <= dr+dg+db {
		t.Errorf("bright pixel %v not brighter than background %v", out.At(5, 3), out.At(0, 0))
	}
}

func TestSavePNGSaturated(t *testing.T) {
	n := 8
	img := &FieldImage{Data: make([]float64, n*n), Side: n, Exposure: 1}
	for i := range img.Data {
		img.Data[i] = 1
	}
	img.Data[0] = 1e6

	path := filepath.Join(t.TempDir(), "frame.png")
	opts := SaveOptions{Saturation: LogSigma(1), Lufn: math.Log1p}
	if err := img.SavePNG(path, opts); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	decodePNG(t, path)
}

func TestSaveDataPNG(t *testing.T) {
	img := &FieldImage{
		Data: []float64{0, 1.5, 100, math.NaN()},
		Side: 2,
	}
	path := filepath.Join(t.TempDir(), "data.png")
	if err := img.SaveDataPNG(path, 1000); err != nil {
		t.Fatalf("SaveDataPNG: %v", err)
	}

	out, ok := decodePNG(t, path).(*image.Gray16)
	if !ok {
		t.Fatalf("decoded image is not Gray16")
	}
	cases := []struct {
		x, y int
		want uint16
	}{
		{0, 0, 0},
		{1, 0, 1500},
		{0, 1, 65535}, // clamped
		{1, 1, 0},     // NaN written as 0
	}
	for _, c := range cases {
		if got := out.Gray16At(c.x, c.y).Y; got != c.want {
			t.Errorf("pixel (%d,%d) = %d, want %d", c.x, c.y, got, c.want)
		}
	}

	if err := img.SaveDataPNG(path, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SaveDataPNG with zero scale: err = %v, want ErrInvalidParameter", err)
	}
}

func TestSaveViewPNG(t *testing.T) {
	n := 5
	img := &FieldImage{Data: make([]float64, n*n), Side: n}
	for i := range img.Data {
		img.Data[i] = float64(i)
	}
	path := filepath.Join(t.TempDir(), "view.png")
	if err := img.SaveViewPNG(path, 0, 100); err != nil {
		t.Fatalf("SaveViewPNG: %v", err)
	}

	out, ok := decodePNG(t, path).(*image.Gray)
	if !ok {
		t.Fatalf("decoded image is not Gray")
	}
	if got := out.GrayAt(0, 0).Y; got != 0 {
		t.Errorf("lowest pixel = %d, want 0", got)
	}
	if got := out.GrayAt(n-1, n-1).Y; got != 255 {
		t.Errorf("highest pixel = %d, want 255", got)
	}

	if err := img.SaveViewPNG(path, 50, 50); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SaveViewPNG with equal percentiles: err = %v, want ErrInvalidParameter", err)
	}
}

func TestSaveFITS(t *testing.T) {
	img := &FieldImage{
		Data:       []float64{1, 2, 3, 4},
		Side:       2,
		PixelScale: Mas(10),
		Band:       BandK,
		Exposure:   30,
	}
	path := filepath.Join(t.TempDir(), "frame.fits")
	if err := img.SaveFITS(path); err != nil {
		t.Fatalf("SaveFITS: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(raw) == 0 || len(raw)%2880 != 0 {
		t.Errorf("file length %d is not a multiple of the FITS block size", len(raw))
	}
	if !bytes.HasPrefix(raw, []byte("SIMPLE")) {
		t.Errorf("file does not start with a FITS primary header")
	}
	for _, key := range []string{"EXPTIME", "PIXSCALE", "BAND"} {
		if !bytes.Contains(raw, []byte(key)) {
			t.Errorf("header is missing the %s card", key)
		}
	}
}
