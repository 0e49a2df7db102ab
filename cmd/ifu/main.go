// Command ifu renders a single star on the Giant Magellan Telescope through
// seeing and measures how much flux an integral field unit passes. The IFU
// is then swept across the field and the throughput curve is plotted.
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rconan/eyepiece"
	"github.com/rconan/eyepiece/ifu"
	"github.com/rconan/eyepiece/internal/logging"
)

func main() {
	r0 := flag.Float64("r0", 16.0, "Fried parameter [cm]")
	zenith := flag.Float64("zenith-angle", 30.0, "zenith angle [degree]")
	band := flag.String("band", "V", "photometric band, one of V,R,I,J,H,K")
	kind := flag.String("kind", "hex", "IFU kind: hex, round or slit")
	size := flag.Float64("size", 0.4, "hexagon flat-to-flat, aperture diameter or slit width [arcsec]")
	length := flag.Float64("length", 3.0, "slit length [arcsec]")
	scale := flag.Float64("pixel-scale", 2.0, "detector pixel scale [mas]")
	pixels := flag.Int("pixels", 2001, "field width [pixel]")
	magnitude := flag.Float64("magnitude", 8.0, "star magnitude")
	pupilRes := flag.Float64("pupil-resolution", 0.1, "pupil sampling step [m]")
	workers := flag.Int("workers", 0, "render workers, 0 for all cores")
	sweep := flag.Int("sweep", 24, "IFU offsets sampled for the throughput curve, 0 to skip the plot")
	verbose := flag.Bool("verbose", false, "log at debug level")
	logFile := flag.String("log-file", "", "append JSON logs to this file besides the console")
	flag.Parse()

	log := logging.New(*verbose)
	if *logFile != "" {
		fileLog, err := logging.NewWithFile(*verbose, *logFile)
		if err != nil {
			log.Fatal("open log file", zap.Error(err))
		}
		log = fileLog
	}
	defer func() { _ = log.Sync() }()

	photometry, err := eyepiece.ParseBand(*band)
	if err != nil {
		log.Fatal("photometric band", zap.Error(err))
	}

	field, err := eyepiece.NewField(eyepiece.NewGMT()).
		PixelScale(eyepiece.NewPixelScale(eyepiece.Mas(*scale))).
		FieldOfView(eyepiece.PixelCount(*pixels)).
		Photometry(photometry).
		Objects(eyepiece.Objects{{Magnitude: *magnitude}}).
		Seeing(eyepiece.NewSeeing(*r0 * 1e-2).ZenithAngle(eyepiece.Degree(*zenith))).
		PupilResolution(*pupilRes).
		Workers(*workers).
		Logger(log).
		Build()
	if err != nil {
		log.Fatal("field definition", zap.Error(err))
	}
	fmt.Println(field)

	img, err := field.RenderProgress(context.Background())
	if err != nil {
		log.Fatal("render", zap.Error(err))
	}
	if err := img.SavePNG("field.png", eyepiece.SaveOptions{}); err != nil {
		log.Fatal("write field.png", zap.Error(err))
	}

	// IFU sizes are given on the sky and masked in pixels.
	pixel := eyepiece.Mas(*scale)
	geometry, maskedName, err := buildGeometry(*kind, eyepiece.Arcsec(*size)/pixel, eyepiece.Arcsec(*length)/pixel)
	if err != nil {
		log.Fatal("IFU geometry", zap.Error(err))
	}

	report, err := ifu.Measure(img, geometry)
	if err != nil {
		log.Fatal("IFU throughput", zap.Error(err))
	}
	switch *kind {
	case "hex":
		fmt.Printf("7 Hex. IFU throughput: %.3f\n", report.Throughput)
		parts := make([]string, len(report.Hexagons))
		for i, h := range report.Hexagons {
			parts[i] = fmt.Sprintf("%.3f", h)
		}
		fmt.Printf("Individual Hex. throughput: [%s]\n", strings.Join(parts, ", "))
	case "round":
		fmt.Printf("Round IFU throughput: %.3f\n", report.Throughput)
	case "slit":
		fmt.Printf("Slit IFU throughput: %.3f\n", report.Throughput)
	}
	if err := report.Masked.SavePNG(maskedName, eyepiece.SaveOptions{}); err != nil {
		log.Fatal("write masked field", zap.Error(err))
	}

	if *sweep < 2 {
		return
	}
	offsets, throughputs := sweepThroughput(img, geometry, *sweep)
	arcsecPerPixel := eyepiece.ToArcsec(pixel)
	for i := range offsets {
		offsets[i] *= arcsecPerPixel
	}
	if err := saveThroughputPlot("ifu_throughput.png", offsets, throughputs); err != nil {
		log.Fatal("write throughput plot", zap.Error(err))
	}
	log.Info("throughput curve saved",
		zap.String("plot", "ifu_throughput.png"),
		zap.Int("offsets", len(offsets)))
}

// buildGeometry maps the IFU kind onto its pixel geometry and the masked
// image file name.
func buildGeometry(kind string, sizePx, lengthPx float64) (ifu.Geometry, string, error) {
	switch kind {
	case "hex":
		bundle, err := ifu.NewBundle(sizePx)
		return bundle, "hex_ifu_field.png", err
	case "round":
		aperture, err := ifu.NewAperture(sizePx)
		return aperture, "round_ifu_field.png", err
	case "slit":
		slit, err := ifu.NewSlit(sizePx, lengthPx)
		return slit, "slit_ifu_field.png", err
	}
	return nil, "", fmt.Errorf("IFU kind %q: %w", kind, eyepiece.ErrInvalidParameter)
}

// sweepThroughput walks the IFU center along +x up to the field edge and
// measures the throughput at every offset, in pixels.
func sweepThroughput(img *eyepiece.FieldImage, g ifu.Geometry, steps int) (offsets, throughputs []float64) {
	w, _ := g.Extent()
	maxOffset := 0.5 * (float64(img.Side) - w)
	if maxOffset < 0 {
		maxOffset = 0
	}
	for i := 0; i < steps; i++ {
		offset := maxOffset * float64(i) / float64(steps-1)
		report, err := ifu.MeasureAt(img, g, offset, 0)
		if err != nil {
			continue
		}
		offsets = append(offsets, offset)
		throughputs = append(throughputs, report.Throughput)
	}
	return offsets, throughputs
}
