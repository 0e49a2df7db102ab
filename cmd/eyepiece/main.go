// Command eyepiece renders the star field described by a JSON5 scene file
// and writes the frame next to the working directory as PNG and FITS.
//
// Usage: eyepiece <scene-file>
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	json "github.com/KevinWang15/go-json5"
	"go.uber.org/zap"

	"github.com/rconan/eyepiece"
	"github.com/rconan/eyepiece/internal/logging"
)

func main() {
	args := os.Args
	if len(args) != 2 {
		fmt.Println("\n\tWrong number of arguments.\n\tUsage: eyepiece <scene-file>")
		os.Exit(1)
	}
	path := args[1]

	// Read the Json5 (or Json) scene file
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tAttempt to read scene file %q failed: %w", path, err))
		os.Exit(2)
	}

	// Parse json(5) data into a generic container
	var jsonTable map[string]interface{}
	if err := json.Unmarshal(data, &jsonTable); err != nil {
		fmt.Println(fmt.Errorf("\n\tFormat error in file %q: %w", path, err))
		os.Exit(3)
	}

	var scene Scene
	msg, ok := validateSceneAndFill(jsonTable, &scene)
	if !ok {
		fmt.Println(msg)
		os.Exit(4)
	}

	// Check for user wanting printout of the complete scene file
	if scene.ShowInput {
		fmt.Println(string(data))
	}

	log := logging.New(scene.Verbose)
	defer func() { _ = log.Sync() }()

	field, err := buildField(&scene, log)
	if err != nil {
		log.Error("field definition", zap.Error(err))
		os.Exit(5)
	}
	fmt.Println(field)

	start := time.Now()
	img, err := field.RenderProgress(context.Background())
	if err != nil {
		log.Error("render", zap.Error(err))
		os.Exit(6)
	}
	log.Info("field rendered",
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("flux_photon", img.Flux()))

	if strehl, ok := field.AchievedStrehl(eyepiece.Star{}); ok {
		log.Info("adaptive optics correction",
			zap.Float64("achieved_strehl_on_axis", strehl))
	}

	opts := eyepiece.SaveOptions{}
	if scene.SaturationLogSigma != nil {
		opts.Saturation = eyepiece.LogSigma(*scene.SaturationLogSigma)
	}
	switch scene.IntensityStretch {
	case "cbrt":
		opts.Lufn = math.Cbrt
	case "log1p":
		opts.Lufn = math.Log1p
	}

	if err := img.SavePNG(scene.Output+".png", opts); err != nil {
		log.Error("write png", zap.Error(err))
		os.Exit(7)
	}
	if err := img.SaveFITS(scene.Output + ".fits"); err != nil {
		log.Error("write fits", zap.Error(err))
		os.Exit(8)
	}
	log.Info("field saved",
		zap.String("png", scene.Output+".png"),
		zap.String("fits", scene.Output+".fits"))
}

// buildField assembles the field builder from the validated scene.
func buildField(scene *Scene, log *zap.Logger) (*eyepiece.Field, error) {
	var observer eyepiece.Observer
	if scene.TelescopePreset != "" {
		obs, err := eyepiece.ParsePreset(scene.TelescopePreset)
		if err != nil {
			return nil, err
		}
		observer = obs
	} else {
		tel, err := eyepiece.NewTelescope(scene.DiameterM).
			Obscuration(scene.ObscurationM).
			Build()
		if err != nil {
			return nil, err
		}
		observer = tel
	}

	band, err := eyepiece.ParseBand(scene.Band)
	if err != nil {
		return nil, err
	}

	stars := make(eyepiece.Objects, 0, len(scene.Stars))
	for _, s := range scene.Stars {
		stars = append(stars, eyepiece.Star{
			X:         eyepiece.Arcsec(s[0]),
			Y:         eyepiece.Arcsec(s[1]),
			Magnitude: s[2],
		})
	}
	if scene.RandomGiven {
		rng := rand.New(rand.NewPCG(scene.RandomSeed, scene.RandomSeed))
		stars = append(stars, eyepiece.NewObjects(rng,
			eyepiece.UniformStars{Width: eyepiece.Arcsec(scene.RandomWidthArcsec), N: scene.RandomCount},
			eyepiece.NormalMagnitudes{Mean: scene.RandomMagnitudeMean, StdDev: scene.RandomMagnitudeStdDev},
		)...)
	}

	builder := eyepiece.NewField(observer).
		Photometry(band).
		Objects(stars).
		Exposure(scene.ExposureSecs).
		Workers(scene.Workers).
		Logger(log)

	switch {
	case scene.NyquistMultiple > 0:
		builder.PixelScale(eyepiece.Nyquist(scene.NyquistMultiple))
	case scene.NyquistFraction > 0:
		builder.PixelScale(eyepiece.NyquistFraction(scene.NyquistFraction))
	default:
		builder.PixelScale(eyepiece.NewPixelScale(eyepiece.Mas(scene.PixelScaleMas)))
	}
	if scene.FieldPixels > 0 {
		builder.FieldOfView(eyepiece.PixelCount(scene.FieldPixels))
	} else {
		builder.FieldOfView(eyepiece.NewFieldOfView(eyepiece.Arcsec(scene.FieldArcsec)))
	}
	if scene.PupilResolutionM > 0 {
		builder.PupilResolution(scene.PupilResolutionM)
	}

	if scene.SeeingGiven {
		seeing := eyepiece.NewSeeing(scene.R0Cm * 1e-2)
		if scene.ZenithAngleDegrees > 0 {
			seeing.ZenithAngle(eyepiece.Degree(scene.ZenithAngleDegrees))
		}
		if scene.OuterScaleM > 0 {
			seeing.OuterScale(scene.OuterScaleM)
		}
		if scene.GlaoCorrectedFraction > 0 {
			seeing.Glao(scene.GlaoCorrectedFraction)
		}
		if scene.NgaoGiven {
			var guide *eyepiece.Star
			if gs := scene.NgaoGuideStarArcsec; gs != nil {
				guide = &eyepiece.Star{X: eyepiece.Arcsec(gs[0]), Y: eyepiece.Arcsec(gs[1])}
			}
			seeing.Ngao(scene.NgaoStrehlRatio, guide)
		}
		if scene.LtaoGiven {
			seeing.Ltao(scene.LtaoStrehlRatio, eyepiece.Arcsec(scene.LtaoRadiusArcsec))
		}
		builder.Seeing(seeing)
	}

	if scene.MagnitudeLimit != nil {
		builder.MagnitudeLimit(*scene.MagnitudeLimit)
	}
	if scene.PhotonNoiseSeed != nil {
		builder.PhotonNoise(*scene.PhotonNoiseSeed)
	}

	return builder.Build()
}
