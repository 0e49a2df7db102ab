package main

// Scene is a validated field description read from a JSON5 scene file. See
// the examples directory for annotated scene files.
type Scene struct {
	ShowInput bool
	Verbose   bool

	TelescopePreset  string // HST, JWST or GMT; empty for a free-form pupil
	DiameterM        float64
	ObscurationM     float64
	PupilResolutionM float64

	Band         string
	ExposureSecs float64

	// Pixel scale, exactly one of the three.
	NyquistMultiple int
	NyquistFraction int
	PixelScaleMas   float64

	// Field of view, exactly one of the two.
	FieldPixels int
	FieldArcsec float64

	SeeingGiven           bool
	R0Cm                  float64
	ZenithAngleDegrees    float64
	OuterScaleM           float64
	GlaoCorrectedFraction float64
	NgaoGiven             bool
	NgaoStrehlRatio       float64
	NgaoGuideStarArcsec   *[2]float64
	LtaoGiven             bool
	LtaoStrehlRatio       float64
	LtaoRadiusArcsec      float64

	Stars                 [][3]float64 // x [arcsec], y [arcsec], magnitude
	RandomGiven           bool
	RandomCount           int
	RandomWidthArcsec     float64
	RandomMagnitudeMean   float64
	RandomMagnitudeStdDev float64
	RandomSeed            uint64

	MagnitudeLimit  *float64
	PhotonNoiseSeed *uint64
	Workers         int

	Output             string
	SaturationLogSigma *float64
	IntensityStretch   string // "", "cbrt" or "log1p"
}

func getLeafValue(jsonTable map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = jsonTable
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// starTriples converts the stars entry into [x, y, magnitude] rows.
func starTriples(v interface{}) ([][3]float64, bool) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	triples := make([][3]float64, len(list))
	for i, e := range list {
		row, ok := e.([]interface{})
		if !ok || len(row) != 3 {
			return nil, false
		}
		for k, cell := range row {
			value, ok := cell.(float64)
			if !ok {
				return nil, false
			}
			triples[i][k] = value
		}
	}
	return triples, true
}

func coordinatePair(v interface{}) (*[2]float64, bool) {
	row, ok := v.([]interface{})
	if !ok || len(row) != 2 {
		return nil, false
	}
	var pair [2]float64
	for k, cell := range row {
		value, ok := cell.(float64)
		if !ok {
			return nil, false
		}
		pair[k] = value
	}
	return &pair, true
}

func validateSceneAndFill(jsonTable map[string]interface{}, scene *Scene) (string, bool) {
	msg := "No problem found in scene file" // Initialize msg to presumed success.

	if v, ok := getLeafValue(jsonTable, "show_input_bool"); ok {
		if scene.ShowInput, ok = v.(bool); !ok {
			return "show_input_bool: is not a bool", false
		}
	}

	if v, ok := getLeafValue(jsonTable, "verbose_bool"); ok {
		if scene.Verbose, ok = v.(bool); !ok {
			return "verbose_bool: is not a bool", false
		}
	}

	// The telescope is either a named preset or a free-form circular pupil.
	preset, presetGiven := getLeafValue(jsonTable, "telescope", "preset")
	if presetGiven {
		s, ok := preset.(string)
		if !ok {
			return "telescope.preset: is not a string", false
		}
		scene.TelescopePreset = s
	}
	diameter, diameterGiven := getLeafValue(jsonTable, "telescope", "diameter_m")
	if diameterGiven {
		v, ok := diameter.(float64)
		if !ok {
			return "telescope.diameter_m: is not a float64", false
		}
		scene.DiameterM = v
	}
	if presetGiven == diameterGiven {
		return "telescope: give exactly one of preset and diameter_m", false
	}
	if v, ok := getLeafValue(jsonTable, "telescope", "obscuration_m"); ok {
		f, ok := v.(float64)
		if !ok {
			return "telescope.obscuration_m: is not a float64", false
		}
		scene.ObscurationM = f
	}
	if v, ok := getLeafValue(jsonTable, "telescope", "pupil_resolution_m"); ok {
		f, ok := v.(float64)
		if !ok {
			return "telescope.pupil_resolution_m: is not a float64", false
		}
		scene.PupilResolutionM = f
	}

	scene.Band = "V" // default band if this field is missing
	if v, ok := getLeafValue(jsonTable, "photometric_band"); ok {
		s, ok := v.(string)
		if !ok {
			return "photometric_band: is not a string", false
		}
		scene.Band = s
	}

	scene.ExposureSecs = 1
	if v, ok := getLeafValue(jsonTable, "exposure_secs"); ok {
		f, ok := v.(float64)
		if !ok {
			return "exposure_secs: is not a float64", false
		}
		scene.ExposureSecs = f
	}

	scales := 0
	if v, ok := getLeafValue(jsonTable, "pixel_scale", "nyquist"); ok {
		f, ok := v.(float64)
		if !ok || f < 1 {
			return "pixel_scale.nyquist: is not a float64 >= 1", false
		}
		scene.NyquistMultiple = int(f)
		scales++
	}
	if v, ok := getLeafValue(jsonTable, "pixel_scale", "nyquist_fraction"); ok {
		f, ok := v.(float64)
		if !ok || f < 1 {
			return "pixel_scale.nyquist_fraction: is not a float64 >= 1", false
		}
		scene.NyquistFraction = int(f)
		scales++
	}
	if v, ok := getLeafValue(jsonTable, "pixel_scale", "mas"); ok {
		f, ok := v.(float64)
		if !ok {
			return "pixel_scale.mas: is not a float64", false
		}
		scene.PixelScaleMas = f
		scales++
	}
	if scales != 1 {
		return "pixel_scale: give exactly one of nyquist, nyquist_fraction and mas", false
	}

	fovs := 0
	if v, ok := getLeafValue(jsonTable, "field_of_view", "pixels"); ok {
		f, ok := v.(float64)
		if !ok || f < 1 {
			return "field_of_view.pixels: is not a float64 >= 1", false
		}
		scene.FieldPixels = int(f)
		fovs++
	}
	if v, ok := getLeafValue(jsonTable, "field_of_view", "arcsec"); ok {
		f, ok := v.(float64)
		if !ok {
			return "field_of_view.arcsec: is not a float64", false
		}
		scene.FieldArcsec = f
		fovs++
	}
	if fovs != 1 {
		return "field_of_view: give exactly one of pixels and arcsec", false
	}

	if _, ok := getLeafValue(jsonTable, "seeing"); ok {
		scene.SeeingGiven = true

		v, ok := getLeafValue(jsonTable, "seeing", "r0_cm")
		if !ok {
			return "seeing.r0_cm: not found", false
		}
		if scene.R0Cm, ok = v.(float64); !ok {
			return "seeing.r0_cm: is not a float64", false
		}

		if v, ok := getLeafValue(jsonTable, "seeing", "zenith_angle_degrees"); ok {
			if scene.ZenithAngleDegrees, ok = v.(float64); !ok {
				return "seeing.zenith_angle_degrees: is not a float64", false
			}
		}
		if v, ok := getLeafValue(jsonTable, "seeing", "outer_scale_m"); ok {
			if scene.OuterScaleM, ok = v.(float64); !ok {
				return "seeing.outer_scale_m: is not a float64", false
			}
		}
		if v, ok := getLeafValue(jsonTable, "seeing", "glao_corrected_fraction"); ok {
			if scene.GlaoCorrectedFraction, ok = v.(float64); !ok {
				return "seeing.glao_corrected_fraction: is not a float64", false
			}
		}

		if _, ok := getLeafValue(jsonTable, "seeing", "ngao"); ok {
			scene.NgaoGiven = true
			v, ok := getLeafValue(jsonTable, "seeing", "ngao", "strehl_ratio")
			if !ok {
				return "seeing.ngao.strehl_ratio: not found", false
			}
			if scene.NgaoStrehlRatio, ok = v.(float64); !ok {
				return "seeing.ngao.strehl_ratio: is not a float64", false
			}
			if v, ok := getLeafValue(jsonTable, "seeing", "ngao", "guide_star_arcsec"); ok {
				pair, ok := coordinatePair(v)
				if !ok {
					return "seeing.ngao.guide_star_arcsec: is not an [x, y] pair", false
				}
				scene.NgaoGuideStarArcsec = pair
			}
		}

		if _, ok := getLeafValue(jsonTable, "seeing", "ltao"); ok {
			scene.LtaoGiven = true
			v, ok := getLeafValue(jsonTable, "seeing", "ltao", "strehl_ratio")
			if !ok {
				return "seeing.ltao.strehl_ratio: not found", false
			}
			if scene.LtaoStrehlRatio, ok = v.(float64); !ok {
				return "seeing.ltao.strehl_ratio: is not a float64", false
			}
			v, ok = getLeafValue(jsonTable, "seeing", "ltao", "radius_arcsec")
			if !ok {
				return "seeing.ltao.radius_arcsec: not found", false
			}
			if scene.LtaoRadiusArcsec, ok = v.(float64); !ok {
				return "seeing.ltao.radius_arcsec: is not a float64", false
			}
		}

		if scene.NgaoGiven && scene.LtaoGiven {
			return "seeing: ngao and ltao are mutually exclusive", false
		}
	}

	if v, ok := getLeafValue(jsonTable, "stars"); ok {
		triples, ok := starTriples(v)
		if !ok {
			return "stars: is not an array of [x_arcsec, y_arcsec, magnitude] triples", false
		}
		scene.Stars = triples
	}

	if _, ok := getLeafValue(jsonTable, "random_stars"); ok {
		scene.RandomGiven = true

		v, ok := getLeafValue(jsonTable, "random_stars", "count")
		if !ok {
			return "random_stars.count: not found", false
		}
		f, ok := v.(float64)
		if !ok || f < 1 {
			return "random_stars.count: is not a float64 >= 1", false
		}
		scene.RandomCount = int(f)

		v, ok = getLeafValue(jsonTable, "random_stars", "width_arcsec")
		if !ok {
			return "random_stars.width_arcsec: not found", false
		}
		if scene.RandomWidthArcsec, ok = v.(float64); !ok {
			return "random_stars.width_arcsec: is not a float64", false
		}

		v, ok = getLeafValue(jsonTable, "random_stars", "magnitude_mean")
		if !ok {
			return "random_stars.magnitude_mean: not found", false
		}
		if scene.RandomMagnitudeMean, ok = v.(float64); !ok {
			return "random_stars.magnitude_mean: is not a float64", false
		}

		if v, ok := getLeafValue(jsonTable, "random_stars", "magnitude_std_dev"); ok {
			f, ok := v.(float64)
			if !ok || f < 0 {
				return "random_stars.magnitude_std_dev: is not a float64 >= 0", false
			}
			scene.RandomMagnitudeStdDev = f
		}

		scene.RandomSeed = 1
		if v, ok := getLeafValue(jsonTable, "random_stars", "seed"); ok {
			f, ok := v.(float64)
			if !ok || f < 0 {
				return "random_stars.seed: is not a float64 >= 0", false
			}
			scene.RandomSeed = uint64(f)
		}
	}

	if len(scene.Stars) == 0 && !scene.RandomGiven {
		return "stars: not found and no random_stars group given", false
	}

	if v, ok := getLeafValue(jsonTable, "magnitude_limit"); ok {
		f, ok := v.(float64)
		if !ok {
			return "magnitude_limit: is not a float64", false
		}
		scene.MagnitudeLimit = &f
	}

	if v, ok := getLeafValue(jsonTable, "photon_noise_seed"); ok {
		f, ok := v.(float64)
		if !ok || f < 0 {
			return "photon_noise_seed: is not a float64 >= 0", false
		}
		seed := uint64(f)
		scene.PhotonNoiseSeed = &seed
	}

	if v, ok := getLeafValue(jsonTable, "workers"); ok {
		f, ok := v.(float64)
		if !ok || f < 0 {
			return "workers: is not a float64 >= 0", false
		}
		scene.Workers = int(f)
	}

	scene.Output = "field"
	if v, ok := getLeafValue(jsonTable, "output"); ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return "output: is not a non-empty string", false
		}
		scene.Output = s
	}

	if v, ok := getLeafValue(jsonTable, "saturation_log_sigma"); ok {
		f, ok := v.(float64)
		if !ok {
			return "saturation_log_sigma: is not a float64", false
		}
		scene.SaturationLogSigma = &f
	}

	if v, ok := getLeafValue(jsonTable, "intensity_stretch"); ok {
		s, ok := v.(string)
		if !ok || (s != "cbrt" && s != "log1p") {
			return "intensity_stretch: is not one of cbrt and log1p", false
		}
		scene.IntensityStretch = s
	}

	return msg, true
}
