package eyepiece

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// AddPhotonNoise replaces every sample of the frame with a Poisson draw
// whose expectation is the sample value. Zero samples stay zero.
//
// The frame is left untouched if any sample is negative or NaN, in which
// case the error wraps ErrNegativeExpectation.
func (img *FieldImage) AddPhotonNoise(rng *rand.Rand) error {
	for i, v := range img.Data {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("photon noise expectation %g at sample %d: %w",
				v, i, ErrNegativeExpectation)
		}
	}
	for i, v := range img.Data {
		if v == 0 {
			continue
		}
		img.Data[i] = distuv.Poisson{Lambda: v, Src: rng}.Rand()
	}
	return nil
}
