package eyepiece_test

import (
	"context"
	"fmt"
	"log"

	"github.com/rconan/eyepiece"
)

// Example renders a single star centered on a diffraction limited Hubble
// Space Telescope field, at the Nyquist pixel scale in V band, and checks
// that the frame holds the whole unit flux.
func Example() {
	hst := eyepiece.NewHST()

	field, err := eyepiece.NewField(hst).
		PixelScale(eyepiece.Nyquist(1)).
		FieldOfView(eyepiece.PixelCount(192)).
		Objects(eyepiece.Objects{{}}).
		Flux(1).
		Build()
	if err != nil {
		log.Fatalf("field definition: %v", err)
	}

	img, err := field.Render(context.Background())
	if err != nil {
		log.Fatalf("render: %v", err)
	}

	// One flux unit spread over every lit pupil sample.
	res := eyepiece.DefaultPupilResolution
	samples := eyepiece.PupilArea(hst, res) / (res * res)

	fmt.Printf("field: %d x %d pixels\n", img.Side, img.Side)
	fmt.Printf("below Nyquist: %v\n", field.BelowNyquist())
	fmt.Printf("flux captured: %.3f\n", img.Flux()/samples)

	// Output:
	// field: 192 x 192 pixels
	// below Nyquist: false
	// flux captured: 1.000
}
