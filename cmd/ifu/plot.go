package main

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"

	// Liberation fonts register automatically on import
	_ "gonum.org/v1/plot/font/liberation"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// saveThroughputPlot draws the IFU throughput against the offset of the IFU
// center from the star, in arcseconds.
func saveThroughputPlot(filename string, offsets, throughputs []float64) error {
	n := len(offsets)
	if n < 2 {
		return fmt.Errorf("throughput plot needs at least 2 offsets, got %d", n)
	}

	p := plot.New()

	// Modify the font fields directly on existing styles
	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = vg.Points(12)

	p.X.Label.TextStyle.Font.Typeface = "Liberation"
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = vg.Points(12)

	p.Y.Label.TextStyle.Font.Typeface = "Liberation"
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)

	p.X.Tick.Label.Font.Typeface = "Liberation"
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = vg.Points(10)

	p.Y.Tick.Label.Font.Typeface = "Liberation"
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Tick.Label.Font.Size = vg.Points(10)

	p.Title.Text = "IFU throughput vs field offset"
	p.X.Label.Text = "Offset (arcsec)"
	p.Y.Label.Text = "Flux throughput"

	xSpan := offsets[n-1] - offsets[0]
	if xSpan > 0 {
		p.X.Tick.Marker = StepTicks{Step: xSpan / 8, Format: "%.2f"}
	}
	p.Y.Tick.Marker = StepTicks{Step: 0.1, Format: "%.2f"}
	p.Add(plotter.NewGrid()) // grid + ticks

	p.Y.Min = 0.0

	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = offsets[i]
		pts[i].Y = throughputs[i]
	}

	linePoints, scatterPoints, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	linePoints.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	linePoints.Width = vg.Points(1)

	scatterPoints.Shape = draw.CircleGlyph{}
	scatterPoints.Radius = vg.Points(2)
	scatterPoints.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}

	p.Add(linePoints, scatterPoints)

	// Dashed reference at the on-axis throughput
	hpts := plotter.XYs{
		{X: offsets[0], Y: throughputs[0]},
		{X: offsets[n-1], Y: throughputs[0]},
	}

	hline, err := plotter.NewLine(hpts)
	if err != nil {
		return err
	}

	p.Add(hline)

	hline.Dashes = []vg.Length{
		vg.Points(6), // dash length
		vg.Points(4), // gap length
	}
	hline.Color = color.RGBA{R: 0, G: 0, B: 0, A: 255} // black

	return p.Save(8*vg.Inch, 4*vg.Inch, filename)
}

type StepTicks struct {
	Step   float64
	Format string
}

func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	start := math.Ceil(min/t.Step) * t.Step
	for v := start; v <= max; v += t.Step {
		ticks = append(ticks, plot.Tick{
			Value: v,
			Label: fmt.Sprintf(t.Format, v),
		})
	}
	return ticks
}
