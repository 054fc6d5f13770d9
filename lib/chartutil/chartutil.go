package chartutil

import (
	"fmt"
	"os"
	"time"

	"github.com/wcharczuk/go-chart/v2"
)

var ErrNotEnoughData = fmt.Errorf("not enough data points to chart")

type Point struct {
	Time  time.Time
	Value float64
}

// RenderLineChart writes a PNG line chart of the points to outputPath,
// oldest point first. At least two points are required.
func RenderLineChart(title string, points []Point, outputPath string) error {
	if len(points) < 2 {
		return ErrNotEnoughData
	}

	xvalues := make([]time.Time, len(points))
	yvalues := make([]float64, len(points))
	for i, p := range points {
		xvalues[i] = p.Time
		yvalues[i] = p.Value
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1000,
		Height: 600,
		XAxis:  chart.XAxis{Name: "Date"},
		YAxis:  chart.YAxis{Name: "Price ($)"},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: xvalues,
				YValues: yvalues,
				Style: chart.Style{
					StrokeWidth: 2,
					DotWidth:    4,
				},
			},
		},
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer file.Close()

	err = graph.Render(chart.PNG, file)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
