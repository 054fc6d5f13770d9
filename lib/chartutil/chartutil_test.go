package chartutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderLineChart(t *testing.T) {
	base := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)
	points := []Point{
		{Time: base, Value: 89.99},
		{Time: base.Add(time.Hour * 12), Value: 79.99},
		{Time: base.Add(time.Hour * 24), Value: 85},
	}

	out := filepath.Join(t.TempDir(), "chart.png")
	err := RenderLineChart("Price History for Gaming Laptop", points, out)
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	require.Greater(t, info.Size(), int64(0))
}

func TestRenderLineChartNotEnoughData(t *testing.T) {
	out := filepath.Join(t.TempDir(), "chart.png")

	err := RenderLineChart("empty", nil, out)
	require.ErrorIs(t, err, ErrNotEnoughData)

	err = RenderLineChart("single", []Point{{Time: time.Now(), Value: 1}}, out)
	require.ErrorIs(t, err, ErrNotEnoughData)

	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err))
}
