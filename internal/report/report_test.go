package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func TestFitnessPlot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FitnessPlot(&buf, []float64{-1.2, -0.8, -0.5, -0.5, -0.1}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestSweepPlot(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{
		{Name: "sigma=0.1", History: []float64{90, 95, 97}},
		{Name: "sigma=1", History: []float64{88, 89, 93}},
	}
	require.NoError(t, SweepPlot(&buf, series))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestScoresPlot(t *testing.T) {
	var buf bytes.Buffer
	groups := []Group{
		{Label: "A", Scores: []float64{3, 5, 7, 9}},
		{Label: "B", Scores: []float64{4, 5, 6}},
		{Label: "C"},
	}
	require.NoError(t, ScoresPlot(&buf, groups))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngSignature))
}

func TestPlotWithoutData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, FitnessPlot(&buf, nil), ErrNoData)
	assert.ErrorIs(t, SweepPlot(&buf, nil), ErrNoData)
	assert.ErrorIs(t, ScoresPlot(&buf, nil), ErrNoData)
}
