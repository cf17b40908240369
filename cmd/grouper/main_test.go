package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/partitioner"
)

var sampleCSV = filepath.Join("..", "..", "internal", "seed", "data", "scores.csv")

func TestRunPrintsGroups(t *testing.T) {
	dir := t.TempDir()
	history := filepath.Join(dir, "history.csv")
	plot := filepath.Join(dir, "fitness.png")

	var out bytes.Buffer
	args := []string{"-csv", sampleCSV, "-preset", "diversity", "-seed", "3", "-generations", "10", "-history", history, "-plot", plot}
	require.NoError(t, run(context.Background(), args, &out))

	text := out.String()
	assert.Contains(t, text, "最佳适应度")
	for _, label := range []string{"A", "B", "C"} {
		assert.Contains(t, text, "\n"+label+" ")
	}

	data, err := os.ReadFile(history)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 11)
	assert.Equal(t, "generation,best_fitness", lines[0])

	info, err := os.Stat(plot)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunSweep(t *testing.T) {
	var out bytes.Buffer
	args := []string{"-csv", sampleCSV, "-preset", "continuous", "-seed", "1", "-generations", "5", "-population", "10", "-sweep", "0.01, 0.5,2"}
	require.NoError(t, run(context.Background(), args, &out))

	text := out.String()
	assert.Contains(t, text, "0.01")
	assert.Contains(t, text, "0.5")
}

func TestRunRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing csv", []string{"-preset", "balance"}},
		{"unknown preset", []string{"-csv", sampleCSV, "-preset", "random"}},
		{"sweep on discrete", []string{"-csv", sampleCSV, "-sweep", "0.1"}},
		{"bad sigma list", []string{"-csv", sampleCSV, "-preset", "continuous", "-sweep", "0.1,x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &out))
		})
	}
}

func TestOptionsParameters(t *testing.T) {
	opts := &options{preset: "balance", generations: 7, seed: 9, seeded: true}

	p, err := opts.parameters()
	require.NoError(t, err)
	assert.Equal(t, partitioner.ToleranceBand, p.Tolerance)
	assert.Equal(t, 4, p.GroupCount)
	assert.Equal(t, 7, p.MaxGenerations)
	require.NotNil(t, p.Seed)
	assert.Equal(t, uint64(9), *p.Seed)
}
