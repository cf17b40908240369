package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBundledRoster(t *testing.T) {
	roster, err := LoadRoster(filepath.Join("data", "scores.csv"), 3)
	require.NoError(t, err)

	assert.Equal(t, "scores", roster.Name)
	assert.Equal(t, int64(3), roster.OwnerID)
	require.Len(t, roster.Students, 39)
	assert.Equal(t, "20230001", roster.Students[0].StudentNumber)
	assert.InDelta(t, 12.5, roster.Students[0].Score, 1e-9)
	assert.InDelta(t, 13.0, roster.Students[38].Score, 1e-9)
}

func TestLoadRosterRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.csv")
	require.NoError(t, os.WriteFile(path, []byte("学号,姓名,成绩\n1,张三,5\n1,李四,6\n"), 0o644))

	_, err := LoadRoster(path, 1)
	assert.Error(t, err)
}

func TestLoadRosterMissingFile(t *testing.T) {
	_, err := LoadRoster(filepath.Join(t.TempDir(), "missing.csv"), 1)
	assert.Error(t, err)
}
