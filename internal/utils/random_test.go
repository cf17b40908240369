package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomOTP(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), GenerateRandomOTP())
}

func TestGenerateRandomPassword(t *testing.T) {
	assert.Len(t, []rune(GenerateRandomPassword(12)), 12)
}

func TestGenerateRandomRoster(t *testing.T) {
	roster := GenerateRandomRoster(7, 39)

	assert.Equal(t, int64(7), roster.OwnerID)
	require.Len(t, roster.Students, 39)
	require.NoError(t, ValidateStudents(roster.Students, 0))

	for i, s := range roster.Students {
		assert.Equal(t, i, s.Position)
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 10.0)
	}
}
