package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStudentsCSV(t *testing.T) {
	input := "学号,姓名,成绩\n2023001,张三,8.5\n2023002,李四, 6\n"

	students, err := ParseStudentsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, students, 2)

	assert.Equal(t, "2023001", students[0].StudentNumber)
	assert.Equal(t, "张三", students[0].FullName)
	assert.InDelta(t, 8.5, students[0].Score, 1e-9)
	assert.Equal(t, 0, students[0].Position)
	assert.Equal(t, 1, students[1].Position)
	assert.InDelta(t, 6.0, students[1].Score, 1e-9)
}

func TestParseStudentsCSVWithoutStudentNumber(t *testing.T) {
	input := "\ufeffAlumno,Nota\nAna,7.5\nLuis,4\nMarta,9\n"

	students, err := ParseStudentsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, students, 3)

	assert.Equal(t, "1", students[0].StudentNumber)
	assert.Equal(t, "3", students[2].StudentNumber)
	assert.Equal(t, "Marta", students[2].FullName)
}

func TestParseStudentsCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"header only", "name,score\n"},
		{"missing score column", "name,grade\nAna,7\n"},
		{"missing name column", "student_number,score\n1,7\n"},
		{"score not a number", "name,score\nAna,seven\n"},
		{"ragged row", "name,score\nAna,7,extra\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStudentsCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}
