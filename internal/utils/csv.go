package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
)

var (
	studentNumberHeaders = []string{"学号", "student_number"}
	fullNameHeaders      = []string{"姓名", "alumno", "name"}
	scoreHeaders         = []string{"成绩", "nota", "score"}
)

func findColumn(headers []string, candidates []string) int {
	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
		for _, candidate := range candidates {
			if h == candidate {
				return i
			}
		}
	}
	return -1
}

// ParseStudentsCSV 解析带表头的学生成绩表，没有学号列时用行号作为学号
func ParseStudentsCSV(r io.Reader) ([]domain.Student, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("文件为空")
		}
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	numberCol := findColumn(headers, studentNumberHeaders)
	nameCol := findColumn(headers, fullNameHeaders)
	scoreCol := findColumn(headers, scoreHeaders)
	if nameCol == -1 {
		return nil, errors.New("没有找到姓名列")
	}
	if scoreCol == -1 {
		return nil, errors.New("没有找到成绩列")
	}

	students := make([]domain.Student, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("第 %d 行格式错误: %w", line, err)
		}

		score, err := strconv.ParseFloat(strings.TrimSpace(row[scoreCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行的成绩不是数字", line)
		}

		student := domain.Student{
			FullName: strings.TrimSpace(row[nameCol]),
			Score:    score,
			Position: len(students),
		}
		if numberCol == -1 {
			student.StudentNumber = strconv.Itoa(len(students) + 1)
		} else {
			student.StudentNumber = strings.TrimSpace(row[numberCol])
		}

		students = append(students, student)
	}

	if len(students) == 0 {
		return nil, errors.New("文件中没有学生")
	}

	return students, nil
}
