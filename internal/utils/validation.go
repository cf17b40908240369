package utils

import (
	"errors"
	"fmt"
	"math"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
)

// ValidateStudents 检查名单中的学生能否参与分组
func ValidateStudents(students []domain.Student, maxStudents int) error {
	if len(students) == 0 {
		return errors.New("名单中没有学生")
	}

	if maxStudents > 0 && len(students) > maxStudents {
		return fmt.Errorf("名单人数不能超过 %d 人", maxStudents)
	}

	seen := make(map[string]bool, len(students))
	for i, student := range students {
		if student.StudentNumber == "" {
			return fmt.Errorf("第 %d 名学生缺少学号", i+1)
		}
		if student.FullName == "" {
			return fmt.Errorf("第 %d 名学生缺少姓名", i+1)
		}
		if math.IsNaN(student.Score) || math.IsInf(student.Score, 0) {
			return fmt.Errorf("学号为 %s 的学生成绩不合法", student.StudentNumber)
		}
		if seen[student.StudentNumber] {
			return fmt.Errorf("学号 %s 重复", student.StudentNumber)
		}
		seen[student.StudentNumber] = true
	}

	return nil
}

// ValidateGroupingLimits 检查分组参数是否超出服务端允许的范围
func ValidateGroupingLimits(params *domain.GroupingParameters, maxPopulationSize, maxGenerations int) error {
	if params.PopulationSize > maxPopulationSize {
		return fmt.Errorf("种群大小不能超过 %d", maxPopulationSize)
	}

	if params.MaxGenerations > maxGenerations {
		return fmt.Errorf("迭代代数不能超过 %d", maxGenerations)
	}

	return nil
}
