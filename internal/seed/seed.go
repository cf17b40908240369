package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/repository"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/utils"
)

// LoadRoster 从 CSV 文件读取名单，名单名称取文件名
func LoadRoster(path string, ownerID int64) (*domain.Roster, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	students, err := utils.ParseStudentsCSV(file)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}

	if err := utils.ValidateStudents(students, 0); err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &domain.Roster{
		Name:        name,
		Description: "从 " + filepath.Base(path) + " 导入",
		OwnerID:     ownerID,
		Students:    students,
	}, nil
}

// SeedRealData 把样例成绩表导入为指定用户的名单
func SeedRealData(ctx context.Context, r *repository.Repository, path string, ownerUsername string) {
	owner, err := r.GetUserByUsername(ctx, ownerUsername)
	if err != nil {
		slog.Error("获取名单所有者失败", "username", ownerUsername, "error", err)
		return
	}

	roster, err := LoadRoster(path, owner.ID)
	if err != nil {
		slog.Error("读取名单失败", "error", err)
		return
	}

	if err := r.CreateRoster(ctx, roster); err != nil {
		slog.Error("插入名单失败", "error", err)
		return
	}

	slog.Info("插入数据完成", "roster_id", roster.ID, "students", len(roster.Students))
}
