package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/config"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/repository"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/seed"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var students int
	var owner string
	var path string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机名单, 3: 导入成绩表)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.IntVar(&students, "students", 39, "随机名单的人数")
	flag.StringVar(&owner, "owner", "", "名单所有者的用户名，默认为初始管理员")
	flag.StringVar(&path, "csv", "", "导入的成绩表路径，默认使用配置中的样例数据")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if owner == "" {
		owner = cfg.InitialAdmin.Username
	}
	if path == "" {
		path = cfg.Seed.DataPath
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
			if err != nil {
				slog.Error("无法生成随机用户", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(context.Background(), user); err != nil {
				slog.Error("无法插入用户", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入用户成功", slog.Int("count", cnt))
	case 2:
		if n <= 0 || students <= 0 {
			slog.Error("请输入合法的名单数量与人数")
			return
		}

		user, err := repo.GetUserByUsername(context.Background(), owner)
		if err != nil {
			slog.Error("无法获取名单所有者", slog.String("username", owner), slog.String("error", err.Error()))
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			roster := utils.GenerateRandomRoster(user.ID, students)
			if err := repo.CreateRoster(context.Background(), roster); err != nil {
				slog.Error("无法插入名单", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入名单成功", slog.Int("count", cnt))
	case 3:
		seed.SeedRealData(context.Background(), repo, path, owner)
	default:
		slog.Error("指定的操作非法")
	}
}
