package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yuqie6/habitpath/internal/ai"
	"github.com/yuqie6/habitpath/internal/eventbus"
	"github.com/yuqie6/habitpath/internal/pkg/config"
	"github.com/yuqie6/habitpath/internal/repository"
	"github.com/yuqie6/habitpath/internal/service"
)

// Core 持有进程内共享的核心依赖
type Core struct {
	Cfg       *config.Config
	DB        *repository.Database
	LogCloser io.Closer
	Hub       *eventbus.Hub

	Repos struct {
		Habit     *repository.HabitRepository
		Activity  *repository.ActivityRepository
		Expertise *repository.ExpertiseRepository
		AwardLog  *repository.AwardLogRepository
	}

	Services struct {
		Habits     *service.HabitService
		Activities *service.ActivityService
		Awards     *service.AwardService
		Streaks    *service.StreakService
		Trends     *service.TrendService
		Coach      *service.CoachService
		Memory     *service.MemoryService
	}

	Clients struct {
		Coach      *ai.CoachClient
		Embeddings *ai.EmbeddingClient
	}
}

// NewCore 构建核心依赖（不启动 HTTP）
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logCloser, _ := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})

	db, err := repository.NewDatabase(cfg.Storage.DBPath)
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}

	c := &Core{Cfg: cfg, DB: db, LogCloser: logCloser, Hub: eventbus.NewHub()}

	// Repos
	c.Repos.Habit = repository.NewHabitRepository(db.DB)
	c.Repos.Activity = repository.NewActivityRepository(db.DB)
	c.Repos.Expertise = repository.NewExpertiseRepository(db.DB)
	c.Repos.AwardLog = repository.NewAwardLogRepository(db.DB)

	// Clients
	c.Clients.Coach = ai.NewCoachClient(&ai.CoachConfig{
		APIKey:  cfg.AI.Coach.APIKey,
		BaseURL: cfg.AI.Coach.BaseURL,
		Model:   cfg.AI.Coach.Model,
	})
	c.Clients.Embeddings = ai.NewEmbeddingClient(&ai.EmbeddingConfig{
		APIKey:  cfg.AI.Embeddings.APIKey,
		BaseURL: cfg.AI.Embeddings.BaseURL,
		Model:   cfg.AI.Embeddings.Model,
	})

	// 记忆服务可选：初始化失败不阻塞结算链路
	var memories service.MemoryQuerier
	memory, err := service.NewMemoryService(c.Clients.Embeddings, &service.MemoryConfig{
		StoragePath: cfg.Storage.MemoryPath,
	})
	if err != nil {
		slog.Warn("记忆服务初始化失败，教练将不带长期记忆", "error", err)
	} else {
		c.Services.Memory = memory
		memories = memory
	}

	// Services
	c.Services.Streaks = service.NewStreakService(c.Repos.Activity, cfg.Award.StreakWindowDays)
	c.Services.Awards = service.NewAwardService(c.Repos.Expertise, c.Repos.AwardLog, c.Services.Streaks, service.DefaultXPPolicy{})
	c.Services.Habits = service.NewHabitService(c.Repos.Habit, c.Repos.Activity)
	c.Services.Activities = service.NewActivityService(c.Repos.Habit, c.Repos.Activity, c.Services.Awards, c.Services.Habits, c.Hub)
	c.Services.Trends = service.NewTrendService(c.Repos.AwardLog)
	c.Services.Coach = service.NewCoachService(c.Clients.Coach, memories, c.Repos.AwardLog)

	return c, nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	if c.LogCloser != nil {
		_ = c.LogCloser.Close()
	}
	return dbErr
}

// RequireCoachConfigured 检查教练 LLM 是否已配置
func (c *Core) RequireCoachConfigured() error {
	if c.Clients.Coach == nil || !c.Clients.Coach.IsConfigured() {
		return fmt.Errorf("教练 LLM 未配置")
	}
	return nil
}
