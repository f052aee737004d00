package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuqie6/habitpath/internal/bootstrap"
	"github.com/yuqie6/habitpath/internal/eventbus"
	"github.com/yuqie6/habitpath/internal/httpapi"
	"github.com/yuqie6/habitpath/internal/pkg/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath, cfgErr := config.DefaultConfigPath()
	if cfgErr == nil {
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			_ = config.WriteFile(cfgPath, config.Default())
		}
	}

	core, err := bootstrap.NewCore(cfgPath)
	if err != nil {
		slog.Error("启动 Agent 失败", "error", err)
		os.Exit(1)
	}
	defer core.Close()

	slog.Info("Habit Agent 启动中...", "name", core.Cfg.App.Name, "version", core.Cfg.App.Version)

	server, err := httpapi.Start(ctx, core, httpapi.Options{ListenAddr: core.Cfg.Server.ListenAddr})
	if err != nil {
		slog.Error("启动本地 API 失败", "error", err)
		os.Exit(1)
	}

	// 配置文件变更通知：推给订阅方，由前端提示重启
	if cfgErr == nil {
		if err := config.Watch(ctx, cfgPath, func() {
			core.Hub.Publish(eventbus.Event{Type: eventbus.EventSettingsUpdated})
		}); err != nil {
			slog.Warn("配置文件监听启动失败", "error", err)
		}
	}

	slog.Info("Habit Agent 已启动", "base_url", server.BaseURL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("正在关闭...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = server.Shutdown(shutdownCtx)
	shutdownCancel()

	slog.Info("Habit Agent 已退出")
}
