package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch 监听配置文件变更，写入后回调 onChange。
// 编辑器保存通常触发多个事件，这里做 500ms 去抖。ctx 结束时停止监听。
func Watch(ctx context.Context, path string, onChange func()) error {
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}

	// 监听目录而不是文件本身：很多编辑器用 rename+create 方式保存
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("监听配置目录失败: %w", err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, func() {
					slog.Info("配置文件已变更", "path", target)
					onChange()
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("配置文件监听错误", "error", err)
			}
		}
	}()

	return nil
}
