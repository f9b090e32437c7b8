package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchlistWatcher 自选列表文件监控器
// 主配置在启动后不可变，唯一允许热更新的是自选列表文件。
type WatchlistWatcher struct {
	listPath    string
	watcher     *fsnotify.Watcher
	mu          sync.RWMutex
	isWatching  bool
	lastModTime time.Time
	updateChan  chan *Watchlist
	errorChan   chan error
}

// NewWatchlistWatcher 创建自选列表监控器
func NewWatchlistWatcher(listPath string) (*WatchlistWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %v", err)
	}

	// 获取文件所在目录
	listDir := filepath.Dir(listPath)
	if listDir == "" || listDir == "." {
		// 使用当前目录
		var err error
		listDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("获取当前目录失败: %v", err)
		}
		listPath = filepath.Join(listDir, filepath.Base(listPath))
	}

	// 获取初始修改时间
	var lastModTime time.Time
	if info, err := os.Stat(listPath); err == nil {
		lastModTime = info.ModTime()
	}

	ww := &WatchlistWatcher{
		listPath:    listPath,
		watcher:     watcher,
		lastModTime: lastModTime,
		updateChan:  make(chan *Watchlist, 1),
		errorChan:   make(chan error, 10),
	}

	return ww, nil
}

// Start 开始监控自选列表文件
func (ww *WatchlistWatcher) Start(ctx context.Context) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()

	if ww.isWatching {
		return fmt.Errorf("自选列表监控器已经在运行")
	}

	// 监控文件所在目录（编辑器通常以重命名方式写文件）
	listDir := filepath.Dir(ww.listPath)
	if err := ww.watcher.Add(listDir); err != nil {
		return fmt.Errorf("添加监控目录失败: %v", err)
	}

	ww.isWatching = true

	// 启动监控协程
	go ww.watchLoop(ctx)

	return nil
}

// Stop 停止监控
func (ww *WatchlistWatcher) Stop() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()

	if !ww.isWatching {
		return nil
	}

	ww.isWatching = false
	return ww.watcher.Close()
}

// watchLoop 监控循环
func (ww *WatchlistWatcher) watchLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second) // 每秒检查一次
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-ww.watcher.Events:
			if !ok {
				return
			}
			// 检查是否是目标文件的变化
			if event.Name == ww.listPath {
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					// 延迟处理，避免文件正在写入时读取
					time.Sleep(100 * time.Millisecond)
					ww.handleChange()
				}
			}

		case err, ok := <-ww.watcher.Errors:
			if !ok {
				return
			}
			select {
			case ww.errorChan <- err:
			default:
			}

		case <-ticker.C:
			// 定期检查文件修改时间（作为备用机制）
			ww.checkFileModTime()
		}
	}
}

// handleChange 处理自选列表文件变化
func (ww *WatchlistWatcher) handleChange() {
	ww.mu.Lock()
	defer ww.mu.Unlock()

	// 检查文件修改时间，避免重复处理
	info, err := os.Stat(ww.listPath)
	if err != nil {
		select {
		case ww.errorChan <- fmt.Errorf("获取文件信息失败: %v", err):
		default:
		}
		return
	}

	modTime := info.ModTime()
	if modTime.Equal(ww.lastModTime) || modTime.Before(ww.lastModTime) {
		// 文件未真正修改
		return
	}

	ww.lastModTime = modTime

	// 重新加载自选列表
	wl, err := LoadWatchlist(ww.listPath)
	if err != nil {
		select {
		case ww.errorChan <- fmt.Errorf("重新加载自选列表失败: %v", err):
		default:
		}
		return
	}

	// 覆盖旧的未消费更新
	select {
	case <-ww.updateChan:
	default:
	}
	ww.updateChan <- wl
}

// checkFileModTime 检查文件修改时间（备用机制）
func (ww *WatchlistWatcher) checkFileModTime() {
	ww.mu.RLock()
	lastModTime := ww.lastModTime
	ww.mu.RUnlock()

	info, err := os.Stat(ww.listPath)
	if err != nil {
		return
	}

	if info.ModTime().After(lastModTime) {
		ww.handleChange()
	}
}

// GetUpdateChan 获取自选列表更新通道
func (ww *WatchlistWatcher) GetUpdateChan() <-chan *Watchlist {
	return ww.updateChan
}

// GetErrorChan 获取错误通道
func (ww *WatchlistWatcher) GetErrorChan() <-chan error {
	return ww.errorChan
}
