package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/masambo/jukebox-joy-scan/logger"
)

// InboxWatcher 用收件目录喂给扫描会话：落进目录的图片文件像通过
// 上传接口进来一样入队，随后源文件被消费掉。
type InboxWatcher struct {
	dir     string
	session *Session
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewInboxWatcher 创建监视dir并供给session的监视器
func NewInboxWatcher(dir string, session *Session) (*InboxWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create inbox watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch inbox dir: %w", err)
	}

	w := &InboxWatcher{
		dir:     dir,
		session: session,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go w.loop()

	logger.Info("Scan inbox watcher started",
		logger.String("dir", dir),
		logger.Int64("barId", session.BarID))
	return w, nil
}

// Stop 关闭监视器。会话继续存活。
func (w *InboxWatcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *InboxWatcher) loop() {
	defer close(w.done)

	// 事件触发时文件可能还在拷贝中；等它安静一小段时间再摄入
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && isImageFile(event.Name) {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Inbox watcher error", logger.ErrorField(err))

		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < 500*time.Millisecond {
					continue
				}
				delete(pending, path)
				w.ingest(path)
			}
		}
	}
}

func (w *InboxWatcher) ingest(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read inbox image",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}

	_, err = w.session.AddImages([]NewItem{{
		FileName:    filepath.Base(path),
		ContentType: contentTypeForExt(filepath.Ext(path)),
		Data:        data,
	}})
	if err != nil {
		logger.Error("Failed to enqueue inbox image",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}

	// 已消费；会话此时持有自己的副本
	os.Remove(path)

	logger.Info("Inbox image enqueued",
		logger.String("file", filepath.Base(path)),
		logger.String("sessionId", w.session.ID))
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return true
	default:
		return false
	}
}
