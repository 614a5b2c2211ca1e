package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewItem 表示进入扫描会话的一张照片
type NewItem struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Session 拥有一次批量上传的全部状态：条目存储、调度器和碟号游标。
// 每次上传会话创建一个，显式销毁；扫描状态不存在于会话之外。
type Session struct {
	ID        string
	BarID     int64
	CreatedAt time.Time

	store   *Store
	sched   *Scheduler
	workDir string

	mu       sync.Mutex
	order    []string
	nextDisk int
}

// NewSession 为酒吧创建会话。startDisk是目录中已用最大碟号的下一个；
// 之后每批入队条目从游标连续取号，并发批次不会相撞。
func NewSession(barID int64, startDisk int, extractor Extractor, policy RetryPolicy, opts ...SchedulerOption) (*Session, error) {
	if startDisk < 1 {
		startDisk = 1
	}

	workDir, err := os.MkdirTemp("", "jukejoy-scan-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scan work dir: %w", err)
	}

	store := NewStore()
	return &Session{
		ID:        uuid.NewString(),
		BarID:     barID,
		CreatedAt: time.Now(),
		store:     store,
		sched:     NewScheduler(store, extractor, policy, opts...),
		workDir:   workDir,
		nextDisk:  startDisk,
	}, nil
}

// AddImages 把一批照片入队。每个条目分到ID、会话游标给出的碟号和
// 由文件名默认的标题；调度器空闲时立即开始扫描。
//
// 整批要么全进要么全不进：任何一张图片暂存失败时，已暂存的图片被
// 释放，碟号游标原地不动，没有条目进入存储或队列。
func (s *Session) AddImages(items []NewItem) ([]Item, error) {
	s.mu.Lock()

	staged := make([]*Item, 0, len(items))
	unwind := func() {
		for _, item := range staged {
			item.Image.Release()
		}
		s.mu.Unlock()
	}

	disk := s.nextDisk
	for _, in := range items {
		if len(in.Data) == 0 {
			unwind()
			return nil, fmt.Errorf("empty image data for %q", in.FileName)
		}

		ref, err := NewImageRef(s.workDir, "item-*", in.ContentType, in.Data)
		if err != nil {
			unwind()
			return nil, err
		}

		fields := EditableFields{
			Title:      titleFromFileName(in.FileName),
			DiskNumber: disk,
			Year:       time.Now().Year(),
		}
		staged = append(staged, &Item{
			ID:       uuid.NewString(),
			FileName: in.FileName,
			Fields:   fields,
			defaults: fields,
			Status:   StatusPending,
			Image:    ref,
		})
		disk++
	}

	added := make([]Item, 0, len(staged))
	ids := make([]string, 0, len(staged))
	for _, item := range staged {
		s.store.Add(item)
		s.order = append(s.order, item.ID)
		ids = append(ids, item.ID)
		added = append(added, *item)
	}
	s.nextDisk = disk
	s.mu.Unlock()

	s.sched.Enqueue(ids...)
	return added, nil
}

// Items 按入队顺序返回所有条目的快照
func (s *Session) Items() []Item {
	s.mu.Lock()
	order := make([]string, len(s.order))
	copy(order, s.order)
	s.mu.Unlock()

	items := make([]Item, 0, len(order))
	for _, id := range order {
		if item, ok := s.store.Get(id); ok {
			items = append(items, item)
		}
	}
	return items
}

// Item 返回单个条目的快照
func (s *Session) Item(id string) (Item, bool) {
	return s.store.Get(id)
}

// EditItem 把部分编辑合并进条目的可编辑字段
func (s *Session) EditItem(id string, patch FieldsPatch) (Item, bool) {
	return s.store.MergeFields(id, patch)
}

// RemoveItem 丢弃条目。已在扫描中的条目扫完后其结果被丢弃。
func (s *Session) RemoveItem(id string) bool {
	if !s.store.Remove(id) {
		return false
	}

	s.mu.Lock()
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return true
}

// Rescan 把失败的条目重新排到队尾，尝试次数重新计算
func (s *Session) Rescan(id string) error {
	return s.sched.Rescan(id)
}

// Scanning 报告会话的调度器是否仍在排空
func (s *Session) Scanning() bool {
	return s.sched.Draining()
}

// Close 释放所有剩余图片句柄和会话工作目录
func (s *Session) Close() {
	s.store.RemoveAll()
	s.mu.Lock()
	s.order = nil
	s.mu.Unlock()
	os.RemoveAll(s.workDir)
}

// Manager 按ID登记所有存活会话
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 创建空的会话登记表
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Put 登记会话
func (m *Manager) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get 查找会话
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close 销毁会话并将其移出登记表
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

func titleFromFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}
