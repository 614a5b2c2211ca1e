package scan

import (
	"sync"

	"github.com/masambo/jukebox-joy-scan/core/extraction"
)

// Store 是条目的权威记录，变更来自三个方向：调度器的扫描结果、
// 用户编辑和用户删除。所有变更都按ID合并进已存条目；绝不整体替换，
// 因此对同一条目不同部分的并发更新都能落盘。
type Store struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewStore 创建空的条目存储
func NewStore() *Store {
	return &Store{items: make(map[string]*Item)}
}

// Add 登记新条目。ID唯一性由调用方保证。
func (s *Store) Add(item *Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

// Get 返回条目的副本
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// MergeFields 应用部分编辑。只写入非nil的patch字段；
// 扫描状态和歌曲列表在这里永远不动。
func (s *Store) MergeFields(id string, patch FieldsPatch) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, false
	}

	if patch.Title != nil {
		item.Fields.Title = *patch.Title
	}
	if patch.Artist != nil {
		item.Fields.Artist = *patch.Artist
	}
	if patch.DiskNumber != nil {
		item.Fields.DiskNumber = *patch.DiskNumber
	}
	if patch.Genre != nil {
		item.Fields.Genre = *patch.Genre
	}
	if patch.Year != nil {
		item.Fields.Year = *patch.Year
	}

	return *item, true
}

// Remove 删除条目并释放其图片句柄。条目已不存在时返回false。
// 正在扫描中的条目允许扫完，其结果在completeScan中被丢弃。
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return false
	}
	delete(s.items, id)
	if item.Image != nil {
		item.Image.Release()
	}
	return true
}

// RemoveAll 清空存储并释放全部图片句柄
func (s *Store) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.items {
		delete(s.items, id)
		if item.Image != nil {
			item.Image.Release()
		}
	}
}

// claim 把条目从pending转为scanning。只有调度器调用；
// 返回false表示条目已被删除或状态不符，调度器应跳过它。
func (s *Store) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.Status != StatusPending {
		return false
	}
	item.Status = StatusScanning
	return true
}

// completeScan 结算一次调度器尝试。failure为nil时条目标记为已扫描，
// 结果中的歌曲作为权威曲目表（可能为空）；否则条目失败并原样记录错误。
// 条目在扫描途中被删除时结果被丢弃，ok为false。
func (s *Store) completeScan(id string, result *extraction.Result, failure error) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, false
	}

	if failure != nil {
		item.Status = StatusFailed
		item.Songs = nil
		item.LastError = failure.Error()
		return *item, true
	}

	item.Status = StatusScanned
	item.Songs = result.Songs
	item.LastError = ""

	// 识别出的专辑信息只填充用户没有改动过默认值的字段
	if result.Album != nil {
		applyAlbumMeta(item, result.Album)
	}

	return *item, true
}

// resetForRescan 把失败的条目重置为pending以开始新一轮尝试。
// 条目不存在或不是失败状态时返回false。
func (s *Store) resetForRescan(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.Status != StatusFailed {
		return false
	}
	item.Status = StatusPending
	item.LastError = ""
	return true
}

func applyAlbumMeta(item *Item, meta *extraction.AlbumMeta) {
	if meta.Title != "" && item.Fields.Title == item.defaults.Title {
		item.Fields.Title = meta.Title
	}
	if meta.Artist != "" && item.Fields.Artist == item.defaults.Artist {
		item.Fields.Artist = meta.Artist
	}
	if meta.Genre != "" && item.Fields.Genre == item.defaults.Genre {
		item.Fields.Genre = meta.Genre
	}
	if meta.Year != 0 && item.Fields.Year == item.defaults.Year {
		item.Fields.Year = meta.Year
	}
}
