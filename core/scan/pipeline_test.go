package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/masambo/jukebox-joy-scan/core/extraction"
)

// trackList 生成n条带编号的歌曲
func trackList(n int) []extraction.Song {
	songs := make([]extraction.Song, 0, n)
	for i := 1; i <= n; i++ {
		songs = append(songs, extraction.Song{TrackNumber: i, Title: "Track"})
	}
	return songs
}

// 完整流水线：两张照片入队，第一张顺利识别，第二张被限流三次后
// 成功，最后整批提交。
func TestPipelineEndToEnd(t *testing.T) {
	// 串行FIFO让调用顺序确定：第1次调用是第一个条目，
	// 第2-5次是第二个条目的各次尝试。
	ext := &stubExtractor{
		respond: func(call int, uri string) (*extraction.Result, error) {
			switch {
			case call == 1:
				return &extraction.Result{Songs: trackList(5)}, nil
			case call <= 4:
				return nil, &extraction.Error{Kind: extraction.KindRateLimited, Status: 429, Message: "rate limit exceeded"}
			default:
				return &extraction.Result{Songs: trackList(3)}, nil
			}
		},
	}

	policy := RetryPolicy{MaxAttempts: 4, BackoffBase: 2 * time.Second}
	session, err := NewSession(9, 8, ext, policy)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()

	var mu sync.Mutex
	var delays []time.Duration
	session.sched.sleep = func(d time.Duration) {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
	}

	added, err := session.AddImages([]NewItem{
		{FileName: "first-album.jpg", ContentType: "image/jpeg", Data: []byte("first")},
		{FileName: "second-album.jpg", ContentType: "image/jpeg", Data: []byte("second")},
	})
	if err != nil {
		t.Fatalf("AddImages: %v", err)
	}

	waitForCondition(t, 5*time.Second, "scan to finish", func() bool { return !session.Scanning() })

	items := session.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for i, item := range items {
		if item.Status != StatusScanned {
			t.Fatalf("item %d status = %v (%s)", i, item.Status, item.LastError)
		}
	}
	if len(items[0].Songs) != 5 || len(items[1].Songs) != 3 {
		t.Errorf("song counts = %d/%d, want 5/3", len(items[0].Songs), len(items[1].Songs))
	}
	if items[0].Fields.DiskNumber != 8 || items[1].Fields.DiskNumber != 9 {
		t.Errorf("disk numbers = %d/%d, want 8/9",
			items[0].Fields.DiskNumber, items[1].Fields.DiskNumber)
	}

	mu.Lock()
	var total time.Duration
	for _, d := range delays {
		total += d
	}
	mu.Unlock()
	if total != 14*time.Second {
		t.Errorf("accumulated backoff = %v, want 14s (2s+4s+8s)", total)
	}

	albums := &stubAlbumRepo{maxDisk: 7}
	songs := &stubSongRepo{}
	result := NewCommitter(albums, songs).Commit(context.Background(), 9, items)

	if len(result.Created) != 2 || len(result.Failed) != 0 || len(result.Skipped) != 0 {
		t.Fatalf("commit partitions wrong: %+v", result)
	}
	if result.Created[0].SongCount != 5 || result.Created[1].SongCount != 3 {
		t.Errorf("committed song counts = %d/%d, want 5/3",
			result.Created[0].SongCount, result.Created[1].SongCount)
	}
	if _, ok := session.Item(added[0].ID); !ok {
		t.Errorf("items should survive until the session closes")
	}
}
