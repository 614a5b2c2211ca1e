package scan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/masambo/jukebox-joy-scan/core/extraction"
	"github.com/masambo/jukebox-joy-scan/model"
)

// stubAlbumRepo 提交测试用的内存专辑仓库
type stubAlbumRepo struct {
	nextID  int64
	created []*model.Album
	failFor map[string]error // 按专辑标题索引
	maxDisk int
}

func (r *stubAlbumRepo) CreateAlbum(ctx context.Context, album *model.Album) (int64, error) {
	if err, ok := r.failFor[album.Title]; ok {
		return 0, err
	}
	r.nextID++
	album.ID = r.nextID
	r.created = append(r.created, album)
	return r.nextID, nil
}

func (r *stubAlbumRepo) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	return nil, errors.New("not implemented")
}

func (r *stubAlbumRepo) GetAlbumsByBarID(ctx context.Context, barID int64) ([]*model.Album, error) {
	return r.created, nil
}

func (r *stubAlbumRepo) MaxDiskNumber(ctx context.Context, barID int64) (int, error) {
	return r.maxDisk, nil
}

func (r *stubAlbumRepo) UpdateAlbum(ctx context.Context, album *model.Album) error { return nil }

func (r *stubAlbumRepo) SetCoverURL(ctx context.Context, id int64, coverURL string) error {
	return nil
}

func (r *stubAlbumRepo) DeleteAlbum(ctx context.Context, id int64) error { return nil }

// stubSongRepo 提交测试用的内存歌曲仓库
type stubSongRepo struct {
	inserted map[int64][]*model.Song
	failFor  map[int64]error // 按专辑ID索引
}

func (r *stubSongRepo) CreateSongs(ctx context.Context, albumID int64, songs []*model.Song) error {
	if err, ok := r.failFor[albumID]; ok {
		return err
	}
	if r.inserted == nil {
		r.inserted = make(map[int64][]*model.Song)
	}
	r.inserted[albumID] = songs
	return nil
}

func (r *stubSongRepo) GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error) {
	return r.inserted[albumID], nil
}

func (r *stubSongRepo) DeleteSongsByAlbumID(ctx context.Context, albumID int64) error { return nil }

func (r *stubSongRepo) GetSongsByBarID(ctx context.Context, barID int64) ([]*model.SongWithAlbum, error) {
	return nil, errors.New("not implemented")
}

func scannedItem(id, title string, songs ...extraction.Song) Item {
	return Item{
		ID:       id,
		FileName: id + ".jpg",
		Fields:   EditableFields{Title: title, DiskNumber: 1, Year: 2026},
		Status:   StatusScanned,
		Songs:    songs,
	}
}

func TestCommitPartitionsItems(t *testing.T) {
	albums := &stubAlbumRepo{}
	songs := &stubSongRepo{}
	committer := NewCommitter(albums, songs)

	items := []Item{
		scannedItem("ok", "Good Album", extraction.Song{TrackNumber: 1, Title: "Track"}),
		{ID: "empty", Status: StatusScanned},      // 已扫描但没有歌曲
		{ID: "failed-scan", Status: StatusFailed}, // 从未扫描成功
		scannedItem("also-ok", "Other Album", extraction.Song{TrackNumber: 1, Title: "A"}, extraction.Song{TrackNumber: 2, Title: "B"}),
	}

	result := committer.Commit(context.Background(), 7, items)

	if got := len(result.Created) + len(result.Failed) + len(result.Skipped); got != len(items) {
		t.Fatalf("partitions cover %d items, want %d", got, len(items))
	}
	if len(result.Created) != 2 {
		t.Errorf("created = %d, want 2", len(result.Created))
	}
	if len(result.Skipped) != 2 {
		t.Errorf("skipped = %d, want 2", len(result.Skipped))
	}
	if len(result.Failed) != 0 {
		t.Errorf("failed = %d, want 0", len(result.Failed))
	}

	if result.Created[1].SongCount != 2 {
		t.Errorf("second album song count = %d, want 2", result.Created[1].SongCount)
	}
	for _, album := range albums.created {
		if album.BarID != 7 {
			t.Errorf("album created for bar %d, want 7", album.BarID)
		}
	}
}

func TestCommitIsolatesItemFailures(t *testing.T) {
	albums := &stubAlbumRepo{
		failFor: map[string]error{"Broken": errors.New("duplicate disk number")},
	}
	songs := &stubSongRepo{}
	committer := NewCommitter(albums, songs)

	items := []Item{
		scannedItem("a", "Broken", extraction.Song{TrackNumber: 1, Title: "X"}),
		scannedItem("b", "Fine", extraction.Song{TrackNumber: 1, Title: "Y"}),
	}

	result := committer.Commit(context.Background(), 1, items)

	if len(result.Failed) != 1 || result.Failed[0].ItemID != "a" {
		t.Fatalf("expected item a to fail: %+v", result.Failed)
	}
	if !strings.Contains(result.Failed[0].Reason, "duplicate disk number") {
		t.Errorf("failure reason lost: %q", result.Failed[0].Reason)
	}
	if len(result.Created) != 1 || result.Created[0].ItemID != "b" {
		t.Errorf("one item's failure blocked the rest: %+v", result.Created)
	}
}

func TestCommitSongInsertFailureLeavesWarning(t *testing.T) {
	albums := &stubAlbumRepo{}
	songs := &stubSongRepo{failFor: map[int64]error{1: errors.New("connection lost")}}
	committer := NewCommitter(albums, songs)

	items := []Item{scannedItem("a", "Orphaned", extraction.Song{TrackNumber: 1, Title: "X"})}
	result := committer.Commit(context.Background(), 1, items)

	if len(result.Created) != 1 {
		t.Fatalf("album insert succeeded, item must count as created: %+v", result)
	}
	created := result.Created[0]
	if created.Warning == "" || created.SongCount != 0 {
		t.Errorf("song failure not surfaced as warning: %+v", created)
	}
	// 专辑行保留；调用方看到的是警告而不是回滚
	if len(albums.created) != 1 {
		t.Errorf("album row disappeared")
	}
}

func TestCommitSongArtistFallback(t *testing.T) {
	albums := &stubAlbumRepo{}
	songs := &stubSongRepo{}
	committer := NewCommitter(albums, songs)

	item := scannedItem("a", "Album",
		extraction.Song{TrackNumber: 1, Title: "Own Artist", Artist: "Featured"},
		extraction.Song{TrackNumber: 2, Title: "No Artist"},
	)
	item.Fields.Artist = "Album Artist"

	committer.Commit(context.Background(), 1, []Item{item})

	inserted := songs.inserted[1]
	if len(inserted) != 2 {
		t.Fatalf("expected 2 songs inserted, got %d", len(inserted))
	}
	if inserted[0].Artist.String != "Featured" {
		t.Errorf("song's own artist overwritten: %q", inserted[0].Artist.String)
	}
	if inserted[1].Artist.String != "Album Artist" || !inserted[1].Artist.Valid {
		t.Errorf("album artist fallback missing: %+v", inserted[1].Artist)
	}
}

func TestCommitFieldConversion(t *testing.T) {
	albums := &stubAlbumRepo{}
	songs := &stubSongRepo{}
	committer := NewCommitter(albums, songs)

	item := scannedItem("a", "Album", extraction.Song{TrackNumber: 1, Title: "T", Duration: "3:45"})
	item.Fields.Genre = "Jazz"
	item.Fields.Year = 1959
	item.Fields.DiskNumber = 12

	committer.Commit(context.Background(), 3, []Item{item})

	album := albums.created[0]
	if album.DiskNumber != 12 {
		t.Errorf("disk number = %d, want 12", album.DiskNumber)
	}
	if !album.Genre.Valid || album.Genre.String != "Jazz" {
		t.Errorf("genre not persisted: %+v", album.Genre)
	}
	if !album.Year.Valid || album.Year.Int64 != 1959 {
		t.Errorf("year not persisted: %+v", album.Year)
	}
	if song := songs.inserted[1][0]; !song.Duration.Valid || song.Duration.String != "3:45" {
		t.Errorf("duration not persisted: %+v", song.Duration)
	}
}
