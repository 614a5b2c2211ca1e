package scan

import (
	"context"
	"database/sql"

	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/model"
	"github.com/masambo/jukebox-joy-scan/repository"
)

// CreatedAlbum 记录一个成功落库为专辑的条目
type CreatedAlbum struct {
	ItemID    string `json:"itemId"`
	AlbumID   int64  `json:"albumId"`
	SongCount int    `json:"songCount"`
	// Warning 在专辑行已写入但歌曲写入失败时设置，此时专辑没有
	// 歌曲。只上报，不回滚。
	Warning string `json:"warning,omitempty"`
}

// ItemFailure 记录一个专辑创建失败的条目
type ItemFailure struct {
	ItemID string `json:"itemId"`
	Reason string `json:"reason"`
}

// CommitResult 汇总一次批量提交。Created、Failed和Skipped
// 恰好划分全部输入条目。
type CommitResult struct {
	Created []CreatedAlbum `json:"created"`
	Failed  []ItemFailure  `json:"failed"`
	Skipped []string       `json:"skipped"`
}

// Committer 把扫描完的条目落库为专辑和歌曲记录
type Committer struct {
	albums repository.AlbumRepository
	songs  repository.SongRepository
}

// NewCommitter 基于专辑和歌曲仓库创建提交器
func NewCommitter(albums repository.AlbumRepository, songs repository.SongRepository) *Committer {
	return &Committer{albums: albums, songs: songs}
}

// Commit 把每个带有识别歌曲的条目落库：先写专辑行，再写引用新专辑
// ID的歌曲。没有歌曲的条目直接跳过。单个条目失败不影响其余条目；
// 批次在条目之间不具备原子性，专辑写入成功后歌曲写入失败只在该
// 条目上记为警告，不回滚。
func (c *Committer) Commit(ctx context.Context, barID int64, items []Item) *CommitResult {
	result := &CommitResult{
		Created: make([]CreatedAlbum, 0, len(items)),
		Failed:  make([]ItemFailure, 0),
		Skipped: make([]string, 0),
	}

	for _, item := range items {
		if !item.Committable() {
			result.Skipped = append(result.Skipped, item.ID)
			continue
		}

		albumID, err := c.albums.CreateAlbum(ctx, albumFromItem(barID, &item))
		if err != nil {
			logger.Error("Failed to create album for scanned item",
				logger.String("itemId", item.ID),
				logger.String("title", item.Fields.Title),
				logger.ErrorField(err))
			result.Failed = append(result.Failed, ItemFailure{ItemID: item.ID, Reason: err.Error()})
			continue
		}

		created := CreatedAlbum{ItemID: item.ID, AlbumID: albumID, SongCount: len(item.Songs)}

		if err := c.songs.CreateSongs(ctx, albumID, songsFromItem(albumID, &item)); err != nil {
			// 已知缺口：专辑行留在库里但没有歌曲
			logger.Error("Album created but song insert failed",
				logger.String("itemId", item.ID),
				logger.Int64("albumId", albumID),
				logger.ErrorField(err))
			created.SongCount = 0
			created.Warning = "album created but songs could not be added: " + err.Error()
		}

		result.Created = append(result.Created, created)
	}

	logger.Info("Batch commit finished",
		logger.Int64("barId", barID),
		logger.Int("created", len(result.Created)),
		logger.Int("failed", len(result.Failed)),
		logger.Int("skipped", len(result.Skipped)))

	return result
}

func albumFromItem(barID int64, item *Item) *model.Album {
	album := &model.Album{
		BarID:      barID,
		Title:      item.Fields.Title,
		DiskNumber: item.Fields.DiskNumber,
	}
	if item.Fields.Artist != "" {
		album.Artist = sql.NullString{String: item.Fields.Artist, Valid: true}
	}
	if item.Fields.Genre != "" {
		album.Genre = sql.NullString{String: item.Fields.Genre, Valid: true}
	}
	if item.Fields.Year != 0 {
		album.Year = sql.NullInt64{Int64: int64(item.Fields.Year), Valid: true}
	}
	return album
}

func songsFromItem(albumID int64, item *Item) []*model.Song {
	songs := make([]*model.Song, 0, len(item.Songs))
	for _, s := range item.Songs {
		song := &model.Song{
			AlbumID:     albumID,
			Title:       s.Title,
			TrackNumber: s.TrackNumber,
		}
		if s.Duration != "" {
			song.Duration = sql.NullString{String: s.Duration, Valid: true}
		}
		// 没有单独艺人的歌曲继承专辑艺人
		artist := s.Artist
		if artist == "" {
			artist = item.Fields.Artist
		}
		if artist != "" {
			song.Artist = sql.NullString{String: artist, Valid: true}
		}
		songs = append(songs, song)
	}
	return songs
}
