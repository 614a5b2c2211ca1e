package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/masambo/jukebox-joy-scan/model"
)

// SongRepository 定义歌曲相关的数据库操作接口
type SongRepository interface {
	// CreateSongs 批量插入一张专辑的歌曲
	CreateSongs(ctx context.Context, albumID int64, songs []*model.Song) error

	// GetSongsByAlbumID 获取专辑中的所有歌曲，按曲目号排序
	GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error)

	// GetSongsByBarID 获取酒吧目录中的所有歌曲及其专辑信息，按歌名排序
	GetSongsByBarID(ctx context.Context, barID int64) ([]*model.SongWithAlbum, error)

	// DeleteSongsByAlbumID 删除专辑的所有歌曲
	DeleteSongsByAlbumID(ctx context.Context, albumID int64) error
}

// MySQLSongRepository MySQL实现的歌曲仓库
type MySQLSongRepository struct {
	db *sql.DB
}

// NewMySQLSongRepository 创建新的MySQL歌曲仓库实例
func NewMySQLSongRepository(db *sql.DB) *MySQLSongRepository {
	return &MySQLSongRepository{db: db}
}

// CreateSongs 批量插入一张专辑的歌曲
func (r *MySQLSongRepository) CreateSongs(ctx context.Context, albumID int64, songs []*model.Song) error {
	if len(songs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO songs (album_id, title, track_number, duration, artist, created_at) VALUES `)

	now := time.Now()
	args := make([]interface{}, 0, len(songs)*6)
	for i, song := range songs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, albumID, song.Title, song.TrackNumber, song.Duration, song.Artist, now)
	}

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert songs for album %d: %w", albumID, err)
	}
	return nil
}

// GetSongsByAlbumID 获取专辑中的所有歌曲，按曲目号排序
func (r *MySQLSongRepository) GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error) {
	query := `
		SELECT id, album_id, title, track_number, duration, artist, created_at
		FROM songs
		WHERE album_id = ?
		ORDER BY track_number
	`

	rows, err := r.db.QueryContext(ctx, query, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []*model.Song
	for rows.Next() {
		song := &model.Song{}
		err := rows.Scan(
			&song.ID,
			&song.AlbumID,
			&song.Title,
			&song.TrackNumber,
			&song.Duration,
			&song.Artist,
			&song.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	return songs, rows.Err()
}

// GetSongsByBarID 获取酒吧目录中的所有歌曲及其专辑信息，按歌名排序
func (r *MySQLSongRepository) GetSongsByBarID(ctx context.Context, barID int64) ([]*model.SongWithAlbum, error) {
	query := `
		SELECT s.id, s.album_id, s.title, s.track_number, s.duration, s.artist, s.created_at,
			a.title, a.disk_number
		FROM songs s
		JOIN albums a ON a.id = s.album_id
		WHERE a.bar_id = ?
		ORDER BY s.title
	`

	rows, err := r.db.QueryContext(ctx, query, barID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []*model.SongWithAlbum
	for rows.Next() {
		s := &model.SongWithAlbum{}
		err := rows.Scan(
			&s.Song.ID,
			&s.Song.AlbumID,
			&s.Song.Title,
			&s.Song.TrackNumber,
			&s.Song.Duration,
			&s.Song.Artist,
			&s.Song.CreatedAt,
			&s.AlbumTitle,
			&s.DiskNumber,
		)
		if err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}

	return songs, rows.Err()
}

// DeleteSongsByAlbumID 删除专辑的所有歌曲
func (r *MySQLSongRepository) DeleteSongsByAlbumID(ctx context.Context, albumID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE album_id = ?`, albumID)
	return err
}
