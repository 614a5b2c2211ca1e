package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/masambo/jukebox-joy-scan/model"
)

// PlaylistRepository 定义歌单相关的数据库操作接口
type PlaylistRepository interface {
	// CreatePlaylist 创建新歌单
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error)

	// GetPlaylistByID 根据ID获取歌单；不存在时返回 nil
	GetPlaylistByID(ctx context.Context, id int64) (*model.Playlist, error)

	// GetPlaylistsByBarID 获取酒吧的全部歌单及歌曲数量，按创建时间倒序
	GetPlaylistsByBarID(ctx context.Context, barID int64) ([]*model.PlaylistWithCount, error)

	// RenamePlaylist 重命名歌单
	RenamePlaylist(ctx context.Context, id int64, name string) error

	// DeletePlaylist 删除歌单及其全部条目
	DeletePlaylist(ctx context.Context, id int64) error

	// AddSongs 把歌曲追加到歌单尾部，已在歌单中的歌曲跳过。
	// 返回实际追加的数量。
	AddSongs(ctx context.Context, playlistID int64, songIDs []int64) (int, error)

	// RemoveSong 从歌单中移除一首歌
	RemoveSong(ctx context.Context, playlistID, songID int64) error

	// GetPlaylistEntries 获取歌单条目及歌曲、专辑信息，按position排序
	GetPlaylistEntries(ctx context.Context, playlistID int64) ([]*model.PlaylistEntry, error)
}

// MySQLPlaylistRepository MySQL实现的歌单仓库
type MySQLPlaylistRepository struct {
	db *sql.DB
}

// NewMySQLPlaylistRepository 创建新的MySQL歌单仓库实例
func NewMySQLPlaylistRepository(db *sql.DB) *MySQLPlaylistRepository {
	return &MySQLPlaylistRepository{db: db}
}

// CreatePlaylist 创建新歌单
func (r *MySQLPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error) {
	query := `
		INSERT INTO playlists (bar_id, name, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		playlist.BarID,
		playlist.Name,
		playlist.CreatedBy,
		now,
		now,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetPlaylistByID 根据ID获取歌单
func (r *MySQLPlaylistRepository) GetPlaylistByID(ctx context.Context, id int64) (*model.Playlist, error) {
	query := `
		SELECT id, bar_id, name, created_by, created_at, updated_at
		FROM playlists
		WHERE id = ?
	`

	playlist := &model.Playlist{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&playlist.ID,
		&playlist.BarID,
		&playlist.Name,
		&playlist.CreatedBy,
		&playlist.CreatedAt,
		&playlist.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return playlist, nil
}

// GetPlaylistsByBarID 获取酒吧的全部歌单及歌曲数量
func (r *MySQLPlaylistRepository) GetPlaylistsByBarID(ctx context.Context, barID int64) ([]*model.PlaylistWithCount, error) {
	query := `
		SELECT p.id, p.bar_id, p.name, p.created_by, p.created_at, p.updated_at, COUNT(ps.id)
		FROM playlists p
		LEFT JOIN playlist_songs ps ON ps.playlist_id = p.id
		WHERE p.bar_id = ?
		GROUP BY p.id
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, barID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []*model.PlaylistWithCount
	for rows.Next() {
		p := &model.PlaylistWithCount{}
		err := rows.Scan(
			&p.ID,
			&p.BarID,
			&p.Name,
			&p.CreatedBy,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.SongCount,
		)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	return playlists, rows.Err()
}

// RenamePlaylist 重命名歌单
func (r *MySQLPlaylistRepository) RenamePlaylist(ctx context.Context, id int64, name string) error {
	query := `UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, name, time.Now(), id)
	return err
}

// DeletePlaylist 删除歌单及其全部条目
func (r *MySQLPlaylistRepository) DeletePlaylist(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM playlist_songs WHERE playlist_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete playlist songs: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	return err
}

// AddSongs 把歌曲追加到歌单尾部，position从当前最大值继续递增
func (r *MySQLPlaylistRepository) AddSongs(ctx context.Context, playlistID int64, songIDs []int64) (int, error) {
	if len(songIDs) == 0 {
		return 0, nil
	}

	var maxPosition int
	query := `SELECT COALESCE(MAX(position), 0) FROM playlist_songs WHERE playlist_id = ?`
	if err := r.db.QueryRowContext(ctx, query, playlistID).Scan(&maxPosition); err != nil {
		return 0, err
	}

	var sb strings.Builder
	sb.WriteString(`INSERT IGNORE INTO playlist_songs (playlist_id, song_id, position, created_at) VALUES `)

	now := time.Now()
	args := make([]interface{}, 0, len(songIDs)*4)
	for i, songID := range songIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, playlistID, songID, maxPosition+1+i, now)
	}

	result, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to add songs to playlist %d: %w", playlistID, err)
	}

	added, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(added), nil
}

// RemoveSong 从歌单中移除一首歌
func (r *MySQLPlaylistRepository) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	query := `DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`
	_, err := r.db.ExecContext(ctx, query, playlistID, songID)
	return err
}

// GetPlaylistEntries 获取歌单条目及歌曲、专辑信息
func (r *MySQLPlaylistRepository) GetPlaylistEntries(ctx context.Context, playlistID int64) ([]*model.PlaylistEntry, error) {
	query := `
		SELECT ps.position,
			s.id, s.album_id, s.title, s.track_number, s.duration, s.artist, s.created_at,
			a.title, a.disk_number
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		JOIN albums a ON a.id = s.album_id
		WHERE ps.playlist_id = ?
		ORDER BY ps.position
	`

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.PlaylistEntry
	for rows.Next() {
		entry := &model.PlaylistEntry{}
		err := rows.Scan(
			&entry.Position,
			&entry.Song.ID,
			&entry.Song.AlbumID,
			&entry.Song.Title,
			&entry.Song.TrackNumber,
			&entry.Song.Duration,
			&entry.Song.Artist,
			&entry.Song.CreatedAt,
			&entry.AlbumTitle,
			&entry.DiskNumber,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
