package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/masambo/jukebox-joy-scan/model"
)

// AlbumRepository 定义专辑相关的数据库操作接口
type AlbumRepository interface {
	// CreateAlbum 创建新专辑
	CreateAlbum(ctx context.Context, album *model.Album) (int64, error)

	// GetAlbumByID 根据ID获取专辑信息
	GetAlbumByID(ctx context.Context, id int64) (*model.Album, error)

	// GetAlbumsByBarID 获取酒吧的所有专辑，按碟号排序
	GetAlbumsByBarID(ctx context.Context, barID int64) ([]*model.Album, error)

	// MaxDiskNumber 获取酒吧目录中已使用的最大碟号；没有专辑时返回 0
	MaxDiskNumber(ctx context.Context, barID int64) (int, error)

	// UpdateAlbum 更新专辑信息
	UpdateAlbum(ctx context.Context, album *model.Album) error

	// SetCoverURL 设置专辑封面地址
	SetCoverURL(ctx context.Context, id int64, coverURL string) error

	// DeleteAlbum 删除专辑及其歌曲
	DeleteAlbum(ctx context.Context, id int64) error
}

// MySQLAlbumRepository MySQL实现的专辑仓库
type MySQLAlbumRepository struct {
	db *sql.DB
}

// NewMySQLAlbumRepository 创建新的MySQL专辑仓库实例
func NewMySQLAlbumRepository(db *sql.DB) *MySQLAlbumRepository {
	return &MySQLAlbumRepository{db: db}
}

// CreateAlbum 创建新专辑
func (r *MySQLAlbumRepository) CreateAlbum(ctx context.Context, album *model.Album) (int64, error) {
	query := `
		INSERT INTO albums (bar_id, title, artist, disk_number, cover_url, genre, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		album.BarID,
		album.Title,
		album.Artist,
		album.DiskNumber,
		album.CoverURL,
		album.Genre,
		album.Year,
		now,
		now,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetAlbumByID 根据ID获取专辑信息
func (r *MySQLAlbumRepository) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	query := `
		SELECT id, bar_id, title, artist, disk_number, cover_url, genre, year, created_at, updated_at
		FROM albums
		WHERE id = ?
	`

	album := &model.Album{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&album.ID,
		&album.BarID,
		&album.Title,
		&album.Artist,
		&album.DiskNumber,
		&album.CoverURL,
		&album.Genre,
		&album.Year,
		&album.CreatedAt,
		&album.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return album, nil
}

// GetAlbumsByBarID 获取酒吧的所有专辑，按碟号排序
func (r *MySQLAlbumRepository) GetAlbumsByBarID(ctx context.Context, barID int64) ([]*model.Album, error) {
	query := `
		SELECT id, bar_id, title, artist, disk_number, cover_url, genre, year, created_at, updated_at
		FROM albums
		WHERE bar_id = ?
		ORDER BY disk_number
	`

	rows, err := r.db.QueryContext(ctx, query, barID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*model.Album
	for rows.Next() {
		album := &model.Album{}
		err := rows.Scan(
			&album.ID,
			&album.BarID,
			&album.Title,
			&album.Artist,
			&album.DiskNumber,
			&album.CoverURL,
			&album.Genre,
			&album.Year,
			&album.CreatedAt,
			&album.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}

	return albums, rows.Err()
}

// MaxDiskNumber 获取酒吧目录中已使用的最大碟号
func (r *MySQLAlbumRepository) MaxDiskNumber(ctx context.Context, barID int64) (int, error) {
	query := `SELECT COALESCE(MAX(disk_number), 0) FROM albums WHERE bar_id = ?`

	var max int
	if err := r.db.QueryRowContext(ctx, query, barID).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// UpdateAlbum 更新专辑信息
func (r *MySQLAlbumRepository) UpdateAlbum(ctx context.Context, album *model.Album) error {
	query := `
		UPDATE albums
		SET title = ?, artist = ?, disk_number = ?, cover_url = ?, genre = ?, year = ?, updated_at = ?
		WHERE id = ? AND bar_id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		album.Title,
		album.Artist,
		album.DiskNumber,
		album.CoverURL,
		album.Genre,
		album.Year,
		time.Now(),
		album.ID,
		album.BarID,
	)
	return err
}

// SetCoverURL 设置专辑封面地址
func (r *MySQLAlbumRepository) SetCoverURL(ctx context.Context, id int64, coverURL string) error {
	query := `UPDATE albums SET cover_url = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, coverURL, time.Now(), id)
	return err
}

// DeleteAlbum 删除专辑及其歌曲
func (r *MySQLAlbumRepository) DeleteAlbum(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE album_id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	return err
}
