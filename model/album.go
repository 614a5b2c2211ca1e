package model

import (
	"database/sql"
	"time"
)

// Album 表示点唱机目录中的一张专辑
// DiskNumber 是点唱机的物理碟位，同一酒吧内必须唯一
type Album struct {
	ID         int64          `json:"id" gorm:"primaryKey"`
	BarID      int64          `json:"barId" gorm:"index;not null"`
	Title      string         `json:"title" gorm:"size:255;not null"`
	Artist     sql.NullString `json:"artist" gorm:"size:255"`
	DiskNumber int            `json:"diskNumber" gorm:"not null"`
	CoverURL   sql.NullString `json:"coverUrl" gorm:"size:512"`
	Genre      sql.NullString `json:"genre" gorm:"size:128"`
	Year       sql.NullInt64  `json:"year"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// AlbumWithSongs 包含专辑信息和其包含的歌曲
type AlbumWithSongs struct {
	Album Album   `json:"album"`
	Songs []*Song `json:"songs"`
}
