package model

import (
	"database/sql"
	"time"
)

// Song 表示专辑中的一首歌曲
type Song struct {
	ID          int64          `json:"id" gorm:"primaryKey"`
	AlbumID     int64          `json:"albumId" gorm:"index;not null"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	TrackNumber int            `json:"trackNumber" gorm:"not null"`
	Duration    sql.NullString `json:"duration" gorm:"size:16"` // 封套上印的"3:45"样式
	Artist      sql.NullString `json:"artist" gorm:"size:255"`
	CreatedAt   time.Time      `json:"createdAt"`
}
