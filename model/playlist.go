package model

import "time"

// Playlist 表示酒吧经理编排的歌单
type Playlist struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	BarID     int64     `json:"barId" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	CreatedBy int64     `json:"createdBy" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlaylistSong 歌单中的一个条目，position决定播放顺序
type PlaylistSong struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	PlaylistID int64     `json:"playlistId" gorm:"index;not null"`
	SongID     int64     `json:"songId" gorm:"not null"`
	Position   int       `json:"position" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PlaylistWithCount 歌单信息及其歌曲数量
type PlaylistWithCount struct {
	Playlist
	SongCount int `json:"songCount"`
}

// PlaylistEntry 歌单中的一首歌及其所在专辑信息
type PlaylistEntry struct {
	Position   int    `json:"position"`
	Song       Song   `json:"song"`
	AlbumTitle string `json:"albumTitle"`
	DiskNumber int    `json:"diskNumber"`
}

// SongWithAlbum 歌曲及其所在专辑信息，用于选歌列表
type SongWithAlbum struct {
	Song       Song   `json:"song"`
	AlbumTitle string `json:"albumTitle"`
	DiskNumber int    `json:"diskNumber"`
}
