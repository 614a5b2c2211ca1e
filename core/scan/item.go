package scan

import (
	"github.com/masambo/jukebox-joy-scan/core/extraction"
)

// Status 表示队列中条目的扫描生命周期状态
type Status string

const (
	StatusPending  Status = "pending"
	StatusScanning Status = "scanning"
	StatusScanned  Status = "scanned"
	StatusFailed   Status = "failed"
)

// EditableFields 是经理随时可编辑的专辑字段，与扫描进度无关。
// 入队时由文件名和队列位置给出默认值。
type EditableFields struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DiskNumber int    `json:"diskNumber"`
	Genre      string `json:"genre"`
	Year       int    `json:"year"`
}

// FieldsPatch 是对EditableFields的部分更新。nil字段保持不变，
// 这样用户编辑和并发的扫描完成互不覆盖。
type FieldsPatch struct {
	Title      *string `json:"title"`
	Artist     *string `json:"artist"`
	DiskNumber *int    `json:"diskNumber"`
	Genre      *string `json:"genre"`
	Year       *int    `json:"year"`
}

// Item 表示队列中的一张照片及其派生出的全部信息
type Item struct {
	ID       string            `json:"id"`
	FileName string            `json:"fileName"`
	Fields   EditableFields    `json:"fields"`
	Status   Status            `json:"status"`
	Songs    []extraction.Song `json:"songs"`
	// LastError 是展示给界面的最终失败原因；仅在失败状态下非空
	LastError string `json:"error,omitempty"`

	// Image 是临时文件句柄，不进入JSON
	Image *ImageRef `json:"-"`

	// defaults 记录字段的初始默认值，识别出的专辑信息只填充
	// 用户未改动过的字段
	defaults EditableFields
}

// Committable 判断条目是否带有可入库的歌曲
func (it *Item) Committable() bool {
	return len(it.Songs) > 0
}
