package extraction

// Song 是识别出的一条曲目。TrackNumber和Title必填；Duration和
// Artist只在服务能从照片上读到时才有。
type Song struct {
	TrackNumber int    `json:"track_number"`
	Title       string `json:"title"`
	Duration    string `json:"duration,omitempty"`
	Artist      string `json:"artist,omitempty"`
}

// AlbumMeta 是元数据模式下推断出的专辑级信息
type AlbumMeta struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

// Result 是解码后的识别响应。旧的只含歌曲的格式下Album为nil。
type Result struct {
	Songs []Song
	Album *AlbumMeta
}

// Empty 报告扫描成功但没有识别出歌曲。调用方应把它和硬失败
// 区分开展示。
func (r *Result) Empty() bool {
	return len(r.Songs) == 0
}
