package extraction

import (
	"encoding/json"
	"strings"
)

// envelope 是元数据模式下响应对象的形状
type envelope struct {
	Album *AlbumMeta `json:"album"`
	Songs []Song     `json:"songs"`
}

// ParseResult 解码识别响应体。服务返回的结构化文本可能被散文或
// markdown代码块包裹，因此取第一段合法的JSON数组或对象。裸数组是
// 只含歌曲的旧格式；对象则带歌曲和可选的专辑元数据。
func ParseResult(content string) (*Result, error) {
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '[':
			var songs []Song
			if decodeFirstValue(content[i:], &songs) {
				return &Result{Songs: validSongs(songs)}, nil
			}
		case '{':
			var env envelope
			if decodeFirstValue(content[i:], &env) && (env.Songs != nil || env.Album != nil) {
				return &Result{Songs: validSongs(env.Songs), Album: env.Album}, nil
			}
		}
	}

	return nil, &Error{Kind: KindMalformed, Message: "no decodable song data in response"}
}

// decodeFirstValue 从s开头恰好解码一个JSON值，忽略其后的文本
// （代码块结尾、散文）。
func decodeFirstValue(s string, into interface{}) bool {
	dec := json.NewDecoder(strings.NewReader(s))
	return dec.Decode(into) == nil
}

// validSongs 丢弃缺少必填字段的条目。服务偶尔会为无法辨认的行
// 输出占位条目。
func validSongs(songs []Song) []Song {
	out := make([]Song, 0, len(songs))
	for _, s := range songs {
		if s.TrackNumber >= 1 && strings.TrimSpace(s.Title) != "" {
			out = append(out, s)
		}
	}
	return out
}
