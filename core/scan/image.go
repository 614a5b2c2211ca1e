package scan

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ImageRef 是一张上传照片字节的不透明句柄。字节在入队时一次性写进
// 临时文件，调度器认领条目时再编码传输。Release幂等：无论条目以何种
// 方式离开存储，临时文件恰好删除一次。
type ImageRef struct {
	path        string
	contentType string
	releaseOnce sync.Once
}

// NewImageRef 把图片字节写入dir下的临时文件
func NewImageRef(dir, pattern, contentType string, data []byte) (*ImageRef, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to close scratch file: %w", err)
	}

	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &ImageRef{path: f.Name(), contentType: contentType}, nil
}

// DataURI 读取已保存的字节并编码为base64数据URI，供传输给识别服务
func (r *ImageRef) DataURI() (string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return "", fmt.Errorf("failed to read image bytes: %w", err)
	}
	return "data:" + r.contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Release 删除底层临时文件，可以安全地多次调用
func (r *ImageRef) Release() {
	r.releaseOnce.Do(func() {
		os.Remove(r.path)
	})
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
