package util

import (
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SniffMimeType 读取文件头部 512 字节判断真实类型，allowed 为前缀或完整类型
func SniffMimeType(r io.Reader, allowed []string) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	mimeType := http.DetectContentType(head[:n])
	for _, a := range allowed {
		if strings.HasPrefix(mimeType, a) {
			return mimeType, nil
		}
	}
	return mimeType, Validationf("file type %s is not allowed", mimeType)
}

// HasVideoExtension 浏览器常把视频识别成 octet-stream，按扩展名兜底
func HasVideoExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range AllowedVideoExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ObjectKey 生成 folder/yyyy/mm/uuid.ext 形式的对象键
func ObjectKey(folder, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return path.Join(folder, time.Now().Format("2006/01"), uuid.NewString()+ext)
}
