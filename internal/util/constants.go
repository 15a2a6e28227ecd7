package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
	MimeZip         = "application/zip"
)

const (
	MaxAvatarSize     = 5 << 20
	MaxAttachmentSize = 50 << 20
	MaxVideoSize      = 2 << 30
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}
	DocumentMimeTypes      = []string{MimePDF, MimeImage, MimeZip, "text/plain", MimeOctetStream}
)
