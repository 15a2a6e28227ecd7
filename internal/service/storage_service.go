package service

import (
	"context"
	"fmt"
	"io"
	"lms_backend/internal/config"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// BlobStore 对象存储。调用方只保存返回的 URL
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// LocalStore 写入本地目录，由 /uploads 静态路由提供访问
type LocalStore struct {
	Root string
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", err
	}
	return "/uploads/" + key, nil
}

func (s *LocalStore) Remove(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

type MinioStore struct {
	Bucket string
	Client *minio.Client
}

func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.Client.PutObject(ctx, s.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/%s/%s", s.Bucket, key), nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	return s.Client.RemoveObject(ctx, s.Bucket, key, minio.RemoveObjectOptions{})
}

type OSSStore struct {
	Endpoint string
	Bucket   *oss.Bucket
}

func NewOSSStore(cfg config.StorageConfig) (*OSSStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStore{Endpoint: cfg.OSSEndpoint, Bucket: bucket}, nil
}

func (s *OSSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := s.Bucket.PutObject(key, r, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.%s/%s", s.Bucket.BucketName, s.Endpoint, key), nil
}

func (s *OSSStore) Remove(ctx context.Context, key string) error {
	return s.Bucket.DeleteObject(key)
}

// StoredFile 一次上传的结果
type StoredFile struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// StorageService 上传校验与落盘
type StorageService struct {
	Store BlobStore
}

// NewStorageService 远端存储初始化失败时退回本地目录
func NewStorageService(cfg config.StorageConfig) *StorageService {
	var (
		store BlobStore
		err   error
	)
	switch cfg.Type {
	case util.StorageMinio:
		store, err = NewMinioStore(cfg)
	case util.StorageOSS:
		store, err = NewOSSStore(cfg)
	}
	if err != nil {
		logger.Log.Warn("remote storage unavailable, using local disk", zap.String("type", cfg.Type), zap.Error(err))
		store = nil
	}
	if store == nil {
		root := cfg.LocalPath
		if root == "" {
			root = "./uploads"
		}
		store = &LocalStore{Root: root}
	}
	return &StorageService{Store: store}
}

// Save 校验大小与类型后写入 folder
func (s *StorageService) Save(ctx context.Context, folder string, fh *multipart.FileHeader, maxSize int64, allowed []string) (*StoredFile, error) {
	if fh.Size > maxSize {
		return nil, util.Validationf("file exceeds %d MB", maxSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contentType, err := util.SniffMimeType(f, allowed)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := util.ObjectKey(folder, fh.Filename)
	url, err := s.Store.Put(ctx, key, f, fh.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	return &StoredFile{URL: url, Key: key, Size: fh.Size, ContentType: contentType}, nil
}

func (s *StorageService) Remove(ctx context.Context, key string) error {
	return s.Store.Remove(ctx, key)
}
