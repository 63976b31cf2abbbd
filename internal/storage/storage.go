// Package storage uploads and deletes files in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrNotConfigured = errors.New("object storage not configured")

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
	// PublicURL overrides the scheme://endpoint/bucket prefix of returned file URLs.
	PublicURL string
}

type Object struct {
	Key      string `json:"key"`
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
}

type Service struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// New connects lazily; no request is made until the first upload.
func New(cfg Config) (*Service, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &Service{client: client, bucket: cfg.Bucket, publicURL: public}, nil
}

// Upload streams r to folder/fileName.
func (s *Service) Upload(ctx context.Context, folder, fileName string, r io.Reader, size int64, contentType string) (Object, error) {
	key := ObjectKey(folder, fileName)
	if contentType == "" {
		contentType = DetectContentType(fileName)
	}
	opts := minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: ContentDisposition(contentType, fileName),
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts); err != nil {
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return Object{Key: key, FileName: fileName, FileURL: s.URL(key)}, nil
}

// UploadFile uploads a local file, typically a spooled multipart part.
func (s *Service) UploadFile(ctx context.Context, folder, fileName, localPath, contentType string) (Object, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Object{}, fmt.Errorf("open spooled file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("stat spooled file: %w", err)
	}
	return s.Upload(ctx, folder, fileName, f, info.Size(), contentType)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// DeleteMany removes keys in one batch request. The first per-object error is returned.
func (s *Service) DeleteMany(ctx context.Context, keys []string) error {
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	var firstErr error
	for result := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if result.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove object %s: %w", result.ObjectName, result.Err)
		}
	}
	return firstErr
}

func (s *Service) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.publicURL + "/" + strings.Join(segments, "/")
}

// ObjectKey joins folder and file name, dropping any directory parts of the name.
func ObjectKey(folder, fileName string) string {
	name := path.Base(filepath.ToSlash(strings.TrimSpace(fileName)))
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func DetectContentType(fileName string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(fileName))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ContentDisposition renders images and PDFs inline in the browser.
func ContentDisposition(contentType, fileName string) string {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "application/pdf") {
		return mime.FormatMediaType("inline", map[string]string{"filename": fileName})
	}
	return ""
}

// Spool copies r into a temp file. The returned cleanup always removes it.
func Spool(r io.Reader) (string, func(), error) {
	f, err := os.CreateTemp("", "buildwise-upload-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("spool upload: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}
