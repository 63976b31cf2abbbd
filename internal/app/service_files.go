package app

import (
	"context"
	"io"
	"strings"

	"buildwise/api/internal/metrics"
	"buildwise/api/internal/storage"
)

type DeleteFileInput struct {
	FolderName string `json:"folderName"`
	FileName   string `json:"fileName" validate:"required"`
}

type DeleteFilesInput struct {
	FolderName string   `json:"folderName"`
	FileNames  []string `json:"fileNames" validate:"required,min=1,dive,required"`
}

// Upload spools r to a temp file and stores it under folder. The temp file is
// removed whether or not the upload succeeds.
func (s *Service) Upload(ctx context.Context, folder, fileName string, r io.Reader) (storage.Object, error) {
	if s.files == nil {
		return storage.Object{}, storage.ErrNotConfigured
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return storage.Object{}, invalid("Validation failed", []FieldError{{Field: "file", Tag: "required", Message: "is required"}})
	}
	localPath, cleanup, err := storage.Spool(r)
	defer cleanup()
	if err != nil {
		metrics.RecordUpload(false)
		return storage.Object{}, err
	}
	obj, err := s.files.UploadFile(ctx, folder, fileName, localPath, storage.DetectContentType(fileName))
	metrics.RecordUpload(err == nil)
	if err != nil {
		return storage.Object{}, upstreamError(err)
	}
	return obj, nil
}

func (s *Service) DeleteFile(ctx context.Context, input DeleteFileInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if s.files == nil {
		return storage.ErrNotConfigured
	}
	if err := s.files.Delete(ctx, storage.ObjectKey(input.FolderName, input.FileName)); err != nil {
		return upstreamError(err)
	}
	return nil
}

func (s *Service) DeleteFiles(ctx context.Context, input DeleteFilesInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if s.files == nil {
		return storage.ErrNotConfigured
	}
	keys := make([]string, 0, len(input.FileNames))
	for _, name := range input.FileNames {
		keys = append(keys, storage.ObjectKey(input.FolderName, name))
	}
	if err := s.files.DeleteMany(ctx, keys); err != nil {
		return upstreamError(err)
	}
	return nil
}
