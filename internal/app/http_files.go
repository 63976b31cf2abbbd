package app

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"buildwise/api/internal/rbac"
)

const maxUploadBytes = 50 << 20

func (s *HTTPServer) fileRoutes(r chi.Router) {
	r.Use(s.withSession)
	r.Post("/upload", s.handleUpload)
	r.Post("/delete", s.handleDeleteFile)
	r.Delete("/delete", s.handleDeleteFile)
	r.Post("/delete-multiple", s.handleDeleteFiles)
	r.Delete("/delete-multiple", s.handleDeleteFiles)
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the upload limit", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Expected multipart form data", nil)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", []FieldError{{Field: "file", Tag: "required", Message: "is required"}})
		return
	}
	defer file.Close()

	obj, err := s.service.Upload(r.Context(), r.FormValue("folderName"), header.Filename, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "File uploaded successfully",
		"data": map[string]any{
			"fileUrl":  obj.FileURL,
			"fileName": obj.FileName,
			"key":      obj.Key,
		},
	})
}

func (s *HTTPServer) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	var body DeleteFileInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	if err := s.service.DeleteFile(r.Context(), body); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "File deleted successfully"})
}

func (s *HTTPServer) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionContribute); !ok {
		return
	}
	var body DeleteFilesInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	if err := s.service.DeleteFiles(r.Context(), body); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Files deleted successfully"})
}
