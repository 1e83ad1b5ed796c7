package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/receipt-uploader/internal/render"
	"github.com/zombor/receipt-uploader/internal/upload"
)

// maxFormSize covers high-resolution phone photos
const maxFormSize = int64(50 << 20) // 50MB

// jsonError writes an error response as JSON
func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// handleIndex serves the upload page for the current state
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	state := s.controller.State()

	page := render.Page{
		Uploading: state.Phase == upload.PhaseUploading,
	}
	switch state.Phase {
	case upload.PhaseError:
		page.Error = state.Err
	case upload.PhaseSuccess:
		if state.Receipt != nil {
			view := render.Build(state.Receipt, state.Discrepancies)
			page.Receipt = &view
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WriteHTML(w, page); err != nil {
		slog.Error("Error rendering page", "error", err)
	}
}

// handleState returns the controller state as JSON
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.controller.State()); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUpload forwards the selected file to the parsing service
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		// Selection dialog dismissed, nothing to do
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "Error reading form file", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	file := upload.NewFile(header.Filename, header.Header.Get("Content-Type"), data)
	if err := s.controller.Submit(r.Context(), file); errors.Is(err, upload.ErrUploadInProgress) {
		jsonError(w, "A receipt is already being processed. Please wait for it to finish.", http.StatusConflict)
		return
	}

	// The outcome is in the controller state, shown by the page
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
