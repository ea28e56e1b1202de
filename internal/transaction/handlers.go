package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hbgo/capture/internal/scanning"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleCaptureReceipt accepts a multipart receipt upload, runs extraction,
// and returns the stored transaction.
func (s *Server) handleCaptureReceipt(w http.ResponseWriter, r *http.Request) {
	// 50MB covers high-resolution phone photos.
	maxFormSize := int64(50 << 20)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			msg = "File is too large. Maximum size is 50MB."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		jsonError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromExt(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	notes := r.FormValue("notes")

	progress := func(p scanning.Progress) {
		slog.Debug("Extraction progress", "status", p.Status, "fraction", p.Fraction)
	}

	txn, err := s.service.CaptureReceipt(r.Context(), data, contentType, notes, progress)
	if err != nil {
		slog.Error("Error capturing receipt", "filename", header.Filename, "error", err)
		jsonError(w, captureErrorMessage(err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(txn); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// captureErrorMessage maps pipeline failures to the short statuses the UI
// distinguishes.
func captureErrorMessage(err error) string {
	switch {
	case errors.Is(err, scanning.ErrNoEngine):
		return "No scan engine configured; enter the transaction manually."
	case errors.Is(err, scanning.ErrEmptyResult):
		return "No text found in the document."
	default:
		return fmt.Sprintf("Scan failed, enter manually: %v", err)
	}
}

// handleListTransactions returns all pending transactions
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.service.ListTransactions()
	if err != nil {
		slog.Error("Error listing transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(txns); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetTransaction returns a single transaction
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Transaction ID required", http.StatusBadRequest)
		return
	}
	txn, err := s.service.GetTransaction(id)
	if err != nil {
		corsError(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(txn); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUpdateTransaction applies edits from the transaction-editing surface
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Transaction ID required", http.StatusBadRequest)
		return
	}

	var txn Transaction
	if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	txn.ID = id

	updated, err := s.service.UpdateTransaction(&txn)
	if err != nil {
		slog.Error("Error updating transaction", "id", id, "error", err)
		corsError(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleDeleteTransaction deletes a transaction
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Transaction ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteTransaction(id); err != nil {
		corsError(w, "Error deleting transaction", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExportCSV returns the pending transactions as a HomeBank CSV file.
// With ?clear=true the exported transactions are removed.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	clear := r.URL.Query().Get("clear") == "true"

	csvData, err := s.service.ExportCSV(clear)
	if err != nil {
		slog.Error("Error exporting transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="hb-capture-export.csv"`)
	w.Write([]byte(csvData))
}

// handleImportCache imports known entities from an uploaded HomeBank XHB file
func (s *Server) handleImportCache(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	cache, err := s.service.ImportEntities(data)
	if err != nil {
		slog.Error("Error importing entities", "error", err)
		jsonError(w, "Not a valid HomeBank file", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(cache); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetCache returns the imported entity lists
func (s *Server) handleGetCache(w http.ResponseWriter, r *http.Request) {
	cache, err := s.service.Cache()
	if err != nil {
		slog.Error("Error reading entity cache", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cache); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetSettings returns the stored settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.Settings()
	if err != nil {
		slog.Error("Error reading settings", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(settings); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUpdateSettings stores new settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.UpdateSettings(settings); err != nil {
		slog.Error("Error saving settings", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(settings); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// contentTypeFromExt guesses a MIME type from the upload's file extension
func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
