package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security/validation"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/services"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
)

type UploadHandler struct {
	importService  services.ImportService
	maxUploadBytes int64
}

func NewUploadHandler(importService services.ImportService, maxUploadBytes int64) *UploadHandler {
	return &UploadHandler{importService: importService, maxUploadBytes: maxUploadBytes}
}

// HandleImportTrips backfills invoices from a CSV trip export sent as the
// multipart field "file".
func (h *UploadHandler) HandleImportTrips(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	maxMB := h.maxUploadBytes / (1024 * 1024)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1024)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		log.Warn("Failed to parse multipart form or request too large", "error", err, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", maxMB), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadBytes {
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", maxMB), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := validation.ValidateFileContent(file); err != nil {
		if errors.Is(err, validation.ErrUnsupportedFile) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		} else {
			sendServiceError(w, r, err)
		}
		return
	}

	log.Info("Processing trip import", "filename", fileHeader.Filename, "size", fileHeader.Size)
	res, err := h.importService.ImportTrips(r.Context(), file)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, res)
}
