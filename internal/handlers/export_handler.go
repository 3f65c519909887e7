package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "quid/internal/errors"
	"quid/internal/services"
	"quid/internal/snapshot"
)

// maxImportSize bounds uploaded snapshot documents (16 MiB).
const maxImportSize = 16 << 20

// ExportHandler handles export, import, and backup requests.
type ExportHandler struct {
	exportService services.ExportServicer
	auditService  services.AuditServicer
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService services.ExportServicer, auditService services.AuditServicer) *ExportHandler {
	return &ExportHandler{exportService: exportService, auditService: auditService}
}

// ExportJSON handles exporting the user's full state as a JSON snapshot.
// @Summary     Export state as JSON
// @Description Download the user's full state as a versioned JSON snapshot
// @Tags        export
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} snapshot.Bundle "Snapshot"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	b, err := h.exportService.ExportBundle(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="quid-export.json"`)
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	if err := snapshot.Encode(c.Writer, b); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}
}

// ExportCSV handles exporting the user's transactions as CSV.
// @Summary     Export transactions as CSV
// @Description Download every transaction as a CSV file with resolved names
// @Tags        export
// @Accept      json
// @Produce     text/csv
// @Security    BearerAuth
// @Success     200 {string} string "CSV file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	out, err := h.exportService.ExportCSV(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="quid-transactions.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}

// ImportJSON handles replacing the user's state from a JSON snapshot.
// @Summary     Import state from JSON
// @Description Replace the user's state wholesale from a versioned JSON snapshot
// @Tags        export
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Import result"
// @Failure     400 {object} ErrorResponse "Malformed or unsupported snapshot"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /import/json [post]
func (h *ExportHandler) ImportJSON(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}

	b, err := services.DecodeBundle(data)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.exportService.ImportBundle(userID, b); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "IMPORT_SNAPSHOT", "snapshot", "", c.ClientIP(),
		map[string]interface{}{
			"accounts":     len(b.Accounts),
			"transactions": len(b.Transactions),
		})

	c.JSON(http.StatusOK, gin.H{"status": "imported"})
}

// Backup handles writing the user's state to the server-side snapshot dir.
// @Summary     Back up state to disk
// @Description Write the user's collections as JSON files under the configured snapshot directory
// @Tags        export
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Backup location"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /export/backup [post]
func (h *ExportHandler) Backup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	dir, err := h.exportService.BackupToDisk(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "BACKUP_SNAPSHOT", "snapshot", "", c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"status": "saved", "dir": dir})
}
