package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deepdive-club/deepdive-api/internal/common"
	"github.com/deepdive-club/deepdive-api/internal/logging"
	"github.com/deepdive-club/deepdive-api/internal/server/models"
	"github.com/deepdive-club/deepdive-api/internal/server/services"
)

// DocumentStore is the slice of DocumentService the handlers need.
type DocumentStore interface {
	RegisterUpload(ctx context.Context, userID string, documentName string, docType models.DocumentType) (*services.DocumentUpload, error)
	GetDownloadURL(ctx context.Context, documentID string, userID string) (string, error)
	List(ctx context.Context, userID string) ([]*models.RegisterDocument, error)
}

type DocumentHandler struct {
	docs   DocumentStore
	logger logging.Logger
}

func NewDocumentHandler(docs DocumentStore, logger logging.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, logger: logger.With("module", "http")}
}

var documentTypeNames = map[string]models.DocumentType{
	"IDPassport":  models.DocumentIDPassport,
	"Certificate": models.DocumentCertificate,
}

type createDocumentRequest struct {
	DocumentName string `json:"documentName"`
	DocumentType string `json:"documentType"`
}

type documentResponse struct {
	ID           string    `json:"id"`
	DocumentName string    `json:"documentName"`
	DocumentType string    `json:"documentType"`
	CreatedOn    time.Time `json:"createdOn"`
}

type createDocumentResponse struct {
	documentResponse
	UploadURL string `json:"uploadUrl"`
}

func docTypeName(t models.DocumentType) string {
	for name, v := range documentTypeNames {
		if v == t {
			return name
		}
	}
	return ""
}

func toDocumentResponse(d *models.RegisterDocument) documentResponse {
	return documentResponse{
		ID:           d.ID,
		DocumentName: d.DocumentName,
		DocumentType: docTypeName(d.DocumentType),
		CreatedOn:    d.CreatedOn,
	}
}

func (h *DocumentHandler) Create(c echo.Context) error {
	req := new(createDocumentRequest)
	if err := c.Bind(req); err != nil || req.DocumentName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "documentName is required"})
	}
	docType, ok := documentTypeNames[req.DocumentType]
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "unknown documentType"})
	}

	up, err := h.docs.RegisterUpload(c.Request().Context(), userIDFromCtx(c), req.DocumentName, docType)
	if err != nil {
		return h.internalError(c, err)
	}

	return c.JSON(http.StatusOK, createDocumentResponse{
		documentResponse: toDocumentResponse(up.Document),
		UploadURL:        up.UploadURL,
	})
}

func (h *DocumentHandler) List(c echo.Context) error {
	docs, err := h.docs.List(c.Request().Context(), userIDFromCtx(c))
	if err != nil {
		return h.internalError(c, err)
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DocumentHandler) DownloadURL(c echo.Context) error {
	url, err := h.docs.GetDownloadURL(c.Request().Context(), c.Param("id"), userIDFromCtx(c))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"errorMessage": "Document not found."})
		}
		return h.internalError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

func (h *DocumentHandler) internalError(c echo.Context, err error) error {
	h.logger.Error(c.Request().Context(), "request failed",
		"path", c.Path(), "error", err.Error())
	return c.JSON(http.StatusInternalServerError, map[string]string{"errorMessage": msgInternalError})
}
