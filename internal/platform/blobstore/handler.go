package blobstore

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Handler exposes upload and download of opaque record payloads. Payloads are
// expected to be encrypted client-side; the registry never inspects them.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/blobs", h.handleUpload)
	g.GET("/blobs/:ref", h.handleDownload)
}

type uploadResponse struct {
	ContentRef ledger.ContentRef `json:"content_ref"`
	Size       int               `json:"size"`
}

func (h *Handler) handleUpload(c echo.Context) error {
	data, err := ReadAll(c.Request().Body)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ref, err := h.store.Put(c.Request().Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyBlob):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrFileTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusCreated, uploadResponse{ContentRef: ref, Size: len(data)})
}

func (h *Handler) handleDownload(c echo.Context) error {
	ref := ledger.ContentRef(c.Param("ref"))

	data, err := h.store.Get(c.Request().Context(), ref)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	c.Response().Header().Set("ETag", `"`+string(ref)+`"`)
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}
