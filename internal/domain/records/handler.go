package records

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/auth"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/httperr"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:patient/records", h.AddRecord)
	api.GET("/patients/:patient/records", h.GetRecordIDs)
	api.GET("/patients/:patient/records/:record", h.GetRecord)
	api.GET("/patients/:patient/records/:record/history", h.GetRecordHistory)
}

type addRecordRequest struct {
	RecordName string            `json:"record_name"`
	RecordID   string            `json:"record_id"`
	ContentRef ledger.ContentRef `json:"content_ref"`
}

type addRecordResponse struct {
	Patient  ledger.Principal `json:"patient"`
	RecordID ledger.RecordID  `json:"record_id"`
	Version  int              `json:"version"`
}

// AddRecord accepts either a record_name, hashed into its id, or a hex record_id.
func (h *Handler) AddRecord(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	var req addRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	var id ledger.RecordID
	switch {
	case req.RecordID != "":
		id, err = ledger.ParseRecordID(req.RecordID)
	case req.RecordName != "":
		id = ledger.RecordIDFromName(req.RecordName)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "record_name or record_id is required")
	}
	if err != nil {
		return httperr.From(err)
	}

	patient := ledger.Principal(c.Param("patient"))
	version, err := h.svc.AddRecord(c.Request().Context(), caller, patient, id, req.ContentRef)
	if err != nil {
		return httperr.From(err)
	}
	status := http.StatusOK
	if version == 1 {
		status = http.StatusCreated
	}
	return c.JSON(status, addRecordResponse{Patient: patient, RecordID: id, Version: version})
}

func (h *Handler) GetRecordIDs(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	patient := ledger.Principal(c.Param("patient"))
	ids, err := h.svc.GetRecordIDs(c.Request().Context(), caller, patient)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient": patient, "record_ids": ids})
}

func (h *Handler) GetRecord(c echo.Context) error {
	caller, id, err := h.recordParams(c)
	if err != nil {
		return err
	}
	entry, err := h.svc.GetRecord(c.Request().Context(), caller, ledger.Principal(c.Param("patient")), id)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) GetRecordHistory(c echo.Context) error {
	caller, id, err := h.recordParams(c)
	if err != nil {
		return err
	}
	versions, err := h.svc.GetRecordHistory(c.Request().Context(), caller, ledger.Principal(c.Param("patient")), id)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"record_id": id, "versions": versions})
}

func (h *Handler) recordParams(c echo.Context) (ledger.Principal, ledger.RecordID, error) {
	caller, err := auth.Caller(c)
	if err != nil {
		return "", ledger.RecordID{}, err
	}
	id, err := ledger.ResolveRecordID(c.Param("record"))
	if err != nil {
		return "", ledger.RecordID{}, httperr.From(err)
	}
	return caller, id, nil
}
