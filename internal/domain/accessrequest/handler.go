package accessrequest

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/auth"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/httperr"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:patient/access-requests", h.RequestAccess)
	api.GET("/patients/:patient/access-requests", h.ListRequests)
	api.GET("/access-requests/:id", h.GetRequest)
	api.POST("/access-requests/:id/approve", h.ApproveAccess)
	api.GET("/patients/:patient/approved-access", h.GetApprovedAccess)
	api.GET("/patients/:patient/shared-data", h.OpenSharedData)
}

type requestAccessRequest struct {
	// RecordIDs holds hex record ids or record names.
	RecordIDs       []string `json:"record_ids"`
	Reason          string   `json:"reason"`
	DurationSeconds int64    `json:"duration_seconds"`
}

type approveRequest struct {
	RecordIDs       []string `json:"record_ids"`
	DurationSeconds *int64   `json:"duration_seconds"`
}

// resolveIDs keeps nil distinct from an empty list.
func resolveIDs(raw []string) ([]ledger.RecordID, error) {
	if raw == nil {
		return nil, nil
	}
	ids := make([]ledger.RecordID, 0, len(raw))
	for _, s := range raw {
		id, err := ledger.ResolveRecordID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *Handler) RequestAccess(c echo.Context) error {
	doctor, err := auth.Caller(c)
	if err != nil {
		return err
	}
	var req requestAccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ids, err := resolveIDs(req.RecordIDs)
	if err != nil {
		return httperr.From(err)
	}
	id, err := h.svc.RequestAccess(c.Request().Context(), doctor, ledger.Principal(c.Param("patient")),
		ids, req.Reason, req.DurationSeconds)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

// ListRequests pages the patient's requests; ?status=pending hides approved ones.
func (h *Handler) ListRequests(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	list, err := h.svc.ListRequests(c.Request().Context(), caller, ledger.Principal(c.Param("patient")),
		c.QueryParam("status") == "pending")
	if err != nil {
		return httperr.From(err)
	}
	p := pagination.FromContext(c)
	start, end := p.Window(len(list))
	return c.JSON(http.StatusOK, p.Page(c.Request().URL.Path, list[start:end], len(list)))
}

func (h *Handler) GetRequest(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	req, err := h.svc.GetRequest(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ApproveAccess(c echo.Context) error {
	patient, err := auth.Caller(c)
	if err != nil {
		return err
	}
	var body approveRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ids, err := resolveIDs(body.RecordIDs)
	if err != nil {
		return httperr.From(err)
	}
	access, err := h.svc.ApproveAccess(c.Request().Context(), patient, c.Param("id"),
		ApproveOptions{RecordIDs: ids, DurationSeconds: body.DurationSeconds})
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, access)
}

// GetApprovedAccess returns the caller's access on the patient. The patient
// may inspect a specific doctor's access with ?doctor=.
func (h *Handler) GetApprovedAccess(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	patient := ledger.Principal(c.Param("patient"))
	doctor := caller
	if d := c.QueryParam("doctor"); d != "" && caller == patient {
		doctor = ledger.Principal(d)
	}
	access, err := h.svc.GetApprovedAccess(c.Request().Context(), doctor, patient)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, access)
}

func (h *Handler) OpenSharedData(c echo.Context) error {
	doctor, err := auth.Caller(c)
	if err != nil {
		return err
	}
	bundle, err := h.svc.OpenSharedData(c.Request().Context(), doctor, ledger.Principal(c.Param("patient")))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, bundle)
}
