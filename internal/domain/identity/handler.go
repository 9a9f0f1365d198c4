package identity

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
	api.POST("/patients/register", h.RegisterPatient)
	api.GET("/patients/:patient/registered", h.IsRegistered)
	api.GET("/patients/:patient", h.GetAccount)
}

// RegisterPatient registers the caller. 201 on creation, 200 if it already existed.
func (h *Handler) RegisterPatient(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	existed, err := h.svc.IsRegistered(ctx, caller)
	if err != nil {
		return httperr.From(err)
	}
	account, err := h.svc.RegisterPatient(ctx, caller)
	if err != nil {
		return httperr.From(err)
	}
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	return c.JSON(status, account)
}

func (h *Handler) IsRegistered(c echo.Context) error {
	patient := ledger.Principal(c.Param("patient"))
	ok, err := h.svc.IsRegistered(c.Request().Context(), patient)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient": patient, "registered": ok})
}

func (h *Handler) GetAccount(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.GetAccount(c.Request().Context(), caller, ledger.Principal(c.Param("patient")))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, summary)
}
