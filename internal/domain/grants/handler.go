package grants

import (
	"fmt"
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
	api.GET("/patients/:patient/grants", h.ListProviders)
	api.GET("/patients/:patient/grants/:provider", h.HasAccess)
	api.PUT("/patients/:patient/grants/:provider", h.GrantAccess)
	api.DELETE("/patients/:patient/grants/:provider", h.RevokeAccess)
}

// patientCaller resolves the caller and insists it is the patient in the path.
func patientCaller(c echo.Context) (ledger.Principal, error) {
	caller, err := auth.Caller(c)
	if err != nil {
		return "", err
	}
	if caller != ledger.Principal(c.Param("patient")) {
		return "", httperr.From(fmt.Errorf("%w: only the patient may change grants", ledger.ErrUnauthorized))
	}
	return caller, nil
}

func (h *Handler) GrantAccess(c echo.Context) error {
	patient, err := patientCaller(c)
	if err != nil {
		return err
	}
	provider := ledger.Principal(c.Param("provider"))
	if err := h.svc.GrantAccess(c.Request().Context(), patient, provider); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient": patient, "provider": provider, "access": true})
}

func (h *Handler) RevokeAccess(c echo.Context) error {
	patient, err := patientCaller(c)
	if err != nil {
		return err
	}
	if err := h.svc.RevokeAccess(c.Request().Context(), patient, ledger.Principal(c.Param("provider"))); err != nil {
		return httperr.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HasAccess(c echo.Context) error {
	patient := ledger.Principal(c.Param("patient"))
	provider := ledger.Principal(c.Param("provider"))
	ok, err := h.svc.HasAccess(c.Request().Context(), patient, provider)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient": patient, "provider": provider, "access": ok})
}

func (h *Handler) ListProviders(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	list, err := h.svc.ListProviders(c.Request().Context(), caller, ledger.Principal(c.Param("patient")))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"grants": list})
}
