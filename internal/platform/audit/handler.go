package audit

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/auth"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/httperr"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/pkg/pagination"
)

// Handler serves a patient's own audit trail.
type Handler struct {
	trail *Trail
}

func NewHandler(trail *Trail) *Handler {
	return &Handler{trail: trail}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:patient/audit", h.ListByPatient)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	caller, err := auth.Caller(c)
	if err != nil {
		return err
	}
	patient := ledger.Principal(c.Param("patient"))
	if caller != patient {
		return httperr.From(fmt.Errorf("%w: only the patient may read its audit trail", ledger.ErrUnauthorized))
	}

	p := pagination.FromContext(c)
	events, total, err := h.trail.ListByPatient(c.Request().Context(), patient, p.Limit, p.Offset)
	if err != nil {
		return httperr.From(err)
	}
	if events == nil {
		events = []*Event{}
	}
	return c.JSON(http.StatusOK, p.Page(c.Request().URL.Path, events, total))
}
