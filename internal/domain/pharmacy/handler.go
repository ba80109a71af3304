package pharmacy

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RolePharmacy, auth.RoleDoctor, auth.RoleNurse, auth.RoleFrontOffice))
	read.GET("/pharmacy/medicines", h.ListMedicines)
	read.GET("/pharmacy/medicines/:id", h.GetMedicine)
	read.GET("/tickets/:id/prescriptions", h.ListTicketPrescriptions)

	write := api.Group("", auth.RequireRole(auth.RolePharmacy))
	write.POST("/pharmacy/medicines", h.CreateMedicine)
	write.POST("/pharmacy/medicines/:id/stock", h.Restock)
	write.GET("/pharmacy/queue", h.Queue)
	write.POST("/pharmacy/tickets/:id/dispense", h.Dispense)
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// ListMedicines returns the catalog; ?in_stock=true hides empty shelves.
func (h *Handler) ListMedicines(c echo.Context) error {
	inStock, _ := strconv.ParseBool(c.QueryParam("in_stock"))
	items, err := h.svc.ListCatalog(c.Request().Context(), inStock)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetMedicine(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedicine(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) CreateMedicine(c echo.Context) error {
	var m Medicine
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMedicine(c.Request().Context(), &m); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

type restockRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) Restock(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req restockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.Restock(c.Request().Context(), id, req.Delta)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListTicketPrescriptions(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByTicket(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Queue(c echo.Context) error {
	orders, err := h.svc.Queue(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) Dispense(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Dispense(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ticket_id": id,
		"dispensed": len(items),
		"items":     items,
	})
}
