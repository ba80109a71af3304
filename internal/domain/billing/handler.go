package billing

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/auth"
	"github.com/svviitzerland/Medisync/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleFrontOffice, auth.RolePharmacy))
	read.GET("/invoices", h.ListInvoices)
	read.GET("/invoices/:id", h.GetInvoice)
	read.GET("/tickets/:id/invoice", h.GetTicketInvoice)

	write := api.Group("", auth.RequireRole(auth.RoleFrontOffice))
	write.POST("/invoices/:id/pay", h.PayInvoice)
	write.PUT("/invoices/:id/room-fee", h.SetRoomFee)

	api.GET("/billing/revenue", h.Revenue, auth.RequireRole(auth.RoleAdmin))
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListInvoices(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) GetTicketInvoice(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.GetByTicket(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) PayInvoice(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.MarkPaid(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

type roomFeeRequest struct {
	RoomFee int64 `json:"room_fee"`
}

func (h *Handler) SetRoomFee(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req roomFeeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.SetRoomFee(c.Request().Context(), id, req.RoomFee)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) Revenue(c echo.Context) error {
	rev, err := h.svc.Revenue(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rev)
}
