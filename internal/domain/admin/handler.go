package admin

import (
	"net/http"

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
	api.GET("/admin/stats", h.GetStats, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) GetStats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}
