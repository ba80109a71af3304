package resource

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
	read := api.Group("", auth.RequireRole(auth.RoleFrontOffice, auth.RoleNurse, auth.RoleDoctor))
	read.GET("/rooms", h.ListRooms)
	read.GET("/rooms/:id", h.GetRoom)
	read.GET("/nurse-teams/loads", h.TeamLoads)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/rooms", h.CreateRoom)
}

func (h *Handler) ListRooms(c echo.Context) error {
	rooms, err := h.svc.ListRooms(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *Handler) GetRoom(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	room, err := h.svc.GetRoom(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, room)
}

func (h *Handler) CreateRoom(c echo.Context) error {
	var room Room
	if err := c.Bind(&room); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRoom(c.Request().Context(), &room); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, room)
}

func (h *Handler) TeamLoads(c echo.Context) error {
	loads, err := h.svc.TeamLoads(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, loads)
}
