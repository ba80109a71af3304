package assistant

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
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

// RegisterRoutes mounts the gateway under /ai. Every use case answers 200 with
// a status envelope; only malformed requests are rejected with an HTTP error.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	ai := api.Group("/ai")
	ai.POST("/triage", h.Triage, auth.RequireRole(auth.RoleFrontOffice))
	ai.POST("/questions", h.Questions, auth.RequireRole(auth.RoleFrontOffice, auth.RolePatient))
	ai.POST("/summarize", h.Summarize, auth.RequireRole(auth.RoleFrontOffice, auth.RolePatient))
	ai.POST("/suggest", h.Suggest, auth.RequireRole(auth.RoleDoctor))

	chat := ai.Group("/chat", auth.RequireRole(auth.RolePatient, auth.RoleFrontOffice, auth.RoleDoctor, auth.RoleNurse))
	chat.POST("", h.Chat)
	chat.GET("/:ticket_id", h.ChatHistory)
}

// requester limits patients to their own tickets. Staff are not limited.
func requester(c echo.Context) *uuid.UUID {
	ctx := c.Request().Context()
	if auth.HasRole(auth.RolesFromContext(ctx), auth.RoleFrontOffice, auth.RoleDoctor, auth.RoleNurse) {
		return nil
	}
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		id = uuid.Nil
	}
	return &id
}

func (h *Handler) Triage(c echo.Context) error {
	var req TriageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.Triage(c.Request().Context(), req))
}

func (h *Handler) Suggest(c echo.Context) error {
	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.Suggest(c.Request().Context(), req))
}

func (h *Handler) Questions(c echo.Context) error {
	var req struct {
		Complaint string `json:"complaint"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.Questions(c.Request().Context(), req.Complaint))
}

func (h *Handler) Summarize(c echo.Context) error {
	var req struct {
		History []Turn `json:"qa_history"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.Summarize(c.Request().Context(), req.History))
}

func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Requester = requester(c)
	return c.JSON(http.StatusOK, h.svc.Chat(c.Request().Context(), req))
}

func (h *Handler) ChatHistory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("ticket_id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}
	msgs, err := h.svc.ChatHistory(c.Request().Context(), id, requester(c))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, msgs)
}
