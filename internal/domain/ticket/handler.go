package ticket

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
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
	read := api.Group("", auth.RequireRole(auth.RoleFrontOffice, auth.RoleDoctor, auth.RoleNurse, auth.RolePharmacy))
	read.GET("/tickets", h.ListTickets)
	read.GET("/tickets/:id", h.GetTicket)
	read.GET("/patients/:id/history", h.GetHistory)

	fo := api.Group("", auth.RequireRole(auth.RoleFrontOffice))
	fo.POST("/tickets", h.CreateTicket)
	fo.PUT("/tickets/:id/doctor", h.AssignDoctor)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/doctor/tickets", h.ListMyTickets)
	doctor.POST("/tickets/:id/checkup", h.CompleteCheckup)

	api.GET("/nurse-teams/:id/patients", h.ListWardPatients, auth.RequireRole(auth.RoleNurse))
}

func ticketID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// actingDoctor is the authenticated user when their subject is a profile id.
func actingDoctor(c echo.Context) *uuid.UUID {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return nil
	}
	return &id
}

func (h *Handler) CreateTicket(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetTicket(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTickets(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Status: c.QueryParam("status"), Limit: pg.Limit, Offset: pg.Offset}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = &id
	}
	if v := c.QueryParam("team_id"); v != "" {
		team, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid team_id")
		}
		f.NurseTeamID = team
	}
	return h.list(c, f)
}

func (h *Handler) ListMyTickets(c echo.Context) error {
	me := actingDoctor(c)
	if me == nil {
		return echo.NewHTTPError(http.StatusForbidden, "doctor profile required")
	}
	pg := pagination.FromContext(c)
	return h.list(c, Filter{Status: c.QueryParam("status"), DoctorID: me, Limit: pg.Limit, Offset: pg.Offset})
}

func (h *Handler) list(c echo.Context, f Filter) error {
	items, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, f.Limit, f.Offset))
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var body struct {
		DoctorID uuid.UUID `json:"doctor_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.AssignDoctor(c.Request().Context(), id, body.DoctorID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) CompleteCheckup(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req CheckupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == nil {
		req.DoctorID = actingDoctor(c)
	}
	res, err := h.svc.CompleteCheckup(c.Request().Context(), id, req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetHistory(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.History(c.Request().Context(), patientID, limit)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListWardPatients(c echo.Context) error {
	team, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid team id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.WardPatients(c.Request().Context(), team, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
