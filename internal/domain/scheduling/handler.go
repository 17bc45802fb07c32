package scheduling

import (
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/api"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/rendezVous", h.List)
	g.POST("/rendezVous", h.Create)
	g.GET("/rendezVous/pending/count", h.PendingCount)
	g.GET("/rendezVous/pending/notifications", h.PendingNotifications)
	g.GET("/rendezVous/referrals", h.Referrals)
	g.GET("/rendezVous/examens", h.ExamAppointments)
	g.GET("/rendezVous/:id", h.Get)
	g.PUT("/rendezVous/:id", h.Update)
	g.DELETE("/rendezVous/:id", h.Delete)
	g.GET("/available", h.Available)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := api.Bind(c, &in); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return api.Created(c, "Rendez-vous créé avec succès", a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return api.OK(c, a)
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		PatientCIN:      c.QueryParam("cinPatient"),
		PractitionerCIN: c.QueryParam("cinPraticien"),
		Status:          c.QueryParam("statut"),
	}
	out, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	var patch Patch
	if err := api.Bind(c, &patch); err != nil {
		return err
	}
	a, err := h.svc.Update(c.Request().Context(), id, &patch)
	if err != nil {
		return err
	}
	return api.Message(c, "Rendez-vous modifié avec succès", a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return api.Message(c, "Rendez-vous supprimé avec succès", nil)
}

func (h *Handler) Available(c echo.Context) error {
	out, err := h.svc.Available(c.Request().Context())
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) PendingCount(c echo.Context) error {
	n, err := h.svc.PendingCount(c.Request().Context())
	if err != nil {
		return err
	}
	return api.Count(c, n)
}

func (h *Handler) PendingNotifications(c echo.Context) error {
	out, err := h.svc.PendingNotifications(c.Request().Context())
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) Referrals(c echo.Context) error {
	out, err := h.svc.Referrals(c.Request().Context())
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) ExamAppointments(c echo.Context) error {
	out, err := h.svc.ExamAppointments(c.Request().Context(), c.QueryParam("cinPatient"))
	if err != nil {
		return err
	}
	return api.List(c, out)
}
