package consultation

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
	g.GET("/consultation", h.List)
	g.POST("/consultation", h.Create)
	g.GET("/consultation/patient/:cin", h.ByPatient)
	g.GET("/consultation/praticien/:cin", h.ByPractitioner)
	g.GET("/consultation/rendezVous/:id", h.ByAppointment)
	g.GET("/consultation/:id", h.Get)
	g.PUT("/consultation/:id", h.Update)
	g.DELETE("/consultation/:id", h.Delete)
	g.GET("/availableForPrescription", h.AvailableForPrescription)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := api.Bind(c, &in); err != nil {
		return err
	}
	out, err := h.svc.Create(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return api.Created(c, "Consultation créée avec succès", out)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	out, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return api.OK(c, out)
}

func (h *Handler) List(c echo.Context) error {
	out, err := h.svc.List(c.Request().Context())
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
	out, err := h.svc.Update(c.Request().Context(), id, &patch)
	if err != nil {
		return err
	}
	return api.Message(c, "Consultation mise à jour avec succès", out)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return api.Message(c, "Consultation supprimée avec succès", nil)
}

func (h *Handler) ByPatient(c echo.Context) error {
	out, err := h.svc.ByPatient(c.Request().Context(), c.Param("cin"))
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) ByPractitioner(c echo.Context) error {
	out, err := h.svc.ByPractitioner(c.Request().Context(), c.Param("cin"))
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) ByAppointment(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	out, err := h.svc.ByAppointment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) AvailableForPrescription(c echo.Context) error {
	out, err := h.svc.AvailableForPrescription(c.Request().Context())
	if err != nil {
		return err
	}
	return api.List(c, out)
}
