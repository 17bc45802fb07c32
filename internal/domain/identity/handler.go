package identity

import (
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/api"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patient", h.ListPatients)
	g.GET("/patient/search", h.SearchPatients)
	g.GET("/patient/:cin", h.GetPatient)
	g.POST("/patient", h.CreatePatient)
	g.PUT("/patient/:cin", h.UpdatePatient)
	g.DELETE("/patient/:cin", h.DeletePatient)

	g.GET("/praticien", h.ListPractitioners)
	g.GET("/praticien/search", h.SearchPractitioners)
	g.GET("/praticien/:cin", h.GetPractitioner)
	g.POST("/praticien", h.CreatePractitioner)
	g.PUT("/praticien/:cin", h.UpdatePractitioner)
	g.DELETE("/praticien/:cin", h.DeletePractitioner)
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := api.Bind(c, &p); err != nil {
		return err
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return err
	}
	return api.Created(c, "Patient ajouté avec succès", p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("cin"))
	if err != nil {
		return err
	}
	return api.OK(c, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.svc.ListPatients(c.Request().Context(), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return api.List(c, patients)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	patients, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return api.List(c, patients)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var patch PatientPatch
	if err := api.Bind(c, &patch); err != nil {
		return err
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), c.Param("cin"), &patch)
	if err != nil {
		return err
	}
	return api.Message(c, "Patient modifié avec succès", p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.svc.DeletePatient(c.Request().Context(), c.Param("cin")); err != nil {
		return err
	}
	return api.Message(c, "Suppression effectuée avec succès", nil)
}

// -- Practitioner Handlers --

func (h *Handler) CreatePractitioner(c echo.Context) error {
	var p Practitioner
	if err := api.Bind(c, &p); err != nil {
		return err
	}
	if err := h.svc.CreatePractitioner(c.Request().Context(), &p); err != nil {
		return err
	}
	return api.Created(c, "Praticien ajouté avec succès", p)
}

func (h *Handler) GetPractitioner(c echo.Context) error {
	p, err := h.svc.GetPractitioner(c.Request().Context(), c.Param("cin"))
	if err != nil {
		return err
	}
	return api.OK(c, p)
}

func (h *Handler) ListPractitioners(c echo.Context) error {
	practitioners, err := h.svc.ListPractitioners(c.Request().Context(), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return api.List(c, practitioners)
}

func (h *Handler) SearchPractitioners(c echo.Context) error {
	practitioners, err := h.svc.SearchPractitioners(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return api.List(c, practitioners)
}

func (h *Handler) UpdatePractitioner(c echo.Context) error {
	var patch PractitionerPatch
	if err := api.Bind(c, &patch); err != nil {
		return err
	}
	p, err := h.svc.UpdatePractitioner(c.Request().Context(), c.Param("cin"), &patch)
	if err != nil {
		return err
	}
	return api.Message(c, "Praticien modifié avec succès", p)
}

func (h *Handler) DeletePractitioner(c echo.Context) error {
	if err := h.svc.DeletePractitioner(c.Request().Context(), c.Param("cin")); err != nil {
		return err
	}
	return api.Message(c, "Suppression effectuée avec succès", nil)
}
