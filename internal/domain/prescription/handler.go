package prescription

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
	g.GET("/prescrire", h.List)
	g.POST("/prescrire", h.Create)
	g.GET("/prescrire/consultation/:id", h.ByConsultation)
	g.GET("/prescrire/:id", h.Get)
	g.PUT("/prescrire/:id", h.Update)
	g.DELETE("/prescrire/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := api.Bind(c, &in); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return api.Created(c, "Prescription créée avec succès", p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return api.OK(c, p)
}

func (h *Handler) List(c echo.Context) error {
	out, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) ByConsultation(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	out, err := h.svc.ByConsultation(c.Request().Context(), id)
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
	p, err := h.svc.Update(c.Request().Context(), id, &patch)
	if err != nil {
		return err
	}
	return api.Message(c, "Prescription mise à jour avec succès", p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return api.Message(c, "Prescription supprimée avec succès", nil)
}
