package diagnostics

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/validate"
	"github.com/clinic/clinic/internal/platform/api"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/blobstore"
)

const (
	msgImageTooLarge    = "Image trop volumineuse"
	msgImageType        = "Seules les images sont acceptées (png, jpeg, gif, webp, bmp)"
	msgInvalidID        = "idPrescrire invalide"
	msgInvalidMultipart = "Formulaire multipart invalide"
	msgInvalidFlag      = "removeImage doit valoir true ou false"
	imageField          = "image"
)

type Handler struct {
	svc      *Service
	maxImage int64
}

// NewHandler serves exams. Uploaded images larger than maxImageBytes are
// rejected.
func NewHandler(svc *Service, maxImageBytes int64) *Handler {
	return &Handler{svc: svc, maxImage: maxImageBytes}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/examen", h.List)
	g.POST("/examen", h.Create)
	g.GET("/examen/prescription/:id", h.ByPrescription)
	g.GET("/examen/statut/:statut", h.ByStatus)
	g.GET("/examen/image/:id", h.GetImage)
	g.POST("/examen/image/:id", h.UploadImage)
	g.DELETE("/examen/image/:id", h.DeleteImage)
	g.GET("/examen/:id", h.Get)
	g.PUT("/examen/:id", h.Update)
	g.DELETE("/examen/:id", h.Delete)
	g.GET("/usedPrescriptions", h.UsedPrescriptions)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if isMultipart(c) {
		if err := h.bindCreateForm(c, &in); err != nil {
			return err
		}
	} else if err := api.Bind(c, &in); err != nil {
		return err
	}
	e, err := h.svc.Create(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return api.Created(c, "Examen créé avec succès", e)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return api.OK(c, e)
}

func (h *Handler) List(c echo.Context) error {
	out, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) ByPrescription(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	out, err := h.svc.ByPrescription(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) ByStatus(c echo.Context) error {
	out, err := h.svc.ByStatus(c.Request().Context(), c.Param("statut"))
	if err != nil {
		return err
	}
	return api.List(c, out)
}

func (h *Handler) UsedPrescriptions(c echo.Context) error {
	ids, err := h.svc.UsedPrescriptions(c.Request().Context())
	if err != nil {
		return err
	}
	return api.List(c, ids)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	var patch Patch
	if isMultipart(c) {
		if err := h.bindPatchForm(c, &patch); err != nil {
			return err
		}
	} else if err := api.Bind(c, &patch); err != nil {
		return err
	}
	e, err := h.svc.Update(c.Request().Context(), id, &patch)
	if err != nil {
		return err
	}
	return api.Message(c, "Examen mis à jour avec succès", e)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return api.Message(c, "Examen supprimé avec succès", nil)
}

// GetImage answers with the raw image bytes.
func (h *Handler) GetImage(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	img, err := h.svc.Image(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}

func (h *Handler) UploadImage(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	img, err := h.readImage(c)
	if err != nil {
		return err
	}
	if img == nil {
		return apperr.Invalid(msgNoImage)
	}
	if err := h.svc.UploadImage(c.Request().Context(), id, img); err != nil {
		return err
	}
	return api.Message(c, "Image téléchargée avec succès", nil)
}

func (h *Handler) DeleteImage(c echo.Context) error {
	id, err := api.IDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteImage(c.Request().Context(), id); err != nil {
		return err
	}
	return api.Message(c, "Image supprimée avec succès", nil)
}

func (h *Handler) bindCreateForm(c echo.Context, in *CreateInput) error {
	form, err := c.MultipartForm()
	if err != nil {
		return formError(err)
	}
	if v, ok := formValue(form, "idPrescrire"); ok && v != "" {
		if in.PrescriptionID, err = parseID(v); err != nil {
			return err
		}
	}
	in.Kind, _ = formValue(form, "typeExamen")
	in.Status, _ = formValue(form, "statut")
	if v, ok := formValue(form, "dateRealisation"); ok && v != "" {
		t, err := validate.ParseDateTime(v)
		if err != nil {
			return apperr.Wrap(apperr.KindInvalid, validate.MsgDateTime, err)
		}
		in.PerformedAt = &validate.DateTime{Time: t}
	}
	if v, ok := formValue(form, "resultat"); ok {
		in.Result = &v
	}
	if v, ok := formValue(form, "laboratoire"); ok {
		in.Laboratory = &v
	}
	in.Image, err = h.readImage(c)
	return err
}

// bindPatchForm maps form fields onto a Patch. An empty nullable field
// clears the column; an empty typeExamen, statut or idPrescrire is ignored.
func (h *Handler) bindPatchForm(c echo.Context, patch *Patch) error {
	form, err := c.MultipartForm()
	if err != nil {
		return formError(err)
	}
	if v, ok := formValue(form, "idPrescrire"); ok && v != "" {
		id, err := parseID(v)
		if err != nil {
			return err
		}
		patch.PrescriptionID = validate.Some(id)
	}
	if v, ok := formValue(form, "typeExamen"); ok && v != "" {
		patch.Kind = validate.Some(v)
	}
	if v, ok := formValue(form, "statut"); ok && v != "" {
		patch.Status = validate.Some(v)
	}
	if v, ok := formValue(form, "dateRealisation"); ok {
		if v == "" {
			patch.PerformedAt = validate.Optional[validate.DateTime]{Set: true, Null: true}
		} else {
			t, err := validate.ParseDateTime(v)
			if err != nil {
				return apperr.Wrap(apperr.KindInvalid, validate.MsgDateTime, err)
			}
			patch.PerformedAt = validate.Some(validate.DateTime{Time: t})
		}
	}
	if v, ok := formValue(form, "resultat"); ok {
		patch.Result = nullableText(v)
	}
	if v, ok := formValue(form, "laboratoire"); ok {
		patch.Laboratory = nullableText(v)
	}
	if v, ok := formValue(form, "removeImage"); ok {
		if patch.RemoveImage, err = parseFlag(v); err != nil {
			return err
		}
	}
	patch.Image, err = h.readImage(c)
	return err
}

// readImage returns a nil image when the request carries no image part.
func (h *Handler) readImage(c echo.Context) (*Image, error) {
	blob, err := blobstore.FromForm(c, imageField, h.maxImage, blobstore.ImageTypes)
	switch {
	case errors.Is(err, blobstore.ErrMissingFile):
		return nil, nil
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return nil, apperr.Wrap(apperr.KindInvalid, msgImageTooLarge, err)
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return nil, apperr.Wrap(apperr.KindInvalid, msgImageType, err)
	case errors.Is(err, blobstore.ErrMalformedForm):
		return nil, apperr.Wrap(apperr.KindInvalid, msgInvalidMultipart, err)
	case err != nil:
		return nil, err
	}
	if len(blob.Data) == 0 {
		return nil, nil
	}
	return &Image{Data: blob.Data, ContentType: blob.ContentType}, nil
}

// formError keeps echo HTTP errors, such as the 413 raised by the body
// limit, and reports any other parse failure as bad input.
func formError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return err
	}
	return apperr.Wrap(apperr.KindInvalid, msgInvalidMultipart, err)
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func formValue(form *multipart.Form, key string) (string, bool) {
	vs, ok := form.Value[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}

func nullableText(v string) validate.Optional[string] {
	if v == "" {
		return validate.Optional[string]{Set: true, Null: true}
	}
	return validate.Some(v)
}

// parseFlag reads a boolean form field. Besides strconv forms it takes "on",
// sent by HTML checkboxes, and treats an empty value as false.
func parseFlag(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "off":
		return false, nil
	case "on":
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperr.Invalid(msgInvalidFlag)
	}
	return b, nil
}

func parseID(v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(msgInvalidID)
	}
	return id, nil
}
