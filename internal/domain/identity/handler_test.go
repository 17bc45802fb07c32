package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestHandler_CreatePatient(t *testing.T) {
	h, e := newTestHandler()

	body := `{"cinPatient":"1234 5678 9012","nom":"Rakoto","prenom":"Jean","age":34,"sexe":"M","telephone":"+261 34 12 345 67"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patient", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	env := decode(t, rec)
	if !env.Success || env.Message != "Patient ajouté avec succès" {
		t.Errorf("unexpected envelope %+v", env)
	}
	var p Patient
	json.Unmarshal(env.Data, &p)
	if p.FirstName != "Jean" {
		t.Errorf("expected Jean, got %s", p.FirstName)
	}
}

func TestHandler_CreatePatient_BadRequest(t *testing.T) {
	h, e := newTestHandler()

	body := `{"nom":"Rakoto"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patient", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreatePatient(c)
	if apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("expected invalid error for missing fields, got %v", err)
	}
}

func TestHandler_CreatePatient_MalformedJSON(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/patient", strings.NewReader(`{"nom":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreatePatient(c); apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("expected invalid error, got %v", err)
	}
}

func TestHandler_GetPatient(t *testing.T) {
	h, e := newTestHandler()
	h.svc.CreatePatient(context.Background(), validPatient())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("cin")
	c.SetParamValues("1234 5678 9012")

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("cin")
	c.SetParamValues("9999 9999 9999")

	if err := h.GetPatient(c); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHandler_UpdatePatient(t *testing.T) {
	h, e := newTestHandler()
	h.svc.CreatePatient(context.Background(), validPatient())

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"adresse":"Lot II A 12 Antananarivo"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("cin")
	c.SetParamValues("1234 5678 9012")

	if err := h.UpdatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decode(t, rec)
	var p Patient
	json.Unmarshal(env.Data, &p)
	if p.Address == nil || *p.Address != "Lot II A 12 Antananarivo" {
		t.Errorf("expected address to be updated, got %v", p.Address)
	}
	if p.Age != 34 {
		t.Errorf("expected age untouched, got %d", p.Age)
	}
}

func TestHandler_UpdatePatient_NoFields(t *testing.T) {
	h, e := newTestHandler()
	h.svc.CreatePatient(context.Background(), validPatient())

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("cin")
	c.SetParamValues("1234 5678 9012")

	if err := h.UpdatePatient(c); apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("expected invalid error, got %v", err)
	}
}

func TestHandler_DeletePatient(t *testing.T) {
	h, e := newTestHandler()
	h.svc.CreatePatient(context.Background(), validPatient())

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("cin")
	c.SetParamValues("1234 5678 9012")

	if err := h.DeletePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	h, e := newTestHandler()
	h.svc.CreatePatient(context.Background(), validPatient())
	other := validPatient()
	other.CIN = "1111 2222 3333"
	other.Phone = nil
	other.Email = nil
	h.svc.CreatePatient(context.Background(), other)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decode(t, rec)
	if env.Count == nil || *env.Count != 2 {
		t.Errorf("expected count 2, got %v", env.Count)
	}
}

func TestHandler_SearchPatients(t *testing.T) {
	h, e := newTestHandler()
	h.svc.CreatePatient(context.Background(), validPatient())

	req := httptest.NewRequest(http.MethodGet, "/?q=Jean", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SearchPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := decode(t, rec)
	if env.Count == nil || *env.Count != 1 {
		t.Errorf("expected one match, got %v", env.Count)
	}
}

func TestHandler_PractitionerLifecycle(t *testing.T) {
	h, e := newTestHandler()

	body := `{"cinPraticien":"2222 3333 4444","nom":"Rasoa","prenom":"Marie","specialite":"Cardiologie"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreatePractitioner(e.NewContext(req, rec)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"email":"marie@clinique.mg"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("cin")
	c.SetParamValues("2222 3333 4444")
	if err := h.UpdatePractitioner(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if env := decode(t, rec); env.Message != "Praticien modifié avec succès" {
		t.Errorf("unexpected message %q", env.Message)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	if err := h.ListPractitioners(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	if env := decode(t, rec); env.Count == nil || *env.Count != 1 {
		t.Errorf("expected one practitioner, got %v", env.Count)
	}

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("cin")
	c.SetParamValues("2222 3333 4444")
	if err := h.DeletePractitioner(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
