package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
)

type orgRequest struct {
	OrgID string `json:"org_id" validate:"required,max=128"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"org_id":"org_1"}`))
	var body orgRequest
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.OrgID != "org_1" {
		t.Fatalf("unexpected org %q", body.OrgID)
	}
}

func TestDecodeJSONBodyRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing field":  `{}`,
		"unknown field":  `{"org_id":"org_1","plan":"gold"}`,
		"malformed json": `{"org_id":`,
		"empty body":     ``,
		"trailing data":  `{"org_id":"org_1"}{"org_id":"org_2"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			var body orgRequest
			err := DecodeJSONBody(req, &body)
			if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDecodeJSONBodyReportsFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"org_id":""}`))
	var body orgRequest
	err := DecodeJSONBody(req, &body)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	if details["org_id"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestRequiredQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?org_id=%20org_9%20", nil)
	value, err := RequiredQueryString(req, "org_id")
	if err != nil || value != "org_9" {
		t.Fatalf("got %q, %v", value, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := RequiredQueryString(req, "org_id"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	payload := `{"org_id":"` + strings.Repeat("a", MaxJSONBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	var body orgRequest
	err := DecodeJSONBody(req, &body)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if pkgerrors.As(err).Message() != "request body too large" {
		t.Fatalf("unexpected message %q", pkgerrors.As(err).Message())
	}
}

func TestIdentifierTruncates(t *testing.T) {
	long := strings.Repeat("x", MaxIdentifierLen+10)
	if got := Identifier("  " + long + "  "); len(got) != MaxIdentifierLen {
		t.Fatalf("expected %d bytes, got %d", MaxIdentifierLen, len(got))
	}
	if got := QueryIdentifier(httptest.NewRequest(http.MethodGet, "/", nil), "org_id"); got != "" {
		t.Fatalf("expected empty identifier, got %q", got)
	}
}

func TestRequiredPathParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orgId", " org_3 ")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	value, err := RequiredPathParam(req, "orgId")
	if err != nil || value != "org_3" {
		t.Fatalf("got %q, %v", value, err)
	}

	if _, err := RequiredPathParam(httptest.NewRequest(http.MethodGet, "/", nil), "orgId"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
