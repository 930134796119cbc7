package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
)

// MaxIdentifierLen bounds org ids and other opaque identifiers read from a URL.
const MaxIdentifierLen = 128

// Identifier trims raw and truncates it to MaxIdentifierLen bytes.
func Identifier(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > MaxIdentifierLen {
		return trimmed[:MaxIdentifierLen]
	}
	return trimmed
}

// QueryIdentifier reads an optional identifier from the query string.
func QueryIdentifier(r *http.Request, key string) string {
	return Identifier(r.URL.Query().Get(key))
}

// RequiredQueryString is QueryIdentifier that fails validation when the
// parameter is absent or blank.
func RequiredQueryString(r *http.Request, key string) (string, error) {
	value := QueryIdentifier(r, key)
	if value == "" {
		return "", missingParam("query", key)
	}
	return value, nil
}

// RequiredPathParam reads a chi route parameter as an identifier.
func RequiredPathParam(r *http.Request, key string) (string, error) {
	value := Identifier(chi.URLParam(r, key))
	if value == "" {
		return "", missingParam("path", key)
	}
	return value, nil
}

func missingParam(location, key string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, location+" parameter is required").
		WithDetails(map[string]any{"field": key})
}
