package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
)

func pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || v == "" {
		return "", apperr.New(apperr.ErrValidationFailed, "invalid path parameter", map[string]any{name: "required"})
	}
	return v, nil
}

// queryParam binds an optional form-style query parameter into dst.
func queryParam(r *http.Request, name string, dst any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dst); err != nil {
		return apperr.New(apperr.ErrValidationFailed, "invalid query parameter", map[string]any{name: err.Error()})
	}
	return nil
}
