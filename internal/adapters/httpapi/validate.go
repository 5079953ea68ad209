package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nyaruka/phonenumbers"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/domain"
)

const maxBodyBytes = 1 << 20

// textPolicy strips all markup from free text.
var textPolicy = bluemonday.StrictPolicy()

// sanitizeText strips markup and undoes the policy's entity escaping, so "R&D" stays "R&D".
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// decodeJSON reads a single JSON object into dst. Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.ErrValidationFailed, "missing request body", nil)
		}
		if errors.Is(err, openapi_types.ErrValidationEmail) {
			return apperr.New(apperr.ErrValidationFailed, "invalid email", map[string]any{"email": "must be a valid email address"})
		}
		return apperr.New(apperr.ErrValidationFailed, "malformed JSON body", map[string]any{"body": err.Error()})
	}
	return nil
}

// validationError converts ozzo field errors into the error envelope's details.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		details := make(map[string]any, len(fields))
		for k, v := range fields {
			details[k] = v.Error()
		}
		return apperr.New(apperr.ErrValidationFailed, "validation failed", details)
	}
	return apperr.Wrap(apperr.ErrValidationFailed, "validation failed", err)
}

// normalizePhone returns the E.164 form of raw, parsed in region when it carries no
// country code. Empty input stays empty.
func normalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("not a phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("not a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

var roleRule = validation.In(string(domain.RoleUser), string(domain.RoleAdmin))

func (req *SignupRequest) normalize(region string) error {
	req.Email = openapi_types.Email(strings.TrimSpace(string(req.Email)))
	req.Name = domain.NormalizeHumanName(sanitizeText(req.Name))
	req.Location = sanitizeText(req.Location)
	req.Bio = sanitizeText(req.Bio)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))

	err := validation.ValidateStruct(req,
		validation.Field(&req.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&req.Password, validation.Required, validation.Length(1, 128)),
		validation.Field(&req.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Location, validation.Length(0, 200)),
		validation.Field(&req.Bio, validation.Length(0, 2000)),
		validation.Field(&req.Role, roleRule),
	)
	if err != nil {
		return validationError(err)
	}
	phone, perr := normalizePhone(req.Phone, region)
	if perr != nil {
		return apperr.New(apperr.ErrValidationFailed, "validation failed", map[string]any{"phone": perr.Error()})
	}
	req.Phone = phone
	return nil
}

func (req *LoginRequest) validate() error {
	req.Email = openapi_types.Email(strings.TrimSpace(string(req.Email)))
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Password, validation.Required),
	))
}

func (req *CreateEventRequest) normalize() error {
	req.Title = domain.NormalizeHumanName(sanitizeText(req.Title))
	req.Description = sanitizeText(req.Description)
	req.Location = sanitizeText(req.Location)
	req.Club = domain.NormalizeHumanName(sanitizeText(req.Club))
	req.Category = strings.TrimSpace(req.Category)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.ImageURL = strings.TrimSpace(req.ImageURL)

	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Required, validation.Length(1, 5000)),
		validation.Field(&req.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&req.Time, validation.Required, validation.Date("15:04")),
		validation.Field(&req.Location, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Category, validation.Length(0, 50)),
		validation.Field(&req.Price, validation.Min(0.0)),
		validation.Field(&req.MaxParticipants, validation.Min(0)),
		validation.Field(&req.ImageURL, is.URL),
	))
}

// normalize sanitises the club fields. Blank values are left for the registry to reject.
func (req *CreateClubRequest) normalize() error {
	req.Name = domain.NormalizeHumanName(sanitizeText(req.Name))
	req.Description = sanitizeText(req.Description)
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Length(0, 100)),
		validation.Field(&req.Description, validation.Length(0, 2000)),
	))
}
