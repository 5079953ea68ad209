package httpapi

import (
	"net/http"

	"github.com/oapi-codegen/nullable"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/app/session"
	"github.com/campus-events/eventhub-api/internal/domain"
)

func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	res, _, ok := s.resumeSession(w, r)
	if !ok {
		return
	}
	u, _ := res.CurrentUser()
	writeJSON(w, http.StatusOK, MeResponse{User: meUserFromDomain(u)})
}

func (s *Server) UpdateMe(w http.ResponseWriter, r *http.Request) {
	res, p, ok := s.resumeSession(w, r)
	if !ok {
		return
	}
	var req UpdateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	patch, err := s.profilePatchFromRequest(req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := res.UpdateProfile(r.Context(), p.ID, patch); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	u, _ := res.CurrentUser()
	writeJSON(w, http.StatusOK, MeResponse{User: meUserFromDomain(u)})
}

func (s *Server) profilePatchFromRequest(req UpdateMeRequest) (session.ProfilePatch, error) {
	details := map[string]any{}
	var out session.ProfilePatch

	out.Name = optionalText(req.Name, func(v string) string { return domain.NormalizeHumanName(sanitizeText(v)) })
	if out.Name.IsSpecified() && !out.Name.IsNull() && out.Name.Value() == "" {
		details["name"] = "must be non-empty"
	}
	if out.Name.IsNull() {
		details["name"] = "cannot be cleared"
	}
	out.Location = optionalText(req.Location, sanitizeText)
	out.Bio = optionalText(req.Bio, sanitizeText)

	out.Phone = optionalText(req.Phone, func(v string) string { return v })
	if out.Phone.IsSpecified() && !out.Phone.IsNull() {
		phone, err := normalizePhone(out.Phone.Value(), s.opts.PhoneRegion)
		if err != nil {
			details["phone"] = err.Error()
		}
		out.Phone = session.Some(phone)
	}

	if len(details) > 0 {
		return session.ProfilePatch{}, apperr.New(apperr.ErrValidationFailed, "validation failed", details)
	}
	return out, nil
}

func optionalText(n nullable.Nullable[string], clean func(string) string) session.Optional[string] {
	if !n.IsSpecified() {
		return session.Unspecified[string]()
	}
	if n.IsNull() {
		return session.Null[string]()
	}
	v, err := n.Get()
	if err != nil {
		return session.Unspecified[string]()
	}
	return session.Some(clean(v))
}
