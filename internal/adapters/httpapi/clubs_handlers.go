package httpapi

import (
	"net/http"
	"strings"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/domain"
)

func (s *Server) ListClubs(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := queryParam(r, "q", &q); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	cs := s.Clubs.Search(r.Context(), strings.TrimSpace(q))
	out := make([]Club, 0, len(cs))
	for _, c := range cs {
		out = append(out, clubFromDomain(c))
	}
	writeJSON(w, http.StatusOK, ClubListResponse{Clubs: out})
}

// ListClubEvents lists events whose club name matches the club's name.
func (s *Server) ListClubEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "clubId")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	c, err := s.Clubs.Get(r.Context(), domain.ClubID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	es := s.Events.Search(r.Context(), domain.EventFilter{Club: c.Name})
	writeJSON(w, http.StatusOK, EventListResponse{Events: eventsFromDomain(es)})
}

// CreateClub is open to any signed-in caller.
func (s *Server) CreateClub(w http.ResponseWriter, r *http.Request) {
	if _, ok := PrincipalFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, apperr.CodeNotAuthenticated, "missing principal", nil)
		return
	}
	var req CreateClubRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := req.normalize(); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	c, err := s.Clubs.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ClubResponse{Club: clubFromDomain(c)})
}
