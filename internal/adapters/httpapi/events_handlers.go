package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/app/events"
	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/idempotency"
)

func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	var (
		q, category, club string
		refresh           bool
	)
	for name, dst := range map[string]any{"q": &q, "category": &category, "club": &club, "refresh": &refresh} {
		if err := queryParam(r, name, dst); err != nil {
			s.writeAppError(w, r, err)
			return
		}
	}
	if refresh {
		if err := s.Events.Refresh(r.Context()); err != nil {
			s.writeAppError(w, r, err)
			return
		}
	}

	filter := domain.EventFilter{
		Query:    strings.TrimSpace(q),
		Category: strings.TrimSpace(category),
		Club:     domain.NormalizeHumanName(club),
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: eventsFromDomain(s.Events.Search(r.Context(), filter))})
}

func (s *Server) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "eventId")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	e, err := s.Events.Get(r.Context(), domain.EventID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EventResponse{Event: eventFromDomain(e)})
}

// CreateEvent is admin-only. With an Idempotency-Key header, a retry carrying the same body
// replays the first response and a different body is rejected.
func (s *Server) CreateEvent(w http.ResponseWriter, r *http.Request) {
	_, p, ok := s.adminSession(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := req.normalize(); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	var respFP *idempotency.Fingerprint
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" && s.Idem != nil {
		bodyHash, err := hashBody(req)
		if err != nil {
			s.writeAppError(w, r, apperr.Internal("hash request body", err))
			return
		}
		metaFP := idempotency.Fingerprint{
			Key:     idempotency.Key(key),
			Subject: p.ID,
			Method:  http.MethodPost,
			Route:   "/events",
		}
		replay, fp, err := s.checkIdempotency(r.Context(), metaFP, bodyHash)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if replay != nil {
			w.Header().Set("Idempotent-Replayed", "true")
			w.Header().Set("Content-Type", replay.ContentType)
			w.WriteHeader(replay.StatusCode)
			_, _ = w.Write(replay.Body)
			return
		}
		respFP = &fp
	}

	e, err := s.Events.Create(r.Context(), events.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Time:            req.Time,
		Location:        req.Location,
		Club:            req.Club,
		Category:        req.Category,
		Price:           req.Price,
		MaxParticipants: req.MaxParticipants,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	resp := EventResponse{Event: eventFromDomain(e)}
	// Store successful response for replay.
	if respFP != nil {
		if b, err := json.Marshal(resp); err == nil {
			_ = s.Idem.Put(r.Context(), *respFP, idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   s.clk.Now().UTC(),
			})
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// checkIdempotency records bodyHash under metaFP on first use and rejects a different hash
// later. It returns the stored response when one exists for this exact request.
func (s *Server) checkIdempotency(ctx context.Context, metaFP idempotency.Fingerprint, bodyHash string) (*idempotency.Record, idempotency.Fingerprint, error) {
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		return nil, idempotency.Fingerprint{}, apperr.Internal("read idempotency record", err)
	}
	if ok {
		if string(meta.Body) != bodyHash {
			return nil, idempotency.Fingerprint{}, &apperr.Error{
				Status:  http.StatusConflict,
				Code:    apperr.CodeIdempotencyKeyUsed,
				Message: "idempotency key reuse with different payload",
			}
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.clk.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	rec, ok, err := s.Idem.Get(ctx, respFP)
	if err != nil {
		return nil, idempotency.Fingerprint{}, apperr.Internal("read idempotency record", err)
	}
	if ok && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
		return &rec, respFP, nil
	}
	return nil, respFP, nil
}

func (s *Server) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.adminSession(w, r); !ok {
		return
	}
	id, err := pathParam(r, "eventId")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.Events.Delete(r.Context(), domain.EventID(id)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) RegisterForEvent(w http.ResponseWriter, r *http.Request) {
	s.changeRegistration(w, r, s.Events.Register)
}

func (s *Server) UnregisterFromEvent(w http.ResponseWriter, r *http.Request) {
	s.changeRegistration(w, r, s.Events.Unregister)
}

func (s *Server) changeRegistration(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.EventID, domain.UserID) (domain.Event, error)) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, apperr.CodeNotAuthenticated, "missing principal", nil)
		return
	}
	id, err := pathParam(r, "eventId")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	e, err := op(r.Context(), domain.EventID(id), p.ID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EventResponse{Event: eventFromDomain(e)})
}

func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
