package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/httputil"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/model"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/store"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (s *Server) handleList(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := parseListPagination(r)
		if err != nil {
			httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
			return
		}

		records, total, err := s.store.List(r.Context(), kind, store.ListOptions{Limit: limit, Offset: offset})
		if err != nil {
			httputil.RespondProblemf(w, r, http.StatusInternalServerError, "failed to list %s", kind.Collection())
			return
		}

		items := make([]types.Envelope, 0, len(records))
		for _, record := range records {
			items = append(items, record.Envelope())
		}

		httputil.RespondJSON(w, http.StatusOK, types.EnvelopeList{
			Kind:       kind.EnvelopeName() + "List",
			APIVersion: types.APIVersion,
			Metadata: types.ListMetadata{
				TotalCount: total,
				Limit:      limit,
				Offset:     offset,
			},
			Items: items,
		})
	}
}

func (s *Server) handleGet(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			httputil.RespondProblemf(w, r, http.StatusBadRequest, "%s id is required", kind)
			return
		}

		record, err := s.store.Get(r.Context(), kind, id)
		if err != nil {
			s.respondStoreError(w, r, kind, id, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, record.Envelope())
	}
}

func (s *Server) handleCreate(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload types.Payload
		if err := httputil.DecodeJSON(r, &payload); err != nil {
			httputil.RespondProblemf(w, r, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if payload == nil {
			payload = types.Payload{}
		}

		record := model.Record{Kind: kind, Payload: payload}
		if err := s.normalizeRecord(&record); err != nil {
			httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
			return
		}

		created, err := s.store.Create(r.Context(), record)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				httputil.RespondProblem(w, r, http.StatusConflict, store.ErrConflict.Error())
				return
			}
			httputil.RespondProblemf(w, r, http.StatusInternalServerError, "failed to create %s", kind)
			return
		}

		w.Header().Set("Location", fmt.Sprintf("/%s/%s", kind.Collection(), created.ID))
		httputil.RespondJSON(w, http.StatusCreated, created.Envelope())
	}
}

func (s *Server) handleUpdate(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			httputil.RespondProblemf(w, r, http.StatusBadRequest, "%s id is required", kind)
			return
		}

		var patch types.Payload
		if err := httputil.DecodeJSON(r, &patch); err != nil {
			httputil.RespondProblemf(w, r, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		record, err := s.store.Get(r.Context(), kind, id)
		if err != nil {
			s.respondStoreError(w, r, kind, id, err)
			return
		}

		for field, value := range patch {
			record.Payload[field] = value
		}
		if err := s.normalizeRecord(&record); err != nil {
			httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
			return
		}

		updated, err := s.store.Update(r.Context(), record)
		if err != nil {
			s.respondStoreError(w, r, kind, id, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, updated.Envelope())
	}
}

func (s *Server) handleDelete(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			httputil.RespondProblemf(w, r, http.StatusBadRequest, "%s id is required", kind)
			return
		}

		if err := s.store.Delete(r.Context(), kind, id); err != nil {
			s.respondStoreError(w, r, kind, id, err)
			return
		}
		httputil.RespondJSON(w, http.StatusNoContent, nil)
	}
}

func (s *Server) handleAction(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		action := strings.TrimSpace(chi.URLParam(r, "action"))
		if id == "" || action == "" {
			httputil.RespondProblemf(w, r, http.StatusBadRequest, "%s id and action are required", kind)
			return
		}

		var body types.Payload
		if r.ContentLength > 0 {
			if err := httputil.DecodeJSON(r, &body); err != nil {
				httputil.RespondProblemf(w, r, http.StatusBadRequest, "invalid request body: %v", err)
				return
			}
		}

		record, err := s.store.Get(r.Context(), kind, id)
		if err != nil {
			s.respondStoreError(w, r, kind, id, err)
			return
		}

		if err := s.applyAction(&record, action, body); err != nil {
			httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
			return
		}

		updated, err := s.store.Update(r.Context(), record)
		if err != nil {
			s.respondStoreError(w, r, kind, id, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, updated.Envelope())
	}
}

// applyAction mutates the record in place for a named transition.
func (s *Server) applyAction(record *model.Record, action string, body types.Payload) error {
	kind := record.Kind

	switch action {
	case "status":
		raw, ok := body["status"].(string)
		if !ok || strings.TrimSpace(raw) == "" {
			return fmt.Errorf("status action requires a status field")
		}
		newStatus := types.Status(raw)
		if !s.machine.Contains(kind, newStatus) {
			return fmt.Errorf("invalid status %q for kind %q", raw, kind)
		}
		setStatus(record, newStatus)
	case "advance":
		next, err := s.machine.Next(kind, record.Status)
		if err != nil {
			return err
		}
		setStatus(record, next)
	case "reschedule":
		if kind != types.KindAppointment {
			return fmt.Errorf("action %q is not supported for kind %q", action, kind)
		}
		if scheduledAt, ok := body["scheduledAt"]; ok {
			record.Payload["scheduledAt"] = scheduledAt
		}
		setStatus(record, types.AppointmentRescheduled)
	case "cancel":
		if !s.machine.Contains(kind, "cancelled") {
			return fmt.Errorf("action %q is not supported for kind %q", action, kind)
		}
		setStatus(record, "cancelled")
	case "subscribe", "unsubscribe":
		if kind != types.KindSubscriber {
			return fmt.Errorf("action %q is not supported for kind %q", action, kind)
		}
		if action == "subscribe" {
			setStatus(record, types.SubscriberSubscribed)
		} else {
			setStatus(record, types.SubscriberUnsubscribed)
		}
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

// normalizeRecord derives the status column and tracking number column from
// the payload, applying kind defaults and validating status membership.
func (s *Server) normalizeRecord(record *model.Record) error {
	kind := record.Kind

	if kind == types.KindSubscriber {
		if _, ok := record.Payload["isSubscribed"].(bool); !ok {
			record.Payload["isSubscribed"] = true
		}
		record.Status = types.StatusFromPayload(kind, record.Payload)
		return nil
	}

	if kind == types.KindShipment {
		trackingNumber, _ := record.Payload["trackingNumber"].(string)
		trackingNumber = strings.TrimSpace(trackingNumber)
		if trackingNumber == "" {
			return fmt.Errorf("shipment trackingNumber is required")
		}
		record.TrackingNumber = trackingNumber
	}

	table := s.machine.Statuses(kind)
	if table == nil {
		// Kinds without a status machine (users) keep an empty status.
		return nil
	}

	current := types.StatusFromPayload(kind, record.Payload)
	if current == "" {
		first, err := s.machine.First(kind)
		if err != nil {
			return err
		}
		current = first
	}
	if !s.machine.Contains(kind, current) {
		return fmt.Errorf("invalid status %q for kind %q", current, kind)
	}
	setStatus(record, current)
	return nil
}

func setStatus(record *model.Record, newStatus types.Status) {
	record.Status = newStatus
	if record.Kind == types.KindSubscriber {
		record.Payload["isSubscribed"] = newStatus == types.SubscriberSubscribed
		return
	}
	record.Payload["status"] = string(newStatus)
}

func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, kind types.Kind, id string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.RespondProblemf(w, r, http.StatusNotFound, "%s %q not found", kind, id)
	case errors.Is(err, store.ErrConflict):
		httputil.RespondProblem(w, r, http.StatusConflict, store.ErrConflict.Error())
	default:
		httputil.RespondProblemf(w, r, http.StatusInternalServerError, "failed to load %s %q", kind, id)
	}
}

func parseListPagination(r *http.Request) (int, int, error) {
	limit := defaultListLimit
	offset := 0

	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return 0, 0, fmt.Errorf("invalid limit value %q", value)
		}
		if parsed > maxListLimit {
			parsed = maxListLimit
		}
		limit = parsed
	}

	if value := strings.TrimSpace(r.URL.Query().Get("offset")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return 0, 0, fmt.Errorf("invalid offset value %q", value)
		}
		offset = parsed
	}

	return limit, offset, nil
}
