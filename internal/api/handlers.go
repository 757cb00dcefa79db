package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"aggregator/internal/channel"
	"aggregator/internal/domain/event"
	"aggregator/internal/domain/record"
	"aggregator/internal/usecase"
)

type Handlers struct {
	publishUC *usecase.PublishEvent
	listUC    *usecase.ListEvents
	statsUC   *usecase.GetStats
}

func NewHandlers(publishUC *usecase.PublishEvent, listUC *usecase.ListEvents, statsUC *usecase.GetStats) *Handlers {
	return &Handlers{
		publishUC: publishUC,
		listUC:    listUC,
		statsUC:   statsUC,
	}
}

func (h *Handlers) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var params usecase.PublishEventParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	eventID, err := h.publishUC.Execute(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrMalformed):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, channel.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "channel unavailable")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "queued",
		"event_id": eventID,
	})
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := record.ListFilter{
		Topic: r.URL.Query().Get("topic"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	records, err := h.listUC.Execute(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*record.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.statsUC.Execute(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
