package handlers

import (
	"errors"
	"net/http"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/pagination"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/problem"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/events"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/sanitize"
)

type EventsHandler struct {
	Catalog *events.Catalog
	Env     string
}

func NewEventsHandler(catalog *events.Catalog, env string) *EventsHandler {
	return &EventsHandler{Catalog: catalog, Env: env}
}

// eventResponse carries sanitized text. Rosters stay private; only their
// size is published.
type eventResponse struct {
	ID               string `json:"event_id"`
	Name             string `json:"name"`
	CompanyName      string `json:"company_name"`
	Date             string `json:"date"`
	Address          string `json:"address"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	EnrolledCount    int    `json:"enrolled_count"`
}

type listResponse struct {
	Items      []eventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type companyResponse struct {
	EventID     string `json:"event_id"`
	CompanyName string `json:"company_name"`
}

func toEventResponse(e events.Event) eventResponse {
	return eventResponse{
		ID:               e.ID,
		Name:             sanitize.Text(e.Name),
		CompanyName:      sanitize.Text(e.CompanyName),
		Date:             e.Date,
		Address:          sanitize.Text(e.Address),
		ShortDescription: sanitize.Text(e.ShortDescription),
		Description:      sanitize.HTML(e.Description),
		EnrolledCount:    len(e.EnrolledUsers),
	}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := pagination.ParseLimit(query)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	var after *pagination.EventCursor
	if raw := query.Get("after"); raw != "" {
		cursor, err := pagination.DecodeEventCursor(raw)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
			return
		}
		after = &cursor
	}

	all, err := h.Catalog.ListEvents(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	page := all[startIndex(all, after):]
	next := ""
	if len(page) > limit {
		page = page[:limit]
		last := page[len(page)-1]
		next = pagination.EncodeEventCursor(last.Date, last.ID)
	}

	items := make([]eventResponse, 0, len(page))
	for _, e := range page {
		items = append(items, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, NextCursor: next})
}

// startIndex finds where the page after cursor begins. If the cursor's event
// has since been removed, the page resumes at the first later date.
func startIndex(all []events.Event, cursor *pagination.EventCursor) int {
	if cursor == nil {
		return 0
	}
	for i, e := range all {
		if e.ID == cursor.EventID && e.Date == cursor.Date {
			return i + 1
		}
	}
	for i, e := range all {
		if e.Date > cursor.Date {
			return i
		}
	}
	return len(all)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.Catalog.Event(r.Context(), pathParam(r, "id"))
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
			return
		}
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(*event))
}

// Company returns the host company name; a missing event or field yields an
// empty name rather than 404.
func (h *EventsHandler) Company(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	name, err := h.Catalog.CompanyName(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse{EventID: id, CompanyName: sanitize.Text(name)})
}
