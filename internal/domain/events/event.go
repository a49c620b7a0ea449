// Package events reads the event catalog. Events are provisioned out of band;
// the only runtime writes to an event record are roster changes made by the
// enrollment package.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

var ErrNotFound = errors.New("event not found")

// Event is the decoded form of Events/{id}.
type Event struct {
	ID               string   `json:"event_id"`
	Name             string   `json:"name"`
	CompanyName      string   `json:"company_name"`
	Date             string   `json:"date"`
	Address          string   `json:"address"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description"`
	EnrolledUsers    []string `json:"enrolled_users"`
}

type eventRecord struct {
	EventID          any                 `json:"event_id,omitempty"`
	Name             string              `json:"name"`
	CompanyName      string              `json:"company_name"`
	Date             string              `json:"date"`
	Address          string              `json:"address"`
	ShortDescription string              `json:"short_description"`
	Description      string              `json:"description"`
	EnrolledUsers    docstore.StringList `json:"enrolled_users,omitempty"`
}

// decodeEvent decodes a record stored under key. The key is the event id;
// a stored event_id never overrides it.
func decodeEvent(key string, raw json.RawMessage) (Event, error) {
	var rec eventRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Event{}, fmt.Errorf("decode event %q: %w", key, err)
	}
	users := []string(rec.EnrolledUsers)
	if users == nil {
		users = []string{}
	}
	return Event{
		ID:               key,
		Name:             rec.Name,
		CompanyName:      rec.CompanyName,
		Date:             rec.Date,
		Address:          rec.Address,
		ShortDescription: rec.ShortDescription,
		Description:      rec.Description,
		EnrolledUsers:    users,
	}, nil
}

func (e Event) record() eventRecord {
	return eventRecord{
		EventID:          e.ID,
		Name:             e.Name,
		CompanyName:      e.CompanyName,
		Date:             e.Date,
		Address:          e.Address,
		ShortDescription: e.ShortDescription,
		Description:      e.Description,
		EnrolledUsers:    docstore.StringList(e.EnrolledUsers),
	}
}
