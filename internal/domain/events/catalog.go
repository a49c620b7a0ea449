package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

// Catalog reads events from the Events collection, which may be stored as an
// object keyed by id or as an array whose first slot is null.
type Catalog struct {
	db docstore.Store
}

func NewCatalog(db docstore.Store) *Catalog {
	return &Catalog{db: db}
}

// ListEvents returns every event ordered by date ascending. Events with equal
// dates keep their store order. An empty catalog yields an empty slice.
func (c *Catalog) ListEvents(ctx context.Context) ([]Event, error) {
	raw, err := c.db.Get(ctx, docstore.P(docstore.Events))
	if err != nil {
		return nil, err
	}
	children, err := docstore.Children(raw)
	if err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	out := make([]Event, 0, len(children))
	for _, key := range docstore.SortedKeys(children) {
		event, err := decodeEvent(key, children[key])
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Event returns a single event or ErrNotFound.
func (c *Catalog) Event(ctx context.Context, id string) (*Event, error) {
	if !docstore.ValidKey(id) {
		return nil, ErrNotFound
	}
	raw, err := c.db.Get(ctx, docstore.EventPath(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	event, err := decodeEvent(id, raw)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CompanyName returns the host company of an event, or "" when the event or
// the field is missing.
func (c *Catalog) CompanyName(ctx context.Context, id string) (string, error) {
	if !docstore.ValidKey(id) {
		return "", nil
	}
	raw, err := c.db.Get(ctx, docstore.EventPath(id).Child("company_name"))
	if err != nil || raw == nil {
		return "", err
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", nil
	}
	return name, nil
}

// EnrolledEvents returns the event ids on a user's record, empty when the
// user does not exist.
func (c *Catalog) EnrolledEvents(ctx context.Context, userID string) ([]string, error) {
	if !docstore.ValidKey(userID) {
		return []string{}, nil
	}
	raw, err := c.db.Get(ctx, docstore.UserPath(userID).Child("enrolled_events"))
	if err != nil {
		return nil, err
	}
	var ids docstore.StringList
	if raw != nil {
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("decode enrolled events of %q: %w", userID, err)
		}
	}
	if ids == nil {
		return []string{}, nil
	}
	return ids, nil
}

// Provision writes an event record, replacing any existing one. The roster
// in e is written as given.
func (c *Catalog) Provision(ctx context.Context, e Event) error {
	if !docstore.ValidKey(e.ID) {
		return fmt.Errorf("provision event: invalid id %q", e.ID)
	}
	return c.db.Set(ctx, docstore.EventPath(e.ID), e.record())
}
