package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/memory"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/storetest"
)

func dates(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Date
	}
	return out
}

func TestListEventsSortsByDate(t *testing.T) {
	db := memory.New()
	catalog := NewCatalog(db)
	ctx := context.Background()

	for id, date := range map[string]string{"1": "2024-05-01", "2": "2024-01-10", "3": "2024-12-31"} {
		require.NoError(t, catalog.Provision(ctx, Event{ID: id, Name: "Event " + id, Date: date}))
	}

	events, err := catalog.ListEvents(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2024-01-10", "2024-05-01", "2024-12-31"}, dates(events))
	require.Equal(t, "2", events[0].ID)
}

func TestListEventsArrayLayoutWithNullSlot(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, docstore.P(docstore.Events), json.RawMessage(`[
		null,
		{"event_id": 1, "name": "Beach cleanup", "date": "2024-06-01", "company_name": "Blue Sea"},
		{"name": "Food drive", "date": "2024-02-14", "enrolled_users": ["alice"]}
	]`)))

	events, err := NewCatalog(db).ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, Event{ID: "2", Name: "Food drive", Date: "2024-02-14", EnrolledUsers: []string{"alice"}}, events[0])
	require.Equal(t, "1", events[1].ID)
	require.Equal(t, "Blue Sea", events[1].CompanyName)
}

func TestStoredEventIDNeverOverridesKey(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, docstore.P(docstore.Events, "3"),
		json.RawMessage(`{"event_id": 9, "name": "Park picnic", "date": "2024-07-07"}`)))
	require.NoError(t, db.Set(ctx, docstore.P(docstore.Events, "4"),
		json.RawMessage(`{"event_id": "3", "name": "Toy drive", "date": "2024-08-08"}`)))

	catalog := NewCatalog(db)
	events, err := catalog.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "3", events[0].ID)
	require.Equal(t, "Park picnic", events[0].Name)
	require.Equal(t, "4", events[1].ID)
	require.Equal(t, "Toy drive", events[1].Name)

	event, err := catalog.Event(ctx, "4")
	require.NoError(t, err)
	require.Equal(t, "4", event.ID)
	_, err = catalog.Event(ctx, "9")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListEventsEqualDatesKeepStoreOrder(t *testing.T) {
	db := memory.New()
	catalog := NewCatalog(db)
	ctx := context.Background()
	for _, id := range []string{"10", "2", "7"} {
		require.NoError(t, catalog.Provision(ctx, Event{ID: id, Date: "2024-03-03"}))
	}

	events, err := catalog.ListEvents(ctx)
	require.NoError(t, err)
	ids := []string{events[0].ID, events[1].ID, events[2].ID}
	require.Equal(t, []string{"2", "7", "10"}, ids)
}

func TestListEventsEmptyCatalog(t *testing.T) {
	events, err := NewCatalog(memory.New()).ListEvents(context.Background())
	require.NoError(t, err)
	require.NotNil(t, events)
	require.Empty(t, events)
}

func TestEvent(t *testing.T) {
	db := memory.New()
	catalog := NewCatalog(db)
	ctx := context.Background()
	require.NoError(t, catalog.Provision(ctx, Event{ID: "5", Name: "Charity run", Date: "2024-09-09"}))

	event, err := catalog.Event(ctx, "5")
	require.NoError(t, err)
	require.Equal(t, "Charity run", event.Name)
	require.Equal(t, []string{}, event.EnrolledUsers)

	_, err = catalog.Event(ctx, "6")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = catalog.Event(ctx, "bad/id")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompanyName(t *testing.T) {
	db := memory.New()
	catalog := NewCatalog(db)
	ctx := context.Background()
	require.NoError(t, catalog.Provision(ctx, Event{ID: "1", CompanyName: "Helping Hands"}))
	require.NoError(t, db.Set(ctx, docstore.EventPath("2"), map[string]any{"name": "No host"}))

	for id, want := range map[string]string{"1": "Helping Hands", "2": "", "missing": ""} {
		name, err := catalog.CompanyName(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, name, id)
	}
}

func TestEnrolledEvents(t *testing.T) {
	db := memory.New()
	catalog := NewCatalog(db)
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, docstore.UserPath("alice"), map[string]any{
		"Password": "pw", "enrolled_events": []string{"1", "3"},
	}))
	require.NoError(t, db.Set(ctx, docstore.UserPath("bob"), map[string]any{"Password": "pw"}))

	ids, err := catalog.EnrolledEvents(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "3"}, ids)

	for _, user := range []string{"bob", "ghost"} {
		ids, err := catalog.EnrolledEvents(ctx, user)
		require.NoError(t, err)
		require.Equal(t, []string{}, ids, user)
	}
}

func TestCatalogPropagatesStoreFailures(t *testing.T) {
	catalog := NewCatalog(storetest.FailAll(memory.New()))
	ctx := context.Background()
	var se *docstore.StoreError

	_, err := catalog.ListEvents(ctx)
	require.ErrorAs(t, err, &se)
	_, err = catalog.Event(ctx, "1")
	require.ErrorAs(t, err, &se)
	_, err = catalog.CompanyName(ctx, "1")
	require.ErrorAs(t, err, &se)
	_, err = catalog.EnrolledEvents(ctx, "alice")
	require.ErrorAs(t, err, &se)
}

func TestProvisionRejectsInvalidID(t *testing.T) {
	require.Error(t, NewCatalog(memory.New()).Provision(context.Background(), Event{ID: ""}))
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"2024-05-01":           "2024-05-01",
		" 2024-05-01 ":         "2024-05-01",
		"2024-05-01T18:30:00Z": "2024-05-01",
		"12 March 2025":        "2025-03-12",
		"March 12, 2025":       "2025-03-12",
	}
	for in, want := range tests {
		got, err := NormalizeDate(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := NormalizeDate("   ")
	require.Error(t, err)
}
