package enrollment

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/memory"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/storetest"
)

func TestReconcileRepairsEveryMismatch(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	seed(t, db, []string{"bob"}, []string{"2", "3"})
	require.NoError(t, db.Set(ctx, docstore.UserPath("alice"), map[string]any{
		"Password":        "pw",
		"enrolled_events": []string{"1", "2", "gone"},
	}))
	require.NoError(t, db.Set(ctx, docstore.EventPath("1"), map[string]any{
		"name":           "Run",
		"enrolled_users": []string{"bob", "ghost"},
	}))
	// alice→1 roster missing, alice→2 roster missing, alice→gone dangling,
	// bob on 1 without user side, ghost on 1 is a removed account.

	r := NewReconciler(NewCoordinator(db, nil, zerolog.Nop()))

	dry, err := r.Reconcile(ctx, Options{DryRun: true})
	require.NoError(t, err)
	require.True(t, dry.DryRun)
	require.Equal(t, 2, dry.UsersScanned)
	require.Equal(t, 3, dry.EventsScanned)
	require.Equal(t, map[string]int{
		RepairRosterAdded:   2,
		RepairRosterRemoved: 1,
		RepairDanglingEvent: 1,
		RepairDanglingUser:  1,
	}, dry.Counts)
	require.Equal(t, []string{"bob", "ghost"}, eventUsers(t, db, "1"), "dry run writes nothing")

	report, err := r.Reconcile(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, dry.Repairs, report.Repairs)

	require.Equal(t, []string{"1", "2"}, userEvents(t, db, "alice"))
	require.Equal(t, []string{"alice"}, eventUsers(t, db, "1"))
	require.Equal(t, []string{"alice"}, eventUsers(t, db, "2"))
	require.Equal(t, []string{}, userEvents(t, db, "bob"))

	again, err := r.Reconcile(ctx, Options{})
	require.NoError(t, err)
	require.Empty(t, again.Repairs)
}

func TestReconcileCompletesPartialLink(t *testing.T) {
	inner := memory.New()
	seed(t, inner, []string{"alice"}, []string{"1"})
	ctx := context.Background()

	c := NewCoordinator(storetest.FailWrites(inner, docstore.Events), nil, zerolog.Nop())
	result, _ := c.Enroll(ctx, "1", "alice")
	require.Equal(t, StoreUnavailable, result)

	healthy := NewCoordinator(inner, nil, zerolog.Nop())
	_, err := NewReconciler(healthy).Reconcile(ctx, Options{})
	require.NoError(t, err)

	state, err := healthy.State(ctx, "1", "alice")
	require.NoError(t, err)
	require.Equal(t, Linked, state)
}

func TestReconcileAfterRenameMovesRoster(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	seed(t, db, []string{"alice"}, []string{"1"})
	c := NewCoordinator(db, nil, zerolog.Nop())
	require.True(t, c.RegisterEnrollment(ctx, "1", "alice"))

	raw, err := db.Get(ctx, docstore.UserPath("alice"))
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, docstore.UserPath("alicia"), raw))
	require.NoError(t, db.Remove(ctx, docstore.UserPath("alice")))

	report, err := NewReconciler(c).Reconcile(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, map[string]int{RepairRosterAdded: 1, RepairDanglingUser: 1}, report.Counts)
	require.Equal(t, []string{"alicia"}, eventUsers(t, db, "1"))
}

func TestReconcileEmptyStore(t *testing.T) {
	report, err := NewReconciler(NewCoordinator(memory.New(), nil, zerolog.Nop())).Reconcile(context.Background(), Options{})
	require.NoError(t, err)
	require.Zero(t, report.UsersScanned)
	require.Empty(t, report.Repairs)
}

func TestReconcileScanFailure(t *testing.T) {
	c := NewCoordinator(storetest.FailAll(memory.New()), nil, zerolog.Nop())
	_, err := NewReconciler(c).Reconcile(context.Background(), Options{})
	require.ErrorIs(t, err, storetest.ErrInjected)
}
