package enrollment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/metrics"
)

// Repair kinds reported by Reconcile.
const (
	RepairRosterAdded   = "roster_added"
	RepairRosterRemoved = "roster_removed"
	RepairDanglingEvent = "dangling_event"
	RepairDanglingUser  = "dangling_user"
)

// Options controls a reconciliation sweep.
type Options struct {
	// DryRun reports the repairs without writing them.
	DryRun bool
}

// Repair is one fix applied (or, in a dry run, proposed) to a pair.
type Repair struct {
	Kind    string `json:"kind"`
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

// Report summarizes a sweep.
type Report struct {
	DryRun        bool           `json:"dry_run"`
	UsersScanned  int            `json:"users_scanned"`
	EventsScanned int            `json:"events_scanned"`
	Repairs       []Repair       `json:"repairs"`
	Counts        map[string]int `json:"counts"`
	Failed        int            `json:"failed"`
}

// Reconciler makes enrollment lists agree. User records are authoritative
// because the user side is always written first: an event roster gains or
// loses a user to match the user's enrolled_events. Ids that point at a
// missing user or event are dropped from the other side.
type Reconciler struct {
	c *Coordinator
}

func NewReconciler(c *Coordinator) *Reconciler {
	return &Reconciler{c: c}
}

type pair struct {
	eventID string
	userID  string
}

// Reconcile scans both collections and repairs every mismatched pair. Each
// repair re-reads the pair under the coordinator's locks, so enrollments that
// land during the sweep are not undone. Errors on individual pairs are
// counted in Report.Failed and the first one is returned after the sweep.
func (r *Reconciler) Reconcile(ctx context.Context, opts Options) (report Report, err error) {
	log := r.c.logger.With().Str("operation", "reconcile").Bool("dry_run", opts.DryRun).Logger()
	started := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.ReconcileRuns.WithLabelValues(outcome).Inc()
	}()

	report = Report{DryRun: opts.DryRun, Repairs: []Repair{}, Counts: map[string]int{}}

	var users, events map[string]docstore.StringList
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = r.scan(gctx, docstore.Users, userListField)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = r.scan(gctx, docstore.Events, eventListField)
		return err
	})
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.UsersScanned = len(users)
	report.EventsScanned = len(events)

	var firstErr error
	for _, p := range candidates(users, events) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		repair, err := r.repair(ctx, p, opts.DryRun)
		if err != nil {
			report.Failed++
			if firstErr == nil {
				firstErr = err
			}
			log.Warn().Err(err).Str("event_id", p.eventID).Str("user_id", p.userID).Msg("repair failed")
			continue
		}
		if repair == nil {
			continue
		}
		report.Repairs = append(report.Repairs, *repair)
		report.Counts[repair.Kind]++
		if !opts.DryRun {
			metrics.ReconcileRepairs.WithLabelValues(repair.Kind).Inc()
		}
	}

	log.Info().
		Int("users", report.UsersScanned).
		Int("events", report.EventsScanned).
		Int("repairs", len(report.Repairs)).
		Int("failed", report.Failed).
		Dur("duration", time.Since(started)).
		Msg("reconciliation finished")
	if firstErr == nil && len(report.Repairs) > 0 && !opts.DryRun {
		r.c.auditLogger.LogSuccess(ctx, "enrollment.reconcile", "system", "enrollment", "", map[string]string{
			"repairs": fmt.Sprint(len(report.Repairs)),
		})
	}
	return report, firstErr
}

// Run reconciles every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Reconcile(ctx, Options{}); err != nil && ctx.Err() == nil {
				r.c.logger.Error().Err(err).Msg("periodic reconciliation failed")
			}
		}
	}
}

// scan returns the list field of every record in collection, keyed by the
// record's store key.
func (r *Reconciler) scan(ctx context.Context, collection, field string) (map[string]docstore.StringList, error) {
	raw, err := r.c.db.Get(ctx, docstore.P(collection))
	if err != nil {
		return nil, err
	}
	children, err := docstore.Children(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	out := make(map[string]docstore.StringList, len(children))
	for key, child := range children {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(child, &fields); err != nil {
			r.c.logger.Warn().Str("collection", collection).Str("key", key).Msg("skipping record that is not an object")
			continue
		}
		rec := &record{fields: fields}
		list, err := rec.list(field)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", collection, key, err)
		}
		out[key] = list
	}
	return out, nil
}

// candidates returns every pair the two sides disagree on, in a stable order.
func candidates(users, events map[string]docstore.StringList) []pair {
	fromUsers := make(map[pair]bool)
	for userID, list := range users {
		for _, eventID := range list {
			fromUsers[pair{eventID: eventID, userID: userID}] = true
		}
	}
	fromEvents := make(map[pair]bool)
	for eventID, list := range events {
		for _, userID := range list {
			fromEvents[pair{eventID: eventID, userID: userID}] = true
		}
	}

	var out []pair
	for p := range fromUsers {
		if !fromEvents[p] {
			out = append(out, p)
		}
	}
	for p := range fromEvents {
		if !fromUsers[p] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].eventID != out[j].eventID {
			return out[i].eventID < out[j].eventID
		}
		return out[i].userID < out[j].userID
	})
	return out
}

// repair re-reads one pair under lock and fixes it. It returns nil when the
// pair no longer needs repair.
func (r *Reconciler) repair(ctx context.Context, p pair, dryRun bool) (*Repair, error) {
	if !docstore.ValidKey(p.eventID) || !docstore.ValidKey(p.userID) {
		return nil, fmt.Errorf("pair %s/%s: %w", p.eventID, p.userID, docstore.ErrInvalidPath)
	}
	c := r.c
	unlock := c.locks.lockPair(p.eventID, p.userID)
	defer unlock()

	userPath, eventPath := docstore.UserPath(p.userID), docstore.EventPath(p.eventID)
	user, err := c.read(ctx, userPath)
	if err != nil {
		return nil, err
	}
	event, err := c.read(ctx, eventPath)
	if err != nil {
		return nil, err
	}
	userHas, err := user.has(userListField, p.eventID)
	if err != nil {
		return nil, err
	}
	eventHas, err := event.has(eventListField, p.userID)
	if err != nil {
		return nil, err
	}

	var (
		kind  string
		write func() (bool, error)
	)
	switch {
	case user == nil && eventHas:
		kind = RepairDanglingUser
		write = func() (bool, error) {
			return c.apply(ctx, "event", eventPath, eventListField, p.userID, false, event)
		}
	case event == nil && userHas:
		kind = RepairDanglingEvent
		write = func() (bool, error) {
			return c.apply(ctx, "user", userPath, userListField, p.eventID, false, user)
		}
	case user != nil && event != nil && userHas && !eventHas:
		kind = RepairRosterAdded
		write = func() (bool, error) {
			return c.apply(ctx, "event", eventPath, eventListField, p.userID, true, event)
		}
	case user != nil && event != nil && !userHas && eventHas:
		kind = RepairRosterRemoved
		write = func() (bool, error) {
			return c.apply(ctx, "event", eventPath, eventListField, p.userID, false, event)
		}
	default:
		return nil, nil
	}

	if !dryRun {
		if _, err := write(); err != nil {
			return nil, err
		}
	}
	return &Repair{Kind: kind, EventID: p.eventID, UserID: p.userID}, nil
}
