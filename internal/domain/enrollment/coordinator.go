package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/audit"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/metrics"
)

const (
	userListField  = "enrolled_events"
	eventListField = "enrolled_users"

	// DefaultMaxCASAttempts bounds conditional write retries per side.
	DefaultMaxCASAttempts = 5
)

// Coordinator enrolls and unenrolls users. Calls on the same user or the same
// event are serialized within this process. When the store implements
// docstore.Conditional each side is written with compare-and-swap on the
// whole record; otherwise the list is overwritten and concurrent writers in
// other processes can lose updates.
type Coordinator struct {
	db             docstore.Store
	cond           docstore.Conditional
	locks          *keyedMutex
	maxCASAttempts int
	auditLogger    *audit.Logger
	logger         zerolog.Logger
}

type Option func(*Coordinator)

// WithMaxCASAttempts overrides DefaultMaxCASAttempts.
func WithMaxCASAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxCASAttempts = n
		}
	}
}

// WithoutConditionalWrites forces plain writes even when the store supports
// compare-and-swap.
func WithoutConditionalWrites() Option {
	return func(c *Coordinator) { c.cond = nil }
}

func NewCoordinator(db docstore.Store, auditLogger *audit.Logger, logger zerolog.Logger, opts ...Option) *Coordinator {
	if auditLogger == nil {
		auditLogger = audit.Nop()
	}
	c := &Coordinator{
		db:             db,
		locks:          newKeyedMutex(),
		maxCASAttempts: DefaultMaxCASAttempts,
		auditLogger:    auditLogger,
		logger:         logger.With().Str("component", "enrollment").Logger(),
	}
	if cond, ok := db.(docstore.Conditional); ok {
		c.cond = cond
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enroll links userID and eventID. Enrolling twice is a no-op.
func (c *Coordinator) Enroll(ctx context.Context, eventID, userID string) (Result, error) {
	return c.link(ctx, "enroll", eventID, userID, true)
}

// Unenroll removes the link. Unenrolling an unlinked pair is a no-op that
// still succeeds as long as both records exist.
func (c *Coordinator) Unenroll(ctx context.Context, eventID, userID string) (Result, error) {
	return c.link(ctx, "unenroll", eventID, userID, false)
}

// RegisterEnrollment is Enroll reduced to true on Success. Failures are
// logged and not returned.
func (c *Coordinator) RegisterEnrollment(ctx context.Context, eventID, userID string) bool {
	result, _ := c.Enroll(ctx, eventID, userID)
	return result == Success
}

// WithdrawEnrollment is Unenroll reduced to true on Success.
func (c *Coordinator) WithdrawEnrollment(ctx context.Context, eventID, userID string) bool {
	result, _ := c.Unenroll(ctx, eventID, userID)
	return result == Success
}

// State reports how the pair is linked. Missing records count as not
// listing the other side.
func (c *Coordinator) State(ctx context.Context, eventID, userID string) (LinkState, error) {
	if !docstore.ValidKey(eventID) || !docstore.ValidKey(userID) {
		return Unlinked, nil
	}
	user, err := c.read(ctx, docstore.UserPath(userID))
	if err != nil {
		return Unlinked, err
	}
	event, err := c.read(ctx, docstore.EventPath(eventID))
	if err != nil {
		return Unlinked, err
	}
	userHas, err := user.has(userListField, eventID)
	if err != nil {
		return Unlinked, err
	}
	eventHas, err := event.has(eventListField, userID)
	if err != nil {
		return Unlinked, err
	}
	switch {
	case userHas && eventHas:
		return Linked, nil
	case userHas || eventHas:
		return PartiallyLinked, nil
	default:
		return Unlinked, nil
	}
}

func (c *Coordinator) link(ctx context.Context, action, eventID, userID string, add bool) (result Result, err error) {
	log := c.logger.With().Str("action", action).Str("event_id", eventID).Str("user_id", userID).Logger()
	defer func() {
		metrics.EnrollmentResults.WithLabelValues(action, result.String()).Inc()
		if result == Success {
			c.auditLogger.LogSuccess(ctx, "enrollment."+action, userID, "event", eventID, nil)
			return
		}
		log.Warn().Err(err).Str("result", result.String()).Msg("enrollment change failed")
		c.auditLogger.LogFailure(ctx, "enrollment."+action, userID, "event", eventID, map[string]string{"result": result.String()})
	}()

	if !docstore.ValidKey(userID) {
		return NotFound, ErrUserNotFound
	}
	if !docstore.ValidKey(eventID) {
		return NotFound, ErrEventNotFound
	}

	unlock := c.locks.lockPair(eventID, userID)
	defer unlock()

	userPath, eventPath := docstore.UserPath(userID), docstore.EventPath(eventID)
	user, err := c.read(ctx, userPath)
	if err != nil {
		return classify(err), err
	}
	if user == nil {
		return NotFound, ErrUserNotFound
	}
	event, err := c.read(ctx, eventPath)
	if err != nil {
		return classify(err), err
	}
	if event == nil {
		return NotFound, ErrEventNotFound
	}

	wroteUser, err := c.apply(ctx, "user", userPath, userListField, eventID, add, user)
	if err != nil {
		return classify(err), err
	}
	if _, err := c.apply(ctx, "event", eventPath, eventListField, userID, add, event); err != nil {
		if !wroteUser {
			return classify(err), err
		}
		// The pair is now partially linked, whatever the event side hit.
		result := classify(err)
		if result == NotFound {
			result = StoreUnavailable
		}
		return result, fmt.Errorf("user side written, event side failed: %w", err)
	}
	log.Debug().Msg("enrollment changed")
	return Success, nil
}

func classify(err error) Result {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrEventNotFound):
		return NotFound
	case errors.Is(err, ErrConflict):
		return Conflict
	default:
		return StoreUnavailable
	}
}

// record is a decoded user or event node plus the ETag it was read with.
type record struct {
	fields map[string]json.RawMessage
	etag   string
}

func (r *record) list(field string) (docstore.StringList, error) {
	if r == nil {
		return nil, nil
	}
	raw, ok := r.fields[field]
	if !ok {
		return nil, nil
	}
	var list docstore.StringList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return list, nil
}

func (r *record) has(field, id string) (bool, error) {
	list, err := r.list(field)
	if err != nil {
		return false, err
	}
	return list.Contains(id), nil
}

// read returns nil for an absent node.
func (c *Coordinator) read(ctx context.Context, p docstore.Path) (*record, error) {
	var (
		raw  json.RawMessage
		etag string
		err  error
	)
	if c.cond != nil {
		raw, etag, err = c.cond.GetWithETag(ctx, p)
	} else {
		raw, err = c.db.Get(ctx, p)
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return &record{fields: fields, etag: etag}, nil
}

// apply adds or removes id in rec's list field and writes the change. It
// reports whether anything was written.
func (c *Coordinator) apply(ctx context.Context, side string, p docstore.Path, field, id string, add bool, rec *record) (bool, error) {
	for attempt := 1; ; attempt++ {
		list, err := rec.list(field)
		if err != nil {
			return false, err
		}
		next, changed := edit(list, id, add)
		if !changed {
			return false, nil
		}

		if c.cond == nil {
			if len(next) == 0 {
				return true, c.db.Remove(ctx, p.Child(field))
			}
			return true, c.db.Set(ctx, p.Child(field), []string(next))
		}

		if len(next) == 0 {
			delete(rec.fields, field)
		} else {
			encoded, err := json.Marshal([]string(next))
			if err != nil {
				return false, err
			}
			rec.fields[field] = encoded
		}
		err = c.cond.SetIfMatch(ctx, p, rec.fields, rec.etag)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, docstore.ErrETagMismatch) {
			return false, err
		}

		metrics.EnrollmentCASConflicts.WithLabelValues(side).Inc()
		if attempt >= c.maxCASAttempts {
			return false, fmt.Errorf("%s %s: %w", side, p, ErrConflict)
		}
		rec, err = c.read(ctx, p)
		if err != nil {
			return false, err
		}
		if rec == nil {
			if side == "user" {
				return false, ErrUserNotFound
			}
			return false, ErrEventNotFound
		}
	}
}

func edit(list docstore.StringList, id string, add bool) (docstore.StringList, bool) {
	if add {
		if list.Contains(id) {
			return list, false
		}
		return append(append(docstore.StringList{}, list...), id), true
	}
	if !list.Contains(id) {
		return list, false
	}
	return list.Without(id), true
}
