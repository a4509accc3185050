package collection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/metrics"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
	"github.com/roach88/mallstore/internal/views"
)

// maxRetryBackoff caps the pause between Add attempts that lost a race.
const maxRetryBackoff = 20 * time.Millisecond

// retryBackoff grows by a millisecond per lost race up to maxRetryBackoff.
func retryBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Millisecond
	if d > maxRetryBackoff {
		return maxRetryBackoff
	}
	return d
}

// IDGenerator produces client-side entry identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Clock supplies audit timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Mutator applies collection mutations.
type Mutator struct {
	gw    gateway.Gateway
	coord *views.Coordinator
	ids   IDGenerator
	clock Clock
	log   logrus.FieldLogger
}

// Option configures a Mutator.
type Option func(*Mutator)

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(m *Mutator) { m.ids = ids }
}

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(m *Mutator) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Mutator) { m.log = log }
}

// NewMutator creates a mutator writing through gw and invalidating
// through coord.
func NewMutator(gw gateway.Gateway, coord *views.Coordinator, opts ...Option) *Mutator {
	m := &Mutator{
		gw:    gw,
		coord: coord,
		ids:   UUIDGenerator{},
		clock: systemClock{},
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add inserts itemKey into the owner's collection, or merges payload into
// the existing entry. Cart merges sum quantities; a wishlist already
// holding the item fails with Conflict.
//
// A cart add that loses a race to a concurrent add re-reads and tries
// again until it lands or ctx ends, so concurrent adds of one item all
// succeed. When ctx ends first the add fails with RemoteFailure wrapping
// ctx.Err() and nothing is written.
func (m *Mutator) Add(ctx context.Context, c model.CollectionType, ownerID, itemKey string, p model.Payload) (model.Entry, error) {
	itemKey = model.NormalizeKey(itemKey)
	if err := validate(c, ownerID); err != nil {
		return model.Entry{}, err
	}
	if itemKey == "" {
		return model.Entry{}, model.NewValidationError("item key is required")
	}
	if c.HasQuantity() && p.Quantity < 1 {
		return model.Entry{}, model.NewValidationError("quantity must be at least 1")
	}

	log := m.log.WithFields(logrus.Fields{"collection": c, "owner": ownerID, "item": itemKey})

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return m.fail(c, views.OpAdd, model.NewRemoteFailure("add entry", err))
		}

		existing, err := m.find(ctx, c, ownerID, itemKey)
		if err != nil {
			return m.fail(c, views.OpAdd, model.NewRemoteFailure("look up entry", err))
		}

		if existing != nil {
			if !c.HasQuantity() {
				return m.fail(c, views.OpAdd, model.NewConflictError(c, ownerID, itemKey, nil))
			}

			entry, merged, err := m.merge(ctx, c, *existing, p)
			if err != nil {
				return m.fail(c, views.OpAdd, model.NewRemoteFailure("merge entry", err))
			}
			if merged {
				log.WithField("entry", entry.ID).Debug("entry merged")
				return m.succeed(ctx, c, views.OpAdd, entry), nil
			}
			log.WithField("attempt", attempt).Debug("merge lost a race, retrying")
		} else {
			entry, err := m.insert(ctx, c, ownerID, itemKey, p)
			if err == nil {
				log.WithField("entry", entry.ID).Debug("entry added")
				return m.succeed(ctx, c, views.OpAdd, entry), nil
			}
			if !gateway.IsUniqueViolation(err) {
				return m.fail(c, views.OpAdd, model.NewRemoteFailure("insert entry", err))
			}
			if !c.HasQuantity() {
				return m.fail(c, views.OpAdd, model.NewConflictError(c, ownerID, itemKey, err))
			}
			log.WithField("attempt", attempt).Debug("insert hit an existing entry, retrying as merge")
		}
		metrics.RecordMergeRetry(string(c))

		select {
		case <-ctx.Done():
			return m.fail(c, views.OpAdd, model.NewRemoteFailure("add entry", ctx.Err()))
		case <-time.After(retryBackoff(attempt)):
		}
	}
}

// Update rewrites an entry the owner holds. Cart entries take the new
// quantity; wishlist entries only refresh their audit fields.
func (m *Mutator) Update(ctx context.Context, c model.CollectionType, ownerID, entryID string, p model.Payload) (model.Entry, error) {
	if err := validate(c, ownerID); err != nil {
		return model.Entry{}, err
	}
	if entryID == "" {
		return model.Entry{}, model.NewValidationError("entry id is required")
	}
	if c.HasQuantity() && p.Quantity < 1 {
		return model.Entry{}, model.NewValidationError("quantity must be at least 1")
	}

	set := map[string]any{
		"actor":      p.Actor,
		"action":     model.ActionUpdated,
		"updated_at": m.clock.Now(),
	}
	if c.HasQuantity() {
		set["quantity"] = p.Quantity
	}

	rows, err := m.gw.Update(ctx, query.Update{
		Table:  c.Table(),
		Set:    set,
		Filter: query.AllOf(query.Eq("id", entryID), query.Eq("owner_id", ownerID)),
	})
	if err != nil {
		return m.fail(c, views.OpUpdate, model.NewRemoteFailure("update entry", err))
	}
	if len(rows) == 0 {
		return m.fail(c, views.OpUpdate, model.NewNotFoundError(c, ownerID, entryID))
	}

	entry, err := entryFromRow(c, rows[0])
	if err != nil {
		return m.fail(c, views.OpUpdate, model.NewRemoteFailure("update entry", err))
	}

	m.log.WithFields(logrus.Fields{"collection": c, "owner": ownerID, "entry": entryID}).Debug("entry updated")
	return m.succeed(ctx, c, views.OpUpdate, entry), nil
}

// Remove deletes the entry selected by target from the owner's collection.
func (m *Mutator) Remove(ctx context.Context, c model.CollectionType, ownerID string, target model.Target) error {
	if err := validate(c, ownerID); err != nil {
		return err
	}
	target.ItemKey = model.NormalizeKey(target.ItemKey)
	if err := target.Validate(); err != nil {
		return err
	}

	selector, key := query.Eq("id", target.EntryID), target.EntryID
	if target.ItemKey != "" {
		selector, key = query.Eq("item_key", target.ItemKey), target.ItemKey
	}

	rows, err := m.gw.Delete(ctx, query.Delete{
		From:   c.Table(),
		Filter: query.AllOf(selector, query.Eq("owner_id", ownerID)),
	})
	if err != nil {
		_, err = m.fail(c, views.OpRemove, model.NewRemoteFailure("remove entry", err))
		return err
	}
	if len(rows) == 0 {
		_, err = m.fail(c, views.OpRemove, model.NewNotFoundError(c, ownerID, key))
		return err
	}

	entry, err := entryFromRow(c, rows[0])
	if err != nil {
		// The row is gone either way; fall back to what the caller named.
		entry = model.Entry{ID: target.EntryID, OwnerID: ownerID, ItemKey: target.ItemKey}
	}

	m.log.WithFields(logrus.Fields{"collection": c, "owner": ownerID, "entry": entry.ID}).Debug("entry removed")
	m.succeed(ctx, c, views.OpRemove, entry)
	return nil
}

// List returns the owner's entries, oldest change first.
func (m *Mutator) List(ctx context.Context, c model.CollectionType, ownerID string) ([]model.Entry, error) {
	if err := validate(c, ownerID); err != nil {
		return nil, err
	}

	rows, err := m.gw.Select(ctx, query.Select{
		From:    c.Table(),
		Filter:  query.Eq("owner_id", ownerID),
		OrderBy: []query.Order{query.Asc("updated_at")},
	})
	if err != nil {
		return nil, model.NewRemoteFailure("list entries", err)
	}

	entries, err := entriesFromRows(c, rows)
	if err != nil {
		return nil, model.NewRemoteFailure("list entries", err)
	}
	return entries, nil
}

// Contains reports whether the owner's collection holds itemKey. A missing
// entry is false, not an error.
func (m *Mutator) Contains(ctx context.Context, c model.CollectionType, ownerID, itemKey string) (bool, error) {
	if err := validate(c, ownerID); err != nil {
		return false, err
	}
	itemKey = model.NormalizeKey(itemKey)
	if itemKey == "" {
		return false, nil
	}

	found, err := m.find(ctx, c, ownerID, itemKey)
	if err != nil {
		return false, model.NewRemoteFailure("check membership", err)
	}
	return found != nil, nil
}

// find returns the owner's entry for itemKey, or nil.
func (m *Mutator) find(ctx context.Context, c model.CollectionType, ownerID, itemKey string) (*model.Entry, error) {
	rows, err := m.gw.Select(ctx, query.Select{
		From:   c.Table(),
		Filter: query.AllOf(query.Eq("owner_id", ownerID), query.Eq("item_key", itemKey)),
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	e, err := entryFromRow(c, rows[0])
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// merge adds p.Quantity to existing if its stored quantity is still the one
// that was read. merged is false when the row changed or vanished.
func (m *Mutator) merge(ctx context.Context, c model.CollectionType, existing model.Entry, p model.Payload) (model.Entry, bool, error) {
	rows, err := m.gw.Update(ctx, query.Update{
		Table: c.Table(),
		Set: map[string]any{
			"quantity":   existing.Quantity + p.Quantity,
			"actor":      p.Actor,
			"action":     model.ActionMerged,
			"updated_at": m.clock.Now(),
		},
		Filter: query.AllOf(
			query.Eq("id", existing.ID),
			query.Eq("owner_id", existing.OwnerID),
			query.Eq("quantity", existing.Quantity),
		),
	})
	if err != nil {
		return model.Entry{}, false, err
	}
	if len(rows) == 0 {
		return model.Entry{}, false, nil
	}
	entry, err := entryFromRow(c, rows[0])
	if err != nil {
		return model.Entry{}, false, err
	}
	return entry, true, nil
}

func (m *Mutator) insert(ctx context.Context, c model.CollectionType, ownerID, itemKey string, p model.Payload) (model.Entry, error) {
	row := map[string]any{
		"id":         m.ids.NewID(),
		"owner_id":   ownerID,
		"item_key":   itemKey,
		"actor":      p.Actor,
		"action":     model.ActionAdded,
		"updated_at": m.clock.Now(),
	}
	if c.HasQuantity() {
		row["quantity"] = p.Quantity
	}

	stored, err := m.gw.Insert(ctx, query.Insert{Into: c.Table(), Row: row})
	if err != nil {
		return model.Entry{}, err
	}
	return entryFromRow(c, stored)
}

// succeed records the mutation and invalidates dependent views.
func (m *Mutator) succeed(ctx context.Context, c model.CollectionType, op string, e model.Entry) model.Entry {
	metrics.RecordMutation(string(c), op, "ok")
	m.coord.Invalidate(ctx, views.MutationKind(c, op), views.Params{Owner: e.OwnerID, Item: e.ItemKey})
	return e
}

// fail records a failed mutation. Views are left untouched.
func (m *Mutator) fail(c model.CollectionType, op string, err *model.Error) (model.Entry, error) {
	metrics.RecordMutation(string(c), op, string(err.Code))
	return model.Entry{}, err
}

func validate(c model.CollectionType, ownerID string) error {
	if c.Table() == "" {
		return model.NewValidationError("unknown collection " + string(c))
	}
	if ownerID == "" {
		return model.NewAuthenticationRequiredError()
	}
	return nil
}
