// Package board owns the capper collection and derives the ranked view
// published after every mutation.
package board

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/internal/domain/units"
	"github.com/okian/recap/pkg/logger"
	"github.com/okian/recap/pkg/metrics"
)

// Renderer consumes every published view. It must not call back into the
// store from Render.
type Renderer interface {
	Render(ctx context.Context, view model.View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, view model.View)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, view model.View) { f(ctx, view) }

type nopRenderer struct{}

func (nopRenderer) Render(context.Context, model.View) {}

// Store is the single owner of the entry collection.
//
// The backing slice is kept in the order of the last published view, so a
// positional target always resolves against what renderers last saw and
// equal units keep their previous relative order.
type Store struct {
	mu       sync.Mutex
	entries  []model.Entry
	pending  map[string]struct{}
	version  uint64
	snapshot atomic.Pointer[model.View]

	renderer Renderer
	log      logger.Logger
	newID    func() string
	strict   bool
}

// NewStore constructs an empty store. Call Initialize to seed it.
func NewStore(opts ...Option) *Store {
	s := &Store{
		pending:  make(map[string]struct{}),
		renderer: nopRenderer{},
		log:      logger.Nop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := ComputeRankedView(nil, nil)
	s.snapshot.Store(&empty)
	return s
}

// Initialize replaces the whole collection and publishes. Entries without an
// identifier get one minted.
func (s *Store) Initialize(ctx context.Context, seed []model.Entry) model.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]model.Entry, 0, len(seed))
	for _, e := range seed {
		if e.ID == "" {
			e.ID = s.newID()
		}
		s.entries = append(s.entries, e)
	}
	s.pending = make(map[string]struct{})
	s.log.Debug(ctx, "board initialized", logger.Int("entries", len(s.entries)))
	return s.publish(ctx)
}

// AddEntry appends an entry with the default content and publishes.
func (s *Store) AddEntry(ctx context.Context) (model.Entry, model.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := model.NewDefaultEntry(s.newID())
	s.entries = append(s.entries, e)
	return e, s.publish(ctx)
}

// DeleteEntry removes the targeted entry and publishes. Pending entries can
// be deleted; this is how their exit delay ends.
func (s *Store) DeleteEntry(ctx context.Context, t model.Target) (model.Entry, model.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.resolve(ctx, t)
	if err != nil {
		return model.Entry{}, s.current(), err
	}
	removed := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.pending, removed.ID)
	return removed, s.publish(ctx), nil
}

// EditField stores raw into the targeted entry and publishes. Units are
// parsed best-effort; name and role are stored verbatim.
func (s *Store) EditField(ctx context.Context, t model.Target, field model.Field, raw string) (model.Entry, model.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.resolve(ctx, t)
	if err != nil {
		return model.Entry{}, s.current(), err
	}
	e := &s.entries[i]
	if _, ok := s.pending[e.ID]; ok {
		return *e, s.current(), fmt.Errorf("%w: %s", ErrPendingRemoval, e.ID)
	}
	switch field {
	case model.FieldName:
		e.Name = raw
	case model.FieldRole:
		e.Role = raw
	case model.FieldUnits:
		e.Units = units.Parse(raw)
	default:
		return *e, s.current(), fmt.Errorf("%w: %q", model.ErrUnknownField, field)
	}
	edited := *e
	return edited, s.publish(ctx), nil
}

// MarkPendingRemoval flags the targeted entry as leaving and publishes. The
// entry stays in the collection and the ranked view. Marking an entry that is
// already pending changes nothing and reports marked=false.
func (s *Store) MarkPendingRemoval(ctx context.Context, t model.Target) (e model.Entry, v model.View, marked bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.resolve(ctx, t)
	if err != nil {
		return model.Entry{}, s.current(), false, err
	}
	e = s.entries[i]
	if _, ok := s.pending[e.ID]; ok {
		return e, s.current(), false, nil
	}
	s.pending[e.ID] = struct{}{}
	return e, s.publish(ctx), true, nil
}

// View returns the last published view.
func (s *Store) View() model.View {
	return *s.snapshot.Load()
}

// Entries returns a copy of the collection in published order.
func (s *Store) Entries() []model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IsPending reports whether id is waiting for removal.
func (s *Store) IsPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// resolve maps a target to a slice position. Must be called with s.mu held.
func (s *Store) resolve(ctx context.Context, t model.Target) (int, error) {
	if t.ByIndex {
		if t.Index < 0 || t.Index >= len(s.entries) {
			metrics.RecordErrorByComponent("board", "invalid_index")
			err := fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidIndex, t.Index, len(s.entries))
			if s.strict {
				panic(err)
			}
			s.log.Warn(ctx, "positional target outside the published view", logger.Int("index", t.Index), logger.Int("len", len(s.entries)))
			return -1, err
		}
		return t.Index, nil
	}
	for i := range s.entries {
		if s.entries[i].ID == t.EntryID {
			return i, nil
		}
	}
	metrics.RecordErrorByComponent("board", "not_found")
	return -1, fmt.Errorf("%w: %s", ErrNotFound, t.EntryID)
}

func (s *Store) current() model.View {
	return *s.snapshot.Load()
}

// publish re-sorts the backing slice in place, derives the view and hands it
// to the renderer before returning. Must be called with s.mu held.
func (s *Store) publish(ctx context.Context) model.View {
	sortByUnits(s.entries)
	view := ComputeRankedView(s.entries, s.pending)
	s.version++
	view.Version = s.version
	s.snapshot.Store(&view)

	metrics.RecordPublish(len(view.Rows), view.Total.InexactFloat64(), len(s.pending))
	s.renderer.Render(ctx, view)
	return view
}

// ComputeRankedView derives the ranked view: units descending, ties in input
// order, two-digit 1-based ranks, top tier for the first three ranks, and an
// exact total. The input is not modified.
func ComputeRankedView(entries []model.Entry, pending map[string]struct{}) model.View {
	sorted := make([]model.Entry, len(entries))
	copy(sorted, entries)
	sortByUnits(sorted)

	rows := make([]model.Row, 0, len(sorted))
	values := make([]decimal.Decimal, 0, len(sorted))
	for i, e := range sorted {
		_, leaving := pending[e.ID]
		rows = append(rows, model.Row{
			Rank:           fmt.Sprintf("%02d", i+1),
			Index:          i,
			ID:             e.ID,
			Name:           e.Name,
			Role:           e.Role,
			Units:          e.Units,
			UnitsDisplay:   units.Format(e.Units),
			TopTier:        i < model.TopTierRanks,
			Nonnegative:    units.IsNonnegative(e.Units),
			PendingRemoval: leaving,
		})
		values = append(values, e.Units)
	}
	total := units.Sum(values...)
	return model.View{
		Rows:          rows,
		Total:         total,
		TotalDisplay:  units.Format(total),
		TotalNegative: units.IsNegative(total),
	}
}

func sortByUnits(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Units.GreaterThan(entries[j].Units)
	})
}
