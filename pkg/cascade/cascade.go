package cascade

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-farmform/pkg/i18n"
	"github.com/goliatone/go-farmform/pkg/model"
)

// Loader fetches the options of each tier.
type Loader interface {
	Pens(ctx context.Context, fieldID string) ([]model.Pen, error)
	TypeOfObjects(ctx context.Context, penID int) ([]model.TypeOfObject, error)
	Variables(ctx context.Context, penID, typeOfObjectID int) ([]model.PenVariable, error)
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithLocalizer sets the localizer used by Placeholder.
func WithLocalizer(loc *i18n.Localizer) Option {
	return func(c *Cascade) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cascade) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPens preloads the pen options so SelectPen can check membership without
// calling LoadPens.
func WithPens(pens []model.Pen) Option {
	return func(c *Cascade) {
		c.pens = append([]model.Pen(nil), pens...)
		c.tiers[TierPen].loaded = true
	}
}

type tierState struct {
	gen     uint64
	loading bool
	loaded  bool
	err     error
}

// Cascade is the selection state of one measurement screen. Methods are safe
// for concurrent use; the lock is released while fetching.
type Cascade struct {
	mu     sync.Mutex
	loader Loader
	loc    *i18n.Localizer
	logger *zap.Logger

	state       State
	fieldID     string
	penID       int
	objectID    int
	variableIDs []int

	pens      []model.Pen
	objects   []model.TypeOfObject
	variables []model.PenVariable
	tiers     [tierCount]tierState

	base   context.Context
	cancel context.CancelFunc
	closed bool
}

// New builds a cascade over loader.
func New(loader Loader, opts ...Option) *Cascade {
	base, cancel := context.WithCancel(context.Background())
	c := &Cascade{
		loader: loader,
		logger: zap.NewNop(),
		base:   base,
		cancel: cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.loc == nil {
		c.loc = i18n.DefaultLocalizer(i18n.DefaultLocale)
	}
	return c
}

// LoadPens fetches the pens of a field and resets the cascade to PenUnset.
func (c *Cascade) LoadPens(ctx context.Context, fieldID string) ([]model.Pen, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.fieldID = fieldID
	c.state = PenUnset
	c.penID, c.objectID, c.variableIDs = 0, 0, nil
	c.resetTierLocked(TierTypeOfObject)
	c.resetTierLocked(TierVariable)
	gen := c.beginFetchLocked(TierPen)
	c.pens = nil
	c.mu.Unlock()

	pens, err := fetch(ctx, c.base, func(ctx context.Context) ([]model.Pen, error) {
		return c.loader.Pens(ctx, fieldID)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(TierPen, gen) {
		c.logger.Debug("cascade: dropping stale pens", zap.String("field", fieldID))
		return nil, ErrSuperseded
	}
	if c.finishFetchLocked(TierPen, err) {
		return nil, err
	}
	c.pens = pens
	return clonePens(pens), nil
}

// SelectPen moves to PenSet, clears the object and variable selection and
// fetches the type-of-object options of the pen. Selecting the pen that is
// already selected keeps its loaded (or loading) options without refetching;
// a tier whose last fetch failed is fetched again.
func (c *Cascade) SelectPen(ctx context.Context, penID int) ([]model.TypeOfObject, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.tiers[TierPen].loaded && !c.penOfferedLocked(penID) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: pen %d", ErrNotOffered, penID)
	}

	samePen := c.state >= PenSet && c.penID == penID
	c.state = PenSet
	c.penID = penID
	c.objectID, c.variableIDs = 0, nil
	c.resetTierLocked(TierVariable)

	objTier := c.tiers[TierTypeOfObject]
	if samePen && (objTier.loading || (objTier.loaded && objTier.err == nil)) {
		objects := cloneObjects(c.objects)
		c.mu.Unlock()
		return objects, nil
	}
	gen := c.beginFetchLocked(TierTypeOfObject)
	c.objects = nil
	c.mu.Unlock()

	objects, err := fetch(ctx, c.base, func(ctx context.Context) ([]model.TypeOfObject, error) {
		return c.loader.TypeOfObjects(ctx, penID)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(TierTypeOfObject, gen) {
		c.logger.Debug("cascade: dropping stale type-of-objects", zap.Int("pen", penID))
		return nil, ErrSuperseded
	}
	if c.finishFetchLocked(TierTypeOfObject, err) {
		c.logger.Warn("cascade: type-of-object fetch failed", zap.Int("pen", penID), zap.Error(err))
		return nil, err
	}
	c.objects = objects
	return cloneObjects(objects), nil
}

// SelectTypeOfObject moves to ObjectSet, clears the variable selection and
// fetches the pen variables for (pen, object).
func (c *Cascade) SelectTypeOfObject(ctx context.Context, typeOfObjectID int) ([]model.PenVariable, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if objTier := c.tiers[TierTypeOfObject]; c.state < PenSet || !objTier.loaded || objTier.err != nil {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	if !c.objectOfferedLocked(typeOfObjectID) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: type of object %d", ErrNotOffered, typeOfObjectID)
	}

	sameObject := c.state >= ObjectSet && c.objectID == typeOfObjectID
	penID := c.penID
	c.state = ObjectSet
	c.objectID = typeOfObjectID
	c.variableIDs = nil

	varTier := c.tiers[TierVariable]
	if sameObject && (varTier.loading || (varTier.loaded && varTier.err == nil)) {
		variables := cloneVariables(c.variables)
		c.mu.Unlock()
		return variables, nil
	}
	gen := c.beginFetchLocked(TierVariable)
	c.variables = nil
	c.mu.Unlock()

	variables, err := fetch(ctx, c.base, func(ctx context.Context) ([]model.PenVariable, error) {
		return c.loader.Variables(ctx, penID, typeOfObjectID)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(TierVariable, gen) {
		c.logger.Debug("cascade: dropping stale variables",
			zap.Int("pen", penID), zap.Int("type_of_object", typeOfObjectID))
		return nil, ErrSuperseded
	}
	if c.finishFetchLocked(TierVariable, err) {
		c.logger.Warn("cascade: variable fetch failed",
			zap.Int("pen", penID), zap.Int("type_of_object", typeOfObjectID), zap.Error(err))
		return nil, err
	}
	c.variables = variables
	return cloneVariables(variables), nil
}

// SelectVariables moves to VariablesSet with a non-empty subset of the offered
// variables. Duplicate ids are collapsed.
func (c *Cascade) SelectVariables(variableIDs []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if varTier := c.tiers[TierVariable]; c.state < ObjectSet || !varTier.loaded || varTier.err != nil {
		return ErrNotReady
	}
	if len(variableIDs) == 0 {
		return ErrEmptySelection
	}
	seen := make(map[int]struct{}, len(variableIDs))
	ids := make([]int, 0, len(variableIDs))
	for _, id := range variableIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		if _, ok := c.penVariableLocked(id); !ok {
			return fmt.Errorf("%w: variable %d", ErrNotOffered, id)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	c.variableIDs = ids
	c.state = VariablesSet
	return nil
}

// Submit returns the completed selection and the selected pen variables.
func (c *Cascade) Submit() (model.Selection, []model.PenVariable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != VariablesSet {
		return model.Selection{}, nil, ErrNotReady
	}
	selected := make([]model.PenVariable, 0, len(c.variableIDs))
	for _, id := range c.variableIDs {
		pv, _ := c.penVariableLocked(id)
		selected = append(selected, pv)
	}
	return c.selectionLocked(), selected, nil
}

// State reports the current lifecycle state.
func (c *Cascade) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selection reports the current (possibly partial) selection.
func (c *Cascade) Selection() model.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionLocked()
}

// Pens returns the loaded pen options.
func (c *Cascade) Pens() []model.Pen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clonePens(c.pens)
}

// TypeOfObjects returns the loaded type-of-object options.
func (c *Cascade) TypeOfObjects() []model.TypeOfObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneObjects(c.objects)
}

// Variables returns the loaded pen variable options.
func (c *Cascade) Variables() []model.PenVariable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneVariables(c.variables)
}

// Loading reports whether a fetch for tier is in flight.
func (c *Cascade) Loading(t Tier) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < 0 || t >= tierCount {
		return false
	}
	return c.tiers[t].loading
}

// Err returns the last fetch error of tier.
func (c *Cascade) Err(t Tier) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < 0 || t >= tierCount {
		return nil
	}
	return c.tiers[t].err
}

// Placeholder returns the inline message shown in place of the tier options:
// a loading notice while fetching, a "no options" notice when the fetch
// produced nothing (or failed), and "" otherwise.
func (c *Cascade) Placeholder(t Tier) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < 0 || t >= tierCount {
		return ""
	}
	ts := c.tiers[t]
	switch {
	case ts.loading:
		return c.loc.T(MsgLoading)
	case ts.err != nil || (ts.loaded && c.optionCountLocked(t) == 0):
		return c.loc.T(emptyMessage(t))
	default:
		return ""
	}
}

// Close cancels in-flight fetches; their results are discarded.
func (c *Cascade) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for t := range c.tiers {
		c.tiers[t].gen++
		c.tiers[t].loading = false
	}
	c.cancel()
}

func (c *Cascade) selectionLocked() model.Selection {
	return model.Selection{
		PenID:          c.penID,
		TypeOfObjectID: c.objectID,
		VariableIDs:    append([]int(nil), c.variableIDs...),
	}
}

func (c *Cascade) beginFetchLocked(t Tier) uint64 {
	c.tiers[t].gen++
	c.tiers[t].loading = true
	c.tiers[t].loaded = false
	c.tiers[t].err = nil
	return c.tiers[t].gen
}

func (c *Cascade) currentLocked(t Tier, gen uint64) bool {
	return !c.closed && c.tiers[t].gen == gen
}

// finishFetchLocked records the outcome and reports whether it failed.
func (c *Cascade) finishFetchLocked(t Tier, err error) bool {
	c.tiers[t].loading = false
	c.tiers[t].loaded = true
	c.tiers[t].err = err
	return err != nil
}

func (c *Cascade) resetTierLocked(t Tier) {
	c.tiers[t].gen++
	c.tiers[t].loading = false
	c.tiers[t].loaded = false
	c.tiers[t].err = nil
	switch t {
	case TierPen:
		c.pens = nil
	case TierTypeOfObject:
		c.objects = nil
	case TierVariable:
		c.variables = nil
	}
}

func (c *Cascade) optionCountLocked(t Tier) int {
	switch t {
	case TierPen:
		return len(c.pens)
	case TierTypeOfObject:
		return len(c.objects)
	default:
		return len(c.variables)
	}
}

func (c *Cascade) penOfferedLocked(id int) bool {
	for _, pen := range c.pens {
		if pen.ID == id {
			return true
		}
	}
	return false
}

func (c *Cascade) objectOfferedLocked(id int) bool {
	for _, obj := range c.objects {
		if obj.ID == id {
			return true
		}
	}
	return false
}

func (c *Cascade) penVariableLocked(variableID int) (model.PenVariable, bool) {
	for _, pv := range c.variables {
		if pv.VariableID == variableID {
			return pv, true
		}
	}
	return model.PenVariable{}, false
}

// fetch runs fn with a context cancelled by either ctx or base.
func fetch[T any](ctx, base context.Context, fn func(context.Context) (T, error)) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(base, cancel)
	defer stop()
	return fn(fetchCtx)
}

func clonePens(in []model.Pen) []model.Pen {
	return append([]model.Pen(nil), in...)
}

func cloneObjects(in []model.TypeOfObject) []model.TypeOfObject {
	return append([]model.TypeOfObject(nil), in...)
}

func cloneVariables(in []model.PenVariable) []model.PenVariable {
	return append([]model.PenVariable(nil), in...)
}
