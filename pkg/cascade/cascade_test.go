package cascade_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-farmform/pkg/cascade"
	"github.com/goliatone/go-farmform/pkg/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLoader struct {
	mu          sync.Mutex
	objects     map[int][]model.TypeOfObject
	variables   map[[2]int][]model.PenVariable
	objectErr   error
	gates       map[int]chan struct{}
	started     chan int
	objectCalls map[int]int
	varCalls    int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		objects: map[int][]model.TypeOfObject{
			1: {{ID: 2, Name: "Vaca"}, {ID: 4, Name: "Ternero"}},
			3: {{ID: 7, Name: "Cerdo"}},
		},
		variables: map[[2]int][]model.PenVariable{
			{1, 2}: {
				{ID: 50, PenID: 1, VariableID: 5, TypeOfObjectID: 2, Variable: model.Variable{ID: 5, Name: "Peso"}},
				{ID: 60, PenID: 1, VariableID: 6, TypeOfObjectID: 2, Variable: model.Variable{ID: 6, Name: "Color"}},
			},
			{3, 7}: {},
		},
		gates:       map[int]chan struct{}{},
		objectCalls: map[int]int{},
	}
}

func (l *fakeLoader) Pens(context.Context, string) ([]model.Pen, error) {
	return []model.Pen{{ID: 1, Name: "Norte"}, {ID: 3, Name: "Sur"}}, nil
}

func (l *fakeLoader) TypeOfObjects(ctx context.Context, penID int) ([]model.TypeOfObject, error) {
	l.mu.Lock()
	l.objectCalls[penID]++
	gate := l.gates[penID]
	started := l.started
	err := l.objectErr
	l.mu.Unlock()

	if started != nil {
		started <- penID
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return l.objects[penID], nil
}

func (l *fakeLoader) Variables(_ context.Context, penID, objectID int) ([]model.PenVariable, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.varCalls++
	return l.variables[[2]int{penID, objectID}], nil
}

func (l *fakeLoader) calls(penID int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.objectCalls[penID]
}

func reachVariablesSet(t *testing.T, c *cascade.Cascade) {
	t.Helper()
	ctx := context.Background()
	if _, err := c.LoadPens(ctx, "field-1"); err != nil {
		t.Fatalf("load pens: %v", err)
	}
	if _, err := c.SelectPen(ctx, 1); err != nil {
		t.Fatalf("select pen: %v", err)
	}
	if _, err := c.SelectTypeOfObject(ctx, 2); err != nil {
		t.Fatalf("select object: %v", err)
	}
	if err := c.SelectVariables([]int{5, 6}); err != nil {
		t.Fatalf("select variables: %v", err)
	}
}

func TestCascade_HappyPathSubmit(t *testing.T) {
	c := cascade.New(newFakeLoader())
	defer c.Close()
	reachVariablesSet(t, c)

	if c.State() != cascade.VariablesSet {
		t.Fatalf("expected VariablesSet, got %s", c.State())
	}
	selection, selected, err := c.Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := model.Selection{PenID: 1, TypeOfObjectID: 2, VariableIDs: []int{5, 6}}
	if diff := cmp.Diff(want, selection); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
	if len(selected) != 2 || selected[0].ID != 50 || selected[1].ID != 60 {
		t.Fatalf("unexpected pen variables %#v", selected)
	}
}

func TestCascade_SelectPenTwiceIsIdempotent(t *testing.T) {
	loader := newFakeLoader()
	c := cascade.New(loader)
	defer c.Close()
	ctx := context.Background()

	first, err := c.SelectPen(ctx, 1)
	if err != nil {
		t.Fatalf("select pen: %v", err)
	}
	second, err := c.SelectPen(ctx, 1)
	if err != nil {
		t.Fatalf("select pen again: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("options changed (-first +second):\n%s", diff)
	}
	if loader.calls(1) != 1 {
		t.Fatalf("expected a single fetch, got %d", loader.calls(1))
	}
	sel := c.Selection()
	if sel.TypeOfObjectID != 0 || sel.VariableIDs != nil {
		t.Fatalf("expected lower tiers unset, got %#v", sel)
	}
	if c.State() != cascade.PenSet {
		t.Fatalf("expected PenSet, got %s", c.State())
	}
}

func TestCascade_ReselectingPenResetsLowerTiers(t *testing.T) {
	loader := newFakeLoader()
	c := cascade.New(loader)
	defer c.Close()
	reachVariablesSet(t, c)

	if _, err := c.SelectPen(context.Background(), 1); err != nil {
		t.Fatalf("select pen: %v", err)
	}
	if c.State() != cascade.PenSet {
		t.Fatalf("expected PenSet, got %s", c.State())
	}
	if got := c.Variables(); len(got) != 0 {
		t.Fatalf("expected variable options cleared, got %#v", got)
	}
	if loader.calls(1) != 1 {
		t.Fatalf("expected cached type-of-objects, got %d fetches", loader.calls(1))
	}
	if _, _, err := c.Submit(); !errors.Is(err, cascade.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestCascade_InvalidatesBeforeNewFetchResolves(t *testing.T) {
	loader := newFakeLoader()
	c := cascade.New(loader)
	defer c.Close()
	reachVariablesSet(t, c)

	gate := make(chan struct{})
	started := make(chan int, 1)
	loader.mu.Lock()
	loader.gates[3] = gate
	loader.started = started
	loader.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.SelectPen(context.Background(), 3)
		done <- err
	}()
	<-started

	if c.State() != cascade.PenSet {
		t.Fatalf("expected PenSet while fetching, got %s", c.State())
	}
	want := model.Selection{PenID: 3}
	if diff := cmp.Diff(want, c.Selection()); diff != "" {
		t.Fatalf("selection not reset (-want +got):\n%s", diff)
	}
	if !c.Loading(cascade.TierTypeOfObject) {
		t.Fatalf("expected type-of-object tier loading")
	}
	if got := c.Placeholder(cascade.TierTypeOfObject); got != "Cargando opciones..." {
		t.Fatalf("unexpected placeholder %q", got)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("select pen: %v", err)
	}
	if diff := cmp.Diff([]model.TypeOfObject{{ID: 7, Name: "Cerdo"}}, c.TypeOfObjects()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestCascade_DiscardsStaleResponses(t *testing.T) {
	loader := newFakeLoader()
	c := cascade.New(loader)
	defer c.Close()

	gate := make(chan struct{})
	started := make(chan int, 2)
	loader.mu.Lock()
	loader.gates[1] = gate
	loader.started = started
	loader.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.SelectPen(context.Background(), 1)
		done <- err
	}()
	<-started

	if _, err := c.SelectPen(context.Background(), 3); err != nil {
		t.Fatalf("select pen 3: %v", err)
	}
	<-started
	close(gate)

	if err := <-done; !errors.Is(err, cascade.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if diff := cmp.Diff(model.Selection{PenID: 3}, c.Selection()); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.TypeOfObject{{ID: 7, Name: "Cerdo"}}, c.TypeOfObjects()); diff != "" {
		t.Fatalf("stale options applied (-want +got):\n%s", diff)
	}
}

func TestCascade_FetchFailureLeavesStateAndPlaceholder(t *testing.T) {
	loader := newFakeLoader()
	loader.objectErr = errors.New("network down")
	c := cascade.New(loader)
	defer c.Close()

	if _, err := c.SelectPen(context.Background(), 1); err == nil {
		t.Fatalf("expected fetch error")
	}
	if c.State() != cascade.PenSet {
		t.Fatalf("expected state to stay PenSet, got %s", c.State())
	}
	if len(c.TypeOfObjects()) != 0 {
		t.Fatalf("expected empty options")
	}
	if c.Err(cascade.TierTypeOfObject) == nil {
		t.Fatalf("expected recorded error")
	}
	if got := c.Placeholder(cascade.TierTypeOfObject); got != "No hay tipos de objeto para este corral." {
		t.Fatalf("unexpected placeholder %q", got)
	}
	if loader.calls(1) != 1 {
		t.Fatalf("expected no automatic retry, got %d calls", loader.calls(1))
	}
}

func TestCascade_ReselectingPenRetriesFailedFetch(t *testing.T) {
	loader := newFakeLoader()
	loader.objectErr = errors.New("network down")
	c := cascade.New(loader)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.SelectPen(ctx, 1); err == nil {
		t.Fatalf("expected fetch error")
	}
	if _, err := c.SelectTypeOfObject(ctx, 2); !errors.Is(err, cascade.ErrNotReady) {
		t.Fatalf("expected ErrNotReady after failed fetch, got %v", err)
	}

	loader.mu.Lock()
	loader.objectErr = nil
	loader.mu.Unlock()

	objects, err := c.SelectPen(ctx, 1)
	if err != nil {
		t.Fatalf("retry select pen: %v", err)
	}
	if loader.calls(1) != 2 {
		t.Fatalf("expected a second fetch, got %d calls", loader.calls(1))
	}
	want := []model.TypeOfObject{{ID: 2, Name: "Vaca"}, {ID: 4, Name: "Ternero"}}
	if diff := cmp.Diff(want, objects); diff != "" {
		t.Fatalf("objects mismatch (-want +got):\n%s", diff)
	}
	if c.Err(cascade.TierTypeOfObject) != nil {
		t.Fatalf("expected error cleared, got %v", c.Err(cascade.TierTypeOfObject))
	}
	if _, err := c.SelectTypeOfObject(ctx, 2); err != nil {
		t.Fatalf("select object after retry: %v", err)
	}
}

func TestCascade_GuardsOutOfOrderSelections(t *testing.T) {
	c := cascade.New(newFakeLoader())
	defer c.Close()
	ctx := context.Background()

	if _, err := c.SelectTypeOfObject(ctx, 2); !errors.Is(err, cascade.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if err := c.SelectVariables([]int{5}); !errors.Is(err, cascade.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	if _, err := c.LoadPens(ctx, "field-1"); err != nil {
		t.Fatalf("load pens: %v", err)
	}
	if _, err := c.SelectPen(ctx, 99); !errors.Is(err, cascade.ErrNotOffered) {
		t.Fatalf("expected ErrNotOffered for unknown pen, got %v", err)
	}
	if _, err := c.SelectPen(ctx, 1); err != nil {
		t.Fatalf("select pen: %v", err)
	}
	if _, err := c.SelectTypeOfObject(ctx, 7); !errors.Is(err, cascade.ErrNotOffered) {
		t.Fatalf("expected ErrNotOffered for foreign object, got %v", err)
	}
	if _, err := c.SelectTypeOfObject(ctx, 2); err != nil {
		t.Fatalf("select object: %v", err)
	}
	if err := c.SelectVariables(nil); !errors.Is(err, cascade.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if err := c.SelectVariables([]int{5, 42}); !errors.Is(err, cascade.ErrNotOffered) {
		t.Fatalf("expected ErrNotOffered for unknown variable, got %v", err)
	}
	if err := c.SelectVariables([]int{6, 6}); err != nil {
		t.Fatalf("select variables: %v", err)
	}
	if diff := cmp.Diff([]int{6}, c.Selection().VariableIDs); diff != "" {
		t.Fatalf("duplicates not collapsed (-want +got):\n%s", diff)
	}
}

func TestCascade_EmptyVariablesPlaceholder(t *testing.T) {
	c := cascade.New(newFakeLoader(), cascade.WithPens([]model.Pen{{ID: 3}}))
	defer c.Close()
	ctx := context.Background()

	if _, err := c.SelectPen(ctx, 3); err != nil {
		t.Fatalf("select pen: %v", err)
	}
	if _, err := c.SelectTypeOfObject(ctx, 7); err != nil {
		t.Fatalf("select object: %v", err)
	}
	if got := c.Placeholder(cascade.TierVariable); got != "No hay variables para este tipo de objeto." {
		t.Fatalf("unexpected placeholder %q", got)
	}
	if got := c.Placeholder(cascade.TierTypeOfObject); got != "" {
		t.Fatalf("expected no placeholder for loaded options, got %q", got)
	}
}

func TestCascade_CloseCancelsInFlightFetch(t *testing.T) {
	loader := newFakeLoader()
	gate := make(chan struct{})
	defer close(gate)
	started := make(chan int, 1)
	loader.gates[1] = gate
	loader.started = started
	c := cascade.New(loader)

	done := make(chan error, 1)
	go func() {
		_, err := c.SelectPen(context.Background(), 1)
		done <- err
	}()
	<-started
	c.Close()

	if err := <-done; !errors.Is(err, cascade.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded after close, got %v", err)
	}
	if _, err := c.SelectPen(context.Background(), 1); !errors.Is(err, cascade.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
