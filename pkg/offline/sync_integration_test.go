package offline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-farmform/internal/fakeapi"
	"github.com/goliatone/go-farmform/internal/localstore"
	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/model"
	"github.com/goliatone/go-farmform/pkg/offline"
)

// switchTransport fails every round trip while down is set.
type switchTransport struct {
	down atomic.Bool
	base http.RoundTripper
}

func (s *switchTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if s.down.Load() {
		return nil, errors.New("network unreachable")
	}
	return s.base.RoundTrip(req)
}

type tokens string

func (t tokens) AccessToken(context.Context) (string, error) { return string(t), nil }

type fixture struct {
	api       *fakeapi.Server
	client    *client.Client
	queue     localstore.Queue
	transport *switchTransport
	fieldID   string
	penVarID  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := fakeapi.New()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	userID := api.AddUser("ana@example.com", "secret1", "ana", "USER")
	access, _, err := api.IssueTokens("ana@example.com")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	objID := api.SeedTypeOfObject(userID, "Vaca")
	fieldID := api.SeedField(userID, "North")
	penID := api.SeedPen(fieldID, "Pen A", objID)
	varID := api.SeedVariable(userID, "Peso", model.Numeric(model.NumericValue{Min: 0, Max: 900, Granularity: 1}), objID)
	penVarID := api.SeedPenVariable(penID, varID, objID, model.FormValue{})

	store, err := localstore.Open(filepath.Join(t.TempDir(), "farmform.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	transport := &switchTransport{base: http.DefaultTransport}
	c, err := client.New(server.URL,
		client.WithTokenSource(tokens(access)),
		client.WithHTTPClient(&http.Client{Transport: transport}),
		client.WithQueue(store.Queue()),
	)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return &fixture{api: api, client: c, queue: store.Queue(), transport: transport, fieldID: fieldID, penVarID: penVarID}
}

func TestSyncCreatesReportThenRemapsMeasurements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.transport.down.Store(true)
	_, err := f.client.CreateReport(ctx, f.fieldID, model.CreateReport{Name: "Offline round"})
	tempID, ok := client.QueuedTempID(err)
	if !ok {
		t.Fatalf("CreateReport error = %v, want queued temp id", err)
	}
	batch := model.MeasurementBatch{
		Name:         "Cow 12",
		Measurements: []model.MeasurementInput{{PenVariableID: f.penVarID, Value: "420"}},
	}
	if _, err := f.client.QueueMeasurementsForReport(ctx, tempID, batch); err != nil {
		t.Fatalf("QueueMeasurementsForReport: %v", err)
	}
	if _, err := f.client.QueueMeasurementsForReport(ctx, "temp-unknown", batch); err != nil {
		t.Fatalf("QueueMeasurementsForReport: %v", err)
	}
	f.transport.down.Store(false)

	res, err := offline.New(f.queue, f.client).Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if diff := cmp.Diff(offline.Result{Processed: 2, Postponed: 1}, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	reports := f.api.Reports(f.fieldID)
	if len(reports) != 1 || reports[0].Name != "Offline round" {
		t.Fatalf("reports = %+v", reports)
	}
	serverID, ok, err := f.queue.LookupID(ctx, tempID)
	if err != nil || !ok || serverID != strconv.Itoa(reports[0].ID) {
		t.Fatalf("id map = %q, %v, %v", serverID, ok, err)
	}
	want := []model.MeasurementInput{{PenVariableID: f.penVarID, Value: "420", ReportID: reports[0].ID}}
	got := f.api.Measurements()
	for i := range got {
		got[i].SubjectID = 0
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("measurements mismatch (-want +got):\n%s", diff)
	}

	left, err := f.queue.Len(ctx)
	if err != nil || left != 1 {
		t.Fatalf("queue length = %d, %v", left, err)
	}
}

func TestSyncKeepsFailedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.transport.down.Store(true)
	if _, err := f.client.CreateReport(ctx, f.fieldID, model.CreateReport{Name: "Round"}); !errors.Is(err, client.ErrQueued) {
		t.Fatalf("CreateReport error = %v", err)
	}
	f.transport.down.Store(false)
	f.api.FailNext(http.StatusInternalServerError, "database unavailable")

	syncer := offline.New(f.queue, f.client)
	res, err := syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Failed != 1 || res.Processed != 0 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
	pending, err := f.queue.Pending(ctx)
	if err != nil || len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("pending = %+v, %v", pending, err)
	}

	res, err = syncer.Sync(ctx)
	if err != nil || res.Processed != 1 {
		t.Fatalf("second Sync = %+v, %v", res, err)
	}
	if empty, _ := syncer.Sync(ctx); !empty.Empty() {
		t.Fatalf("third Sync = %+v, want empty", empty)
	}
}
