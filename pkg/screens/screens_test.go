package screens_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-farmform/internal/fakeapi"
	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/i18n"
	"github.com/goliatone/go-farmform/pkg/model"
	"github.com/goliatone/go-farmform/pkg/prompt"
	"github.com/goliatone/go-farmform/pkg/prompt/prompttest"
	"github.com/goliatone/go-farmform/pkg/screens"
	"github.com/goliatone/go-farmform/pkg/session"
	"github.com/goliatone/go-farmform/pkg/validation"
)

const (
	email    = "ana@example.com"
	password = "secret1"
)

var roundDay = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return roundDay }

func (fixedClock) AfterFunc(d time.Duration, fn func()) form.Timer {
	return time.AfterFunc(d, fn)
}

type memQueue struct {
	mu    sync.Mutex
	items []client.QueuedRequest
}

func (m *memQueue) Enqueue(_ context.Context, item client.QueuedRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	return nil
}

func (m *memQueue) snapshot() []client.QueuedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.QueuedRequest(nil), m.items...)
}

// offlineWrites lets reads through and fails every mutation at the transport.
type offlineWrites struct {
	base http.RoundTripper
}

func (o offlineWrites) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Method != http.MethodGet {
		return nil, errors.New("network is unreachable")
	}
	return o.base.RoundTrip(r)
}

type env struct {
	api      *fakeapi.Server
	server   *httptest.Server
	sessions *session.Manager
	userID   string
	loc      *i18n.Localizer
	v        *validation.Validator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	api := fakeapi.New()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	loc := i18n.DefaultLocalizer("en")
	return &env{
		api:      api,
		server:   server,
		sessions: session.NewManager(nil),
		userID:   api.AddUser(email, password, "ana", "USER"),
		loc:      loc,
		v:        validation.New(validation.WithLocalizer(loc)),
	}
}

func (e *env) client(t *testing.T, opts ...client.Option) *client.Client {
	t.Helper()
	opts = append([]client.Option{client.WithTokenSource(e.sessions)}, opts...)
	c, err := client.New(e.server.URL, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func (e *env) signIn(t *testing.T) {
	t.Helper()
	if _, err := e.sessions.Login(context.Background(), e.client(t), client.Credentials{Email: email, Password: password}); err != nil {
		t.Fatalf("sign in: %v", err)
	}
}

func (e *env) screens(t *testing.T, c *client.Client, d *prompttest.Driver) *screens.Screens {
	t.Helper()
	s, err := screens.New(c, d,
		screens.WithProfile(e.sessions),
		screens.WithLocalizer(e.loc),
		screens.WithClock(fixedClock{}),
		screens.WithDismissAfter(0),
	)
	if err != nil {
		t.Fatalf("new screens: %v", err)
	}
	return s
}

func containsInfo(infos []string, text string) bool {
	for _, info := range infos {
		if strings.Contains(info, text) {
			return true
		}
	}
	return false
}

func TestCreateFieldSubmitsCleanedValues(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)

	d := prompttest.New(
		prompttest.Answer(""),
		prompttest.Answer("<b>Finca</b> Norte"),
		prompttest.Answer("Lechería"),
		prompttest.Answer("Osorno"),
		prompttest.Answer("95"),
		prompttest.Answer("-40,57"),
		prompttest.Answer("-73,15"),
		prompttest.Answer("Leche"),
		prompttest.Answer("Holstein"),
		prompttest.Answer("Galpón"),
		prompttest.Answer("120"),
	)
	got, err := e.screens(t, e.client(t), d).CreateField(context.Background())
	if err != nil {
		t.Fatalf("CreateField: %v", err)
	}

	want := model.Field{
		Name:            "Finca Norte",
		Description:     "Lechería",
		Location:        "Osorno",
		Latitude:        -40.57,
		Longitude:       -73.15,
		ProductionType:  "Leche",
		Breed:           "Holstein",
		Installation:    "Galpón",
		NumberOfAnimals: 120,
		UserID:          e.userID,
	}
	ignore := func(p cmp.Path) bool {
		switch p.String() {
		case "ID", "CreatedAt", "UpdatedAt":
			return true
		}
		return false
	}
	if diff := cmp.Diff(want, got, cmp.FilterPath(ignore, cmp.Ignore())); diff != "" {
		t.Errorf("field mismatch (-want +got):\n%s", diff)
	}

	rejected := []string{
		e.v.ValidateNameInput(""),
		e.loc.T(validation.MsgNotANumber),
	}
	if diff := cmp.Diff(rejected, d.Rejected()); diff != "" {
		t.Errorf("rejected answers mismatch (-want +got):\n%s", diff)
	}
	if n := e.api.RequestCount("POST /fields"); n != 1 {
		t.Errorf("POST /fields served %d times, want 1", n)
	}
	if !containsInfo(d.Infos(), e.loc.T(form.MsgSubmitSuccess)) {
		t.Errorf("success modal not shown: %q", d.Infos())
	}
}

func TestSignedOutSubmitNeverReachesBackend(t *testing.T) {
	e := newEnv(t)

	d := prompttest.New(
		prompttest.Answer("Finca Sur"),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
	)
	_, err := e.screens(t, e.client(t), d).CreateField(context.Background())
	if !errors.Is(err, client.ErrUnauthenticated) {
		t.Fatalf("CreateField error = %v, want ErrUnauthenticated", err)
	}
	if reqs := e.api.Requests(); len(reqs) != 0 {
		t.Errorf("backend received %q, want no request", reqs)
	}
	if !containsInfo(d.Infos(), e.loc.T(client.MsgAuthMissing)) {
		t.Errorf("auth modal not shown: %q", d.Infos())
	}
}

func TestAbortOnDirtyFormAsksBeforeLeaving(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)

	d := prompttest.New(
		prompttest.Answer("Finca Sur"),
		prompttest.Fail(prompttest.KindInput, prompt.ErrAborted),
		prompttest.No(),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
		prompttest.Answer(""),
	)
	got, err := e.screens(t, e.client(t), d).CreateField(context.Background())
	if err != nil {
		t.Fatalf("CreateField: %v", err)
	}
	if got.Name != "Finca Sur" {
		t.Errorf("field name = %q, want Finca Sur", got.Name)
	}
	description := e.loc.T(screens.LabelDescription)
	want := []string{e.loc.T(screens.LabelName), description, e.loc.T(form.MsgUnsavedConfirm), description}
	if diff := cmp.Diff(want, d.Asked()[:4]); diff != "" {
		t.Errorf("asked prompts mismatch (-want +got):\n%s", diff)
	}
	if n := e.api.RequestCount("POST /fields"); n != 1 {
		t.Errorf("POST /fields served %d times, want 1", n)
	}
}

func TestAbortConfirmedLeavesWithoutSubmitting(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)

	d := prompttest.New(
		prompttest.Answer("Finca Sur"),
		prompttest.Fail(prompttest.KindInput, prompt.ErrAborted),
		prompttest.Yes(),
	)
	_, err := e.screens(t, e.client(t), d).CreateField(context.Background())
	if !errors.Is(err, prompt.ErrAborted) {
		t.Fatalf("CreateField error = %v, want ErrAborted", err)
	}
	if d.Remaining() != 0 {
		t.Errorf("%d scripted steps left", d.Remaining())
	}
	if n := e.api.RequestCount("POST /fields"); n != 0 {
		t.Errorf("POST /fields served %d times, want 0", n)
	}
}

func TestAbortOnCleanFormLeavesAtOnce(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)

	d := prompttest.New(prompttest.Fail(prompttest.KindInput, prompt.ErrAborted))
	_, err := e.screens(t, e.client(t), d).CreateField(context.Background())
	if !errors.Is(err, prompt.ErrAborted) {
		t.Fatalf("CreateField error = %v, want ErrAborted", err)
	}
	if diff := cmp.Diff([]string{e.loc.T(screens.LabelName)}, d.Asked()); diff != "" {
		t.Errorf("asked prompts mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePenStoresPickedTypesOfObject(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)
	fieldID := e.api.SeedField(e.userID, "Finca Norte")
	cow := e.api.SeedTypeOfObject(e.userID, "Vaca")
	e.api.SeedTypeOfObject(e.userID, "Ternero")

	d := prompttest.New(
		prompttest.Answer("Corral 1"),
		prompttest.ChooseMany(),
		prompttest.ChooseMany("Vaca"),
	)
	got, err := e.screens(t, e.client(t), d).CreatePen(context.Background(), fieldID)
	if err != nil {
		t.Fatalf("CreatePen: %v", err)
	}

	want := model.Pen{
		ID:            got.ID,
		Name:          "Corral 1",
		FieldID:       fieldID,
		TypeOfObjects: []model.TypeOfObject{{ID: cow, Name: "Vaca"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pen mismatch (-want +got):\n%s", diff)
	}
	required := e.v.ValidateTypeObjectValue(nil, 2)
	if !containsInfo(d.Infos(), required) {
		t.Errorf("empty selection was not refused with %q: %q", required, d.Infos())
	}
}

func TestCreateNumericVariable(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)
	cow := e.api.SeedTypeOfObject(e.userID, "Vaca")

	d := prompttest.New(
		prompttest.Answer("Peso"),
		prompttest.Choose("Numeric"),
		prompttest.Answer("0"),
		prompttest.Answer("-1"),
		prompttest.Answer("900"),
		prompttest.Answer("300"),
		prompttest.Answer("600"),
		prompttest.Answer("0,5"),
		prompttest.ChooseMany("Vaca"),
	)
	got, err := e.screens(t, e.client(t), d).CreateVariable(context.Background())
	if err != nil {
		t.Fatalf("CreateVariable: %v", err)
	}

	want := model.Variable{
		ID:   got.ID,
		Name: "Peso",
		Type: model.VariableTypeNumber,
		DefaultValue: model.Numeric(model.NumericValue{
			Min: 0, Max: 900, OptimalMin: 300, OptimalMax: 600, Granularity: 0.5,
		}),
		TypeOfObjects: []model.TypeOfObject{{ID: cow, Name: "Vaca"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("variable mismatch (-want +got):\n%s", diff)
	}

	minMax := e.v.ValidateRangeOrGranularity(model.NumericValue{Min: 0, Max: -1, Granularity: 1})[validation.KeyMinMax]
	if diff := cmp.Diff([]string{minMax}, d.Rejected()); diff != "" {
		t.Errorf("rejected answers mismatch (-want +got):\n%s", diff)
	}
	if n := e.api.RequestCount("POST /variables/" + e.userID); n != 1 {
		t.Errorf("POST /variables/{userId} served %d times, want 1", n)
	}
}

func TestEditCategoricalVariable(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)
	cow := e.api.SeedTypeOfObject(e.userID, "Vaca")
	id := e.api.SeedVariable(e.userID, "Color", model.Categorical([]string{"Rojo", "Azul"}, "Rojo"), cow)

	d := prompttest.New(
		prompttest.Answer(""),
		prompttest.Choose("Categorical"),
		prompttest.Answer("Rojo, Azul, Verde"),
		prompttest.ChooseMany("Verde"),
		prompttest.ChooseMany("Vaca"),
	)
	got, err := e.screens(t, e.client(t), d).EditVariable(context.Background(), id)
	if err != nil {
		t.Fatalf("EditVariable: %v", err)
	}

	if got.Name != "Color" {
		t.Errorf("name = %q, want the loaded name kept", got.Name)
	}
	want := model.Categorical([]string{"Rojo", "Azul", "Verde"}, "Verde")
	if diff := cmp.Diff(want, got.DefaultValue); diff != "" {
		t.Errorf("default value mismatch (-want +got):\n%s", diff)
	}
	if n := e.api.RequestCount("POST /variables/" + e.userID); n != 0 {
		t.Errorf("edit created a variable %d times", n)
	}
}

type round struct {
	fieldID  string
	penVars  [2]int
	cow      int
	penName  string
	varNames [2]string
}

func seedRound(e *env) round {
	fieldID := e.api.SeedField(e.userID, "Finca Norte")
	cow := e.api.SeedTypeOfObject(e.userID, "Vaca")
	pen := e.api.SeedPen(fieldID, "Corral 1", cow)
	weight := e.api.SeedVariable(e.userID, "Peso", model.Numeric(model.NumericValue{
		Min: 0, Max: 900, OptimalMin: 300, OptimalMax: 600, Granularity: 0.5,
	}), cow)
	color := e.api.SeedVariable(e.userID, "Color", model.Categorical([]string{"Negro", "Blanco"}), cow)
	return round{
		fieldID: fieldID,
		cow:     cow,
		penVars: [2]int{
			e.api.SeedPenVariable(pen, weight, cow, model.FormValue{}),
			e.api.SeedPenVariable(pen, color, cow, model.FormValue{}),
		},
		penName:  "Corral 1",
		varNames: [2]string{"Peso", "Color"},
	}
}

func (r round) selection() []prompttest.Step {
	return []prompttest.Step{
		prompttest.Choose(r.penName),
		prompttest.Choose("Vaca"),
		prompttest.ChooseMany(),
		prompttest.ChooseMany(r.varNames[0], r.varNames[1]),
		prompttest.Answer("Vaca 12"),
	}
}

func TestMeasurePostsOneBatchPerRound(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)
	r := seedRound(e)

	steps := append(r.selection(),
		prompttest.Answer("abc"),
		prompttest.Answer("420,5"),
		prompttest.Answer("blanco"),
		prompttest.Yes(),
		prompttest.Answer(""),
		prompttest.Answer("Ronda <i>de la mañana</i>"),
	)
	d := prompttest.New(steps...)
	got, err := e.screens(t, e.client(t), d).Measure(context.Background(), r.fieldID)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	if got.Queued {
		t.Fatal("round was queued with the backend reachable")
	}
	if got.Report.Name != "2026-03-01" || got.Report.Comment != "Ronda de la mañana" {
		t.Errorf("report = %q / %q", got.Report.Name, got.Report.Comment)
	}
	if got.Selection.TypeOfObjectID != r.cow || len(got.Selection.VariableIDs) != 2 {
		t.Errorf("selection = %+v", got.Selection)
	}

	stored := e.api.Measurements()
	want := []model.MeasurementInput{
		{PenVariableID: r.penVars[0], Value: "420.5", ReportID: got.Report.ID},
		{PenVariableID: r.penVars[1], Value: "Blanco", ReportID: got.Report.ID},
	}
	if diff := cmp.Diff(want, stored, cmp.FilterPath(func(p cmp.Path) bool {
		return strings.HasSuffix(p.String(), "SubjectID")
	}, cmp.Ignore())); diff != "" {
		t.Errorf("stored measurements mismatch (-want +got):\n%s", diff)
	}
	if n := e.api.RequestCount("POST /measurements"); n != 1 {
		t.Errorf("POST /measurements served %d times, want 1", n)
	}

	_, nan := e.v.ValidateMeasurementValue(model.Numeric(model.NumericValue{Max: 900, Granularity: 0.5}), "abc")
	if diff := cmp.Diff([]string{nan}, d.Rejected()); diff != "" {
		t.Errorf("rejected answers mismatch (-want +got):\n%s", diff)
	}
	if !containsInfo(d.Infos(), e.loc.T(screens.MsgVariablesRequired)) {
		t.Errorf("empty variable selection was not refused: %q", d.Infos())
	}
	if d.Remaining() != 0 {
		t.Errorf("%d scripted steps left", d.Remaining())
	}
}

func TestMeasureRefusesRoundWithoutValues(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)
	r := seedRound(e)

	steps := append(r.selection(), prompttest.Answer(""), prompttest.Answer(""))
	d := prompttest.New(steps...)
	_, err := e.screens(t, e.client(t), d).Measure(context.Background(), r.fieldID)
	if !errors.Is(err, screens.ErrNoValues) {
		t.Fatalf("Measure error = %v, want ErrNoValues", err)
	}
	if n := e.api.RequestCount("POST /reports/byFieldId/" + r.fieldID); n != 0 {
		t.Errorf("report created %d times for an empty round", n)
	}
	if !containsInfo(d.Infos(), e.loc.T(screens.MsgNoValues)) {
		t.Errorf("no-values notice not shown: %q", d.Infos())
	}
}

func TestMeasurePartialRoundNeedsConfirmation(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)
	r := seedRound(e)

	steps := append(r.selection(), prompttest.Answer("450"), prompttest.Answer(""), prompttest.No())
	d := prompttest.New(steps...)
	_, err := e.screens(t, e.client(t), d).Measure(context.Background(), r.fieldID)
	if !errors.Is(err, screens.ErrCancelled) {
		t.Fatalf("Measure error = %v, want ErrCancelled", err)
	}
	if got := e.api.Measurements(); len(got) != 0 {
		t.Errorf("cancelled round stored %d measurements", len(got))
	}

	steps = append(r.selection(),
		prompttest.Answer("450"),
		prompttest.Answer(""),
		prompttest.Yes(),
		prompttest.Yes(),
		prompttest.Answer("Ronda parcial"),
		prompttest.Answer(""),
	)
	d = prompttest.New(steps...)
	got, err := e.screens(t, e.client(t), d).Measure(context.Background(), r.fieldID)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if len(got.Measurements) != 1 || got.Measurements[0].Value != "450" {
		t.Errorf("measurements = %+v, want the single weight", got.Measurements)
	}
}

func TestMeasureQueuesRoundWhenOffline(t *testing.T) {
	e := newEnv(t)
	e.signIn(t)
	r := seedRound(e)

	queue := &memQueue{}
	c := e.client(t,
		client.WithHTTPClient(&http.Client{Transport: offlineWrites{base: http.DefaultTransport}}),
		client.WithQueue(queue),
	)
	steps := append(r.selection(),
		prompttest.Answer("420"),
		prompttest.Answer("Negro"),
		prompttest.Yes(),
		prompttest.Answer(""),
		prompttest.Answer(""),
	)
	d := prompttest.New(steps...)
	got, err := e.screens(t, c, d).Measure(context.Background(), r.fieldID)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if !got.Queued || !strings.HasPrefix(got.TempReportID, client.TempIDPrefix) {
		t.Fatalf("result = %+v, want a queued round with a temporary report id", got)
	}

	items := queue.snapshot()
	if len(items) != 2 {
		t.Fatalf("queued %d requests, want report and measurements", len(items))
	}
	if items[0].Entity != client.EntityReports || items[0].TempID != got.TempReportID {
		t.Errorf("first item = %+v, want the report with the temporary id", items[0])
	}
	if items[1].Entity != client.EntityMeasurements || !strings.Contains(string(items[1].Body), `"report_id":"`+got.TempReportID+`"`) {
		t.Errorf("second item = %s, want measurements pointing at the queued report", items[1].Body)
	}
	if !containsInfo(d.Infos(), e.loc.T(screens.MsgQueued)) {
		t.Errorf("queued notice not shown: %q", d.Infos())
	}
	if n := len(e.api.Measurements()); n != 0 {
		t.Errorf("backend stored %d measurements while offline", n)
	}
}

func TestMeasureSignedOutShowsAuthNotice(t *testing.T) {
	e := newEnv(t)
	d := prompttest.New()
	_, err := e.screens(t, e.client(t), d).Measure(context.Background(), "field-1")
	if !errors.Is(err, client.ErrUnauthenticated) {
		t.Fatalf("Measure error = %v, want ErrUnauthenticated", err)
	}
	if !containsInfo(d.Infos(), e.loc.T(client.MsgAuthMissing)) {
		t.Errorf("auth modal not shown: %q", d.Infos())
	}
	if reqs := e.api.Requests(); len(reqs) != 0 {
		t.Errorf("backend received %q while signed out", reqs)
	}
}

func TestLoginStoresSession(t *testing.T) {
	e := newEnv(t)
	d := prompttest.New(
		prompttest.Answer("ana"),
		prompttest.Answer(email),
		prompttest.Secret(password),
	)
	got, err := e.screens(t, e.client(t), d).Login(context.Background(), e.sessions)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.UserID != e.userID || got.Email != email {
		t.Errorf("session = %+v", got)
	}
	if current, ok := e.sessions.Current(); !ok || current.UserID != e.userID {
		t.Errorf("manager session = %+v, %v", current, ok)
	}
	if diff := cmp.Diff([]string{e.v.Email()("ana")}, d.Rejected()); diff != "" {
		t.Errorf("rejected answers mismatch (-want +got):\n%s", diff)
	}
}

func TestLoginWrongPasswordKeepsSignedOut(t *testing.T) {
	e := newEnv(t)
	d := prompttest.New(prompttest.Answer(email), prompttest.Secret("nope"))
	_, err := e.screens(t, e.client(t), d).Login(context.Background(), e.sessions)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode() != http.StatusForbidden {
		t.Fatalf("Login error = %v, want a 403 APIError", err)
	}
	if _, ok := e.sessions.Current(); ok {
		t.Error("failed login left a session behind")
	}
	if len(d.Infos()) == 0 {
		t.Error("failure modal not shown")
	}
}

func TestRegisterValidatesPasswords(t *testing.T) {
	e := newEnv(t)
	d := prompttest.New(
		prompttest.Answer("beto"),
		prompttest.Answer("beto@example.com"),
		prompttest.Secret("abc"),
		prompttest.Secret("secret9"),
		prompttest.Secret("secret8"),
		prompttest.Secret("secret9"),
	)
	if err := e.screens(t, e.client(t), d).Register(context.Background()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	rejected := []string{e.v.MinLength(6)("abc"), e.v.MatchPassword("secret9")("secret8")}
	if diff := cmp.Diff(rejected, d.Rejected()); diff != "" {
		t.Errorf("rejected answers mismatch (-want +got):\n%s", diff)
	}
	infos := d.Infos()
	if len(infos) == 0 || infos[len(infos)-1] != e.loc.T(screens.MsgRegisterSent) {
		t.Errorf("infos = %q, want the verification notice last", infos)
	}
	if !e.api.Verify("beto@example.com") {
		t.Error("account was not registered")
	}
}
