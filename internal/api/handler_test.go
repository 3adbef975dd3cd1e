package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nlsql/nlsql/internal/config"
	"github.com/nlsql/nlsql/internal/conversation"
	"github.com/nlsql/nlsql/internal/nl2sql"
	"github.com/nlsql/nlsql/internal/query"
)

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["service"] != "nlsql" {
		t.Fatalf("service = %v", body["service"])
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Readiness: func(context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(context.Context) error {
			order = append(order, 1)
			return nil
		},
		nil,
		func(context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	if err := combined(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func TestReadinessChecks(t *testing.T) {
	if err := CheckSchema(fakeSchema{err: errors.New("missing")})(context.Background()); err == nil {
		t.Fatal("CheckSchema() expected error")
	}
	if err := CheckStore(fakeTables{tables: []string{"branches"}})(context.Background()); err != nil {
		t.Fatalf("CheckStore() error = %v", err)
	}
	if err := CheckStore(nil)(context.Background()); err == nil {
		t.Fatal("CheckStore(nil) expected error")
	}
	if err := CheckInferenceConfig(testConfig(t))(context.Background()); err == nil {
		t.Fatal("CheckInferenceConfig() expected error without api key")
	}
}

func TestListTables(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Tables: fakeTables{tables: []string{"accounts", "branches"}}})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Tables []string `json:"tables"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(body.Tables) != 2 || body.Tables[1] != "branches" {
		t.Fatalf("tables = %v", body.Tables)
	}

	down := NewHandler(testConfig(t), Dependencies{Tables: fakeTables{err: errors.New("unable to open database file")}})
	rr = httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSessionClarificationFlow(t *testing.T) {
	translator := &scriptedTranslator{replies: []nl2sql.Reply{
		{Kind: nl2sql.ReplyClarification, Text: "Which period?"},
		{Kind: nl2sql.ReplySQLCandidate, Text: "SELECT * FROM transactions WHERE transaction_date >= date('now', '-7 day');"},
	}}
	machine := &conversation.Machine{
		Translator: translator,
		Executor:   fakeExecutor{result: query.Result{Columns: []string{"transaction_id"}, Rows: [][]any{{int64(1)}, {int64(2)}}}},
		Schema:     fakeSchema{text: "CREATE TABLE transactions (transaction_id INTEGER);"},
	}
	h := NewHandler(testConfig(t), Dependencies{Machine: machine, Sessions: conversation.NewRegistry()})

	sessionID := createSession(t, h)

	first := postMessage(t, h, sessionID, "Show transactions")
	if first.Kind != string(conversation.OutcomeClarification) || first.Message != "Which period?" {
		t.Fatalf("first outcome = %+v", first)
	}

	second := postMessage(t, h, sessionID, "last 7 days")
	if second.Kind != string(conversation.OutcomeExecuted) || !second.Merged {
		t.Fatalf("second outcome = %+v", second)
	}
	if second.Result == nil || second.Result.RowCount != 2 {
		t.Fatalf("second result = %+v", second.Result)
	}
	if translator.lastUser != "Show transactions last 7 days" {
		t.Fatalf("merged question sent = %q", translator.lastUser)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sessionID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("get session status = %d", rr.Code)
	}
	var session sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &session); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(session.Turns) != 3 || len(session.Results) != 1 {
		t.Fatalf("session = %+v", session)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/reset", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sessionID, nil))
	session = sessionResponse{}
	if err := json.Unmarshal(rr.Body.Bytes(), &session); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(session.Turns) != 0 || len(session.Results) != 0 {
		t.Fatalf("session after reset = %+v", session)
	}
}

func TestSubmitMessageReportsNoResponse(t *testing.T) {
	machine := &conversation.Machine{
		Translator: &scriptedTranslator{},
		Executor:   fakeExecutor{},
		Schema:     fakeSchema{text: "CREATE TABLE t (id INTEGER);"},
	}
	h := NewHandler(testConfig(t), Dependencies{Machine: machine, Sessions: conversation.NewRegistry()})
	sessionID := createSession(t, h)

	outcome := postMessage(t, h, sessionID, "anything")
	if outcome.Kind != string(conversation.OutcomeNoResponse) {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Message != conversation.NoResponseAdvisory || outcome.Error == "" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestSessionErrors(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{Machine: &conversation.Machine{}, Sessions: conversation.NewRegistry()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions/missing/messages", bytes.NewBufferString(`{"input":"x"}`)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing session status = %d", rr.Code)
	}

	sessionID := createSession(t, h)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", bytes.NewBufferString(`{"question":"x"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+sessionID, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+sessionID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rr.Code)
	}

	unconfigured := NewHandler(testConfig(t), Dependencies{})
	rr = httptest.NewRecorder()
	unconfigured.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("unconfigured status = %d", rr.Code)
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("nlsql", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	id, _ := body["session_id"].(string)
	if id == "" {
		t.Fatalf("session_id missing: %v", body)
	}
	return id
}

func postMessage(t *testing.T, h http.Handler, sessionID, input string) outcomeResponse {
	t.Helper()
	payload, _ := json.Marshal(messageRequest{Input: input})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/messages", bytes.NewReader(payload)))
	if rr.Code != http.StatusOK {
		t.Fatalf("post message status = %d body=%s", rr.Code, rr.Body.String())
	}
	var outcome outcomeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	return outcome
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

type fakeSchema struct {
	text string
	err  error
}

func (f fakeSchema) Text() (string, error) {
	return f.text, f.err
}

type fakeTables struct {
	tables []string
	err    error
}

func (f fakeTables) Tables(context.Context) ([]string, error) {
	return f.tables, f.err
}

type fakeExecutor struct {
	result query.Result
}

func (f fakeExecutor) Execute(context.Context, string) (query.Result, error) {
	return f.result, nil
}

type scriptedTranslator struct {
	replies  []nl2sql.Reply
	lastUser string
}

func (s *scriptedTranslator) Complete(_ context.Context, messages []nl2sql.Message) (nl2sql.Reply, error) {
	for _, message := range messages {
		if message.Role == nl2sql.RoleUser {
			s.lastUser = message.Content
		}
	}
	if len(s.replies) == 0 {
		return nl2sql.Reply{}, nl2sql.ErrNoResponse
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}
