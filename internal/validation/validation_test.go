package validation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test helpers ---

type memLogs struct {
	mu      sync.Mutex
	entries []domain.ValidationLog
	err     error
}

func (m *memLogs) Append(_ context.Context, log *domain.ValidationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *log)
	return nil
}

type fakeRow struct {
	value any
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	b, ok := r.value.(bool)
	if !ok {
		return errors.New("cannot scan into bool")
	}
	*(dest[0].(*bool)) = b
	return nil
}

type fakeDB struct {
	row     fakeRow
	gotSQL  string
	gotArgs []any
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.gotSQL = sql
	f.gotArgs = args
	return f.row
}

var testUser = uuid.MustParse("33333333-3333-3333-3333-333333333333")

func testContext() Context {
	return Context{
		ProcessID: 42,
		StepID:    7,
		StepName:  "Review",
		UserID:    testUser,
		Action:    domain.ActionApprove,
	}
}

func apiValidation(t *testing.T, data domain.APIValidationData) domain.CustomValidation {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return domain.CustomValidation{ID: 1, Type: domain.ValidationTypeAPI, Data: raw}
}

// --- Context Tests ---

func TestContext_Values(t *testing.T) {
	values := testContext().Values()

	assert.Equal(t, "42", values["processId"])
	assert.Equal(t, "7", values["stepId"])
	assert.Equal(t, "Review", values["stepName"])
	assert.Equal(t, testUser.String(), values["userId"])
	assert.Equal(t, "Approve", values["action"])
}

// --- Registry Tests ---

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has(domain.ValidationTypeAPI))

	_, err := r.Get(domain.ValidationTypeAPI)
	assert.ErrorIs(t, err, ErrStrategyNotFound)

	r.Register(NewExpressionStrategy())
	assert.True(t, r.Has(domain.ValidationTypeExpression))
	assert.Equal(t, []domain.ValidationType{domain.ValidationTypeExpression}, r.Kinds())
	assert.ElementsMatch(t, []domain.ValidationType{domain.ValidationTypeAPI, domain.ValidationTypeDatabase}, r.Missing())
}

func TestDefaultRegistry_CoversAllTypes(t *testing.T) {
	r := DefaultRegistry(StrategyConfig{})

	assert.Empty(t, r.Missing())
	assert.Len(t, r.Kinds(), len(domain.ValidationTypes()))
}

// --- APIStrategy Tests ---

func TestAPIStrategy_Success(t *testing.T) {
	var gotPath, gotBody, gotAuth, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"status": "200", "error": ""}`))
	}))
	defer server.Close()

	v := apiValidation(t, domain.APIValidationData{
		URL:             server.URL + "/check/{{processId}}",
		Headers:         map[string]string{"Authorization": "secret"},
		PayloadTemplate: `{"user": "{{userId}}", "step": "{{stepName}}", "other": "{{unknown}}"}`,
	})

	result, err := NewAPIStrategy(nil).Validate(context.Background(), testContext(), v)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "/check/42", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"user": "`+testUser.String()+`", "step": "Review", "other": "{{unknown}}"}`, gotBody)
	assert.JSONEq(t, `{"status": "200", "error": ""}`, result.RawResponse)
}

func TestAPIStrategy_AuthScheme(t *testing.T) {
	tests := []struct {
		name   string
		scheme string
		value  string
		want   string
	}{
		{name: "default bearer", value: "secret", want: "Bearer secret"},
		{name: "explicit scheme", scheme: "Basic", value: "dXNlcg==", want: "Basic dXNlcg=="},
		{name: "value with scheme", scheme: "Basic", value: "Token abc", want: "Token abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				w.Write([]byte(`{"status": "200"}`))
			}))
			defer server.Close()

			v := apiValidation(t, domain.APIValidationData{
				URL:        server.URL,
				Headers:    map[string]string{"Authorization": tt.value},
				AuthScheme: tt.scheme,
			})

			_, err := NewAPIStrategy(nil).Validate(context.Background(), testContext(), v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, gotAuth)
		})
	}
}

func TestAPIStrategy_RejectedByRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "400", "error": "insufficient budget"}`))
	}))
	defer server.Close()

	v := apiValidation(t, domain.APIValidationData{URL: server.URL})

	result, err := NewAPIStrategy(nil).Validate(context.Background(), testContext(), v)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "insufficient budget", result.Message)
}

func TestAPIStrategy_StatusMustBeString200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "OK"}`))
	}))
	defer server.Close()

	result, err := NewAPIStrategy(nil).Validate(context.Background(), testContext(), apiValidation(t, domain.APIValidationData{URL: server.URL}))
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestAPIStrategy_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	result, err := NewAPIStrategy(nil).Validate(context.Background(), testContext(), apiValidation(t, domain.APIValidationData{URL: server.URL}))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Error While Calling External url: "+server.URL)
	assert.Contains(t, result.Message, "HTTP 500")
	assert.Equal(t, "boom", result.RawResponse)
}

func TestAPIStrategy_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	result, err := NewAPIStrategy(nil).Validate(context.Background(), testContext(), apiValidation(t, domain.APIValidationData{URL: url}))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Error While Calling External url: "+url)
}

func TestAPIStrategy_CustomMethod(t *testing.T) {
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte(`{"status": "200"}`))
	}))
	defer server.Close()

	v := apiValidation(t, domain.APIValidationData{URL: server.URL, Method: "put"})

	result, err := NewAPIStrategy(nil).Validate(context.Background(), testContext(), v)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, http.MethodPut, gotMethod)
}

func TestAPIStrategy_InvalidData(t *testing.T) {
	v := domain.CustomValidation{Type: domain.ValidationTypeAPI, Data: json.RawMessage(`{}`)}

	_, err := NewAPIStrategy(nil).Validate(context.Background(), testContext(), v)
	assert.ErrorIs(t, err, domain.ErrInvalidValidationData)
}

// --- DatabaseStrategy Tests ---

func databaseValidation(t *testing.T, data domain.DatabaseValidationData) domain.CustomValidation {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return domain.CustomValidation{Type: domain.ValidationTypeDatabase, Data: raw}
}

func TestDatabaseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		row     fakeRow
		success bool
	}{
		{name: "true passes", row: fakeRow{value: true}, success: true},
		{name: "false fails", row: fakeRow{value: false}},
		{name: "no rows fails", row: fakeRow{err: pgx.ErrNoRows}},
		{name: "query error fails", row: fakeRow{err: errors.New("relation does not exist")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{row: tt.row}
			s := NewDatabaseStrategy(map[string]Querier{"billing": db})

			v := databaseValidation(t, domain.DatabaseValidationData{
				ConnectionName: "billing",
				Query:          "SELECT balance >= @limit FROM accounts WHERE owner = @owner",
				Parameters:     map[string]any{"limit": 100, "owner": "{{userId}}"},
			})

			result, err := s.Validate(context.Background(), testContext(), v)
			require.NoError(t, err)
			assert.Equal(t, tt.success, result.Success)
			if !tt.success {
				assert.NotEmpty(t, result.Message)
			}

			require.Len(t, db.gotArgs, 1)
			args, ok := db.gotArgs[0].(pgx.NamedArgs)
			require.True(t, ok)
			assert.Equal(t, testUser.String(), args["owner"])
			assert.Equal(t, float64(100), args["limit"])
			assert.Equal(t, int64(42), args["processId"])
		})
	}
}

func TestDatabaseStrategy_UnknownConnection(t *testing.T) {
	s := NewDatabaseStrategy(nil)

	v := databaseValidation(t, domain.DatabaseValidationData{ConnectionName: "crm", Query: "SELECT true"})

	_, err := s.Validate(context.Background(), testContext(), v)
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

// --- ExpressionStrategy Tests ---

func TestExpressionStrategy(t *testing.T) {
	tests := []struct {
		expression string
		success    bool
	}{
		{expression: `action == "Approve"`, success: true},
		{expression: `action == "Submit"`, success: false},
		{expression: `processId > 40 && lower(stepName) == "review"`, success: true},
		{expression: `stepId < 0`, success: false},
	}

	s := NewExpressionStrategy()

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			raw, err := json.Marshal(domain.ExpressionValidationData{Expression: tt.expression})
			require.NoError(t, err)

			v := domain.CustomValidation{Type: domain.ValidationTypeExpression, Data: raw}
			result, err := s.Validate(context.Background(), testContext(), v)
			require.NoError(t, err)
			assert.Equal(t, tt.success, result.Success, result.Message)
		})
	}
}

func TestExpressionStrategy_CachesPrograms(t *testing.T) {
	s := NewExpressionStrategy()
	raw := json.RawMessage(`{"expression": "action == \"Approve\""}`)
	v := domain.CustomValidation{Type: domain.ValidationTypeExpression, Data: raw}

	for i := 0; i < 3; i++ {
		_, err := s.Validate(context.Background(), testContext(), v)
		require.NoError(t, err)
	}

	assert.Len(t, s.cache, 1)
}

func TestExpressionStrategy_RejectsNonBoolExpression(t *testing.T) {
	v := domain.CustomValidation{Type: domain.ValidationTypeExpression, Data: json.RawMessage(`{"expression": "stepId"}`)}

	_, err := NewExpressionStrategy().Validate(context.Background(), testContext(), v)
	assert.ErrorIs(t, err, domain.ErrInvalidValidationData)
}

// --- Dispatcher Tests ---

type stubStrategy struct {
	kind   domain.ValidationType
	result Result
	err    error
	delay  time.Duration
	calls  int
}

func (s *stubStrategy) Kind() domain.ValidationType { return s.kind }

func (s *stubStrategy) Validate(ctx context.Context, _ Context, _ domain.CustomValidation) (Result, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Failed("timed out: "+ctx.Err().Error(), ""), nil
		}
	}
	return s.result, s.err
}

func TestDispatcher_LogsSuccessAndFailure(t *testing.T) {
	pass := &stubStrategy{kind: domain.ValidationTypeAPI, result: Passed(`{"status":"200"}`)}
	fail := &stubStrategy{kind: domain.ValidationTypeExpression, result: Failed("nope", "false")}

	r := NewRegistry()
	r.Register(pass)
	r.Register(fail)

	logs := &memLogs{}
	d := NewDispatcher(Config{Registry: r, Logs: logs})

	res, err := d.Validate(context.Background(), domain.CustomValidation{Type: domain.ValidationTypeAPI}, testContext())
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = d.Validate(context.Background(), domain.CustomValidation{Type: domain.ValidationTypeExpression}, testContext())
	require.NoError(t, err)
	assert.False(t, res.Success)

	require.Len(t, logs.entries, 2)
	assert.True(t, logs.entries[0].IsSuccess)
	assert.Equal(t, `{"status":"200"}`, logs.entries[0].RawResponse)
	assert.False(t, logs.entries[1].IsSuccess)
	assert.Equal(t, "nope", logs.entries[1].ErrorMessage)
	assert.Equal(t, int64(42), logs.entries[1].ProcessID)
	assert.Equal(t, int64(7), logs.entries[1].StepID)
}

func TestDispatcher_NoStrategy(t *testing.T) {
	d := NewDispatcher(Config{Registry: NewRegistry()})

	res, err := d.Validate(context.Background(), domain.CustomValidation{Type: domain.ValidationTypeDatabase}, testContext())
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, "no validator registered for type Database", res.Message)
}

func TestDispatcher_StrategyErrorIsFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{kind: domain.ValidationTypeAPI, err: errors.New("bad config")})

	d := NewDispatcher(Config{Registry: r})

	res, err := d.Validate(context.Background(), domain.CustomValidation{Type: domain.ValidationTypeAPI}, testContext())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "bad config", res.Message)
}

func TestDispatcher_Timeout(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{kind: domain.ValidationTypeAPI, result: Passed(""), delay: time.Second})

	d := NewDispatcher(Config{Registry: r, Timeout: 20 * time.Millisecond})

	res, err := d.Validate(context.Background(), domain.CustomValidation{Type: domain.ValidationTypeAPI}, testContext())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "timed out")
}

func TestDispatcher_LogStoreError(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{kind: domain.ValidationTypeAPI, result: Passed("")})

	d := NewDispatcher(Config{Registry: r, Logs: &memLogs{err: errors.New("db down")}})

	_, err := d.Validate(context.Background(), domain.CustomValidation{Type: domain.ValidationTypeAPI}, testContext())
	assert.Error(t, err)
}

func TestDispatcher_ValidateAll_StopsAtFirstFailure(t *testing.T) {
	pass := &stubStrategy{kind: domain.ValidationTypeAPI, result: Passed("")}
	fail := &stubStrategy{kind: domain.ValidationTypeExpression, result: Failed("limit exceeded", "")}
	never := &stubStrategy{kind: domain.ValidationTypeDatabase, result: Passed("")}

	r := NewRegistry()
	r.Register(pass)
	r.Register(fail)
	r.Register(never)

	logs := &memLogs{}
	d := NewDispatcher(Config{Registry: r, Logs: logs})

	validations := []domain.CustomValidation{
		{ID: 1, Type: domain.ValidationTypeAPI},
		{ID: 2, Type: domain.ValidationTypeExpression},
		{ID: 3, Type: domain.ValidationTypeDatabase},
	}

	err := d.ValidateAll(context.Background(), validations, testContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailed)

	var fErr *FailedError
	require.ErrorAs(t, err, &fErr)
	assert.Equal(t, int64(2), fErr.ValidationID)
	assert.Equal(t, "limit exceeded", fErr.Message)

	assert.Equal(t, 1, pass.calls)
	assert.Equal(t, 1, fail.calls)
	assert.Equal(t, 0, never.calls)
	assert.Len(t, logs.entries, 2)
}

func TestDispatcher_ValidateAll_Empty(t *testing.T) {
	d := NewDispatcher(Config{})
	assert.NoError(t, d.ValidateAll(context.Background(), nil, testContext()))
}
