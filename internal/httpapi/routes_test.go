package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"repdir-backend/internal/directory"
	"repdir-backend/internal/model"
	"repdir-backend/internal/rejections"
	"repdir-backend/internal/storage"
)

type flakyPersister struct {
	*storage.MemoryPersister
	fail bool
}

func (p *flakyPersister) Save(ctx context.Context, dir model.Directory) error {
	if p.fail {
		return errors.New("disk full")
	}
	return p.MemoryPersister.Save(ctx, dir)
}

type testEnv struct {
	handler   http.Handler
	persister *flakyPersister
}

func newEnv(t *testing.T, global bool, opts Options) *testEnv {
	t.Helper()
	p := &flakyPersister{MemoryPersister: storage.NewMemoryPersister(nil)}
	store, err := directory.Open(context.Background(), p, directory.Options{
		AllowGlobalLookup: global,
		Logger:            zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	opts.Logger = zaptest.NewLogger(t)
	return &testEnv{handler: NewServer(store, opts).Handler(), persister: p}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body messageBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Message
}

const ashaBody = `{"locality":"Pune","name":"Asha Patil","designation":"MLA","phone":"9876543210","email":"a@p.com"}`

func TestHealth(t *testing.T) {
	env := newEnv(t, false, Options{})
	rec := env.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"API is running"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestAddLookupDeleteScenario(t *testing.T) {
	env := newEnv(t, false, Options{})

	rec := env.do(t, http.MethodPost, "/api/representatives", ashaBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Representative added successfully", message(t, rec))

	rec = env.do(t, http.MethodGet, "/api/representatives/pune", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"Asha Patil","designation":"MLA","phone":"9876543210","email":"a@p.com"}]`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/representatives", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pune":[{"name":"Asha Patil","designation":"MLA","phone":"9876543210","email":"a@p.com"}]}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/representatives", ashaBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Asha Patil already exists in this locality", message(t, rec))

	rec = env.do(t, http.MethodDelete, "/api/representatives", `{"locality":"Pune","name":"Asha Patil"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Representative deleted successfully", message(t, rec))

	rec = env.do(t, http.MethodGet, "/api/representatives/pune", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Locality not found", message(t, rec))
}

func TestAddValidationResponses(t *testing.T) {
	env := newEnv(t, false, Options{})
	tests := []struct {
		body string
		want string
	}{
		{`{"name":"A","designation":"MLA"}`, "Locality, name, and designation are required"},
		{`{"locality":"Pune","name":"A","designation":"King","phone":"1"}`, "Invalid designation selected"},
		{`{"locality":"Pune","name":"A","designation":"MLA","phone":"12345","email":"x"}`, "Phone number must be exactly 10 digits"},
		{`{"locality":"Pune","name":"A","designation":"MLA","email":"not-an-email"}`, "Invalid email format"},
		{`{"locality":"Ward 3/North","name":"A","designation":"MLA"}`, "Locality must not contain '/'"},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodPost, "/api/representatives", tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Equal(t, tt.want, message(t, rec), tt.body)
	}
}

func TestInvalidJSON(t *testing.T) {
	env := newEnv(t, false, Options{})
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := env.do(t, method, "/api/representatives", "{broken")
		assert.Equal(t, http.StatusBadRequest, rec.Code, method)
		assert.Equal(t, "Invalid JSON body", message(t, rec), method)
	}
}

func TestOversizedBodyIs413(t *testing.T) {
	env := newEnv(t, false, Options{})
	body := `{"locality":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	rec := env.do(t, http.MethodPost, "/api/representatives", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", message(t, rec))
}

func TestUpdate(t *testing.T) {
	env := newEnv(t, false, Options{})
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/representatives", ashaBody).Code)

	rec := env.do(t, http.MethodPut, "/api/representatives",
		`{"locality":"pune","originalName":"asha patil","name":"Asha Deshmukh","designation":"Mayor"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Representative updated successfully", message(t, rec))

	rec = env.do(t, http.MethodGet, "/api/representatives/Pune", "")
	assert.JSONEq(t, `[{"name":"Asha Deshmukh","designation":"Mayor","phone":"","email":""}]`, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/representatives",
		`{"locality":"pune","originalName":"Nobody","name":"X","designation":"MP"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Representative not found", message(t, rec))

	rec = env.do(t, http.MethodPut, "/api/representatives",
		`{"originalName":"Asha Deshmukh","name":"X","designation":"MP"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Locality, original name, new name, and designation are required", message(t, rec))
}

func TestGlobalLookupMode(t *testing.T) {
	env := newEnv(t, true, Options{})
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/representatives", ashaBody).Code)

	rec := env.do(t, http.MethodPut, "/api/representatives",
		`{"originalName":"Asha Patil","name":"Asha Patil","designation":"MP"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/representatives", `{"name":"asha patil"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/representatives", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name is required", message(t, rec))
}

func TestDeleteNotFound(t *testing.T) {
	env := newEnv(t, false, Options{})
	rec := env.do(t, http.MethodDelete, "/api/representatives", `{"locality":"Pune","name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Representative not found", message(t, rec))
}

func TestPersistFailureIs500(t *testing.T) {
	env := newEnv(t, false, Options{})
	env.persister.fail = true

	rec := env.do(t, http.MethodPost, "/api/representatives", ashaBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", message(t, rec))

	rec = env.do(t, http.MethodGet, "/api/representatives", "")
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestFilteredList(t *testing.T) {
	env := newEnv(t, false, Options{})
	for _, body := range []string{
		ashaBody,
		`{"locality":"Pune","name":"Ravi","designation":"MP"}`,
		`{"locality":"Nashik","name":"Meera","designation":"MLA"}`,
	} {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/representatives", body).Code)
	}

	rec := env.do(t, http.MethodGet, "/api/representatives?designation=MLA", "")
	var dir model.Directory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dir))
	assert.Len(t, dir, 2)
	assert.Len(t, dir["pune"], 1)

	rec = env.do(t, http.MethodGet, "/api/representatives?search=NAS&designation=MLA&designation=MP", "")
	dir = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dir))
	assert.Equal(t, model.Directory{"nashik": {{Name: "Meera", Designation: "MLA"}}}, dir)

	rec = env.do(t, http.MethodGet, "/api/representatives?search=goa", "")
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestStatsAreInvalidatedByWrites(t *testing.T) {
	env := newEnv(t, false, Options{})

	rec := env.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st directory.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Zero(t, st.Total)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/representatives", ashaBody).Code)

	rec = env.do(t, http.MethodGet, "/api/stats", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.Localities)
	assert.Equal(t, 1, st.MLA)
}

// pausingDirectory holds the first Snapshot caller after the copy is taken,
// leaving room for a write to commit before the stats are cached.
type pausingDirectory struct {
	*directory.Store
	once    sync.Once
	taken   chan struct{}
	release chan struct{}
}

func (d *pausingDirectory) Snapshot() (model.Directory, uint64) {
	dir, gen := d.Store.Snapshot()
	d.once.Do(func() {
		close(d.taken)
		<-d.release
	})
	return dir, gen
}

func TestStatsComputedBeforeWriteAreNotServedAfterIt(t *testing.T) {
	store, err := directory.Open(context.Background(), storage.NewMemoryPersister(nil), directory.Options{
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	dir := &pausingDirectory{Store: store, taken: make(chan struct{}), release: make(chan struct{})}
	env := &testEnv{handler: NewServer(dir, Options{Logger: zaptest.NewLogger(t)}).Handler()}

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		done <- rec
	}()

	<-dir.taken
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/representatives", ashaBody).Code)
	close(dir.release)

	var st directory.Stats
	require.NoError(t, json.Unmarshal((<-done).Body.Bytes(), &st))
	assert.Zero(t, st.Total)

	rec := env.do(t, http.MethodGet, "/api/stats", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Total)
}

func TestDesignations(t *testing.T) {
	env := newEnv(t, false, Options{})
	rec := env.do(t, http.MethodGet, "/api/designations", "")
	var got []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.Designations(), got)
}

func TestSuggestions(t *testing.T) {
	env := newEnv(t, false, Options{})
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/representatives", ashaBody).Code)

	rec := env.do(t, http.MethodGet, "/api/suggestions?q=pat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"locality":"pune","name":"Asha Patil","designation":"MLA"}]`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/suggestions", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUnknownAPIRoute(t *testing.T) {
	env := newEnv(t, false, Options{})
	rec := env.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", message(t, rec))
}

func TestSPAFallback(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>dashboard</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "script.js"), []byte("loadDashboard()"), 0o644))
	env := newEnv(t, false, Options{StaticDir: static})

	rec := env.do(t, http.MethodGet, "/script.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loadDashboard()", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/some/client/route", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard")

	noStatic := newEnv(t, false, Options{})
	rec = noStatic.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t, false, Options{AllowedOrigins: []string{"https://dash.example.org"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/representatives", nil)
	req.Header.Set("Origin", "https://dash.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "https://dash.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRejectedWritesAreRecorded(t *testing.T) {
	dir := t.TempDir()
	env := newEnv(t, false, Options{Rejections: rejections.NewStore(dir)})

	env.do(t, http.MethodPost, "/api/representatives", `{"locality":"Pune","name":"A","designation":"King"}`)
	env.do(t, http.MethodPost, "/api/representatives", ashaBody)
	env.do(t, http.MethodPost, "/api/representatives", ashaBody)

	files, err := filepath.Glob(filepath.Join(dir, "rejections_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	var reasons []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		assert.Equal(t, "add", rec["scope"])
		reasons = append(reasons, rec["reason"].(string))
	}
	assert.Equal(t, []string{"Invalid designation selected", "Asha Patil already exists in this locality"}, reasons)
}

func TestRecovererReturnsJSON(t *testing.T) {
	h := recoverer(zaptest.NewLogger(t), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, rec.Body.String())
}
