package pinecone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type fakePinecone struct {
	mu         sync.Mutex
	url        string
	exists     bool
	readyAfter int
	describes  int
	dimension  int
	createBody map[string]any
	upserted   []vector
	deleteAll  bool
	lastQuery  map[string]any
}

func (f *fakePinecone) describe(w http.ResponseWriter) {
	f.describes++
	ready := f.describes > f.readyAfter
	fmt.Fprintf(w, `{"name":"gemini-index","dimension":%d,"metric":"cosine","host":%q,"status":{"ready":%t,"state":"Ready"}}`,
		f.dimension, f.url, ready)
}

func (f *fakePinecone) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Equal(t, "pc-key", r.Header.Get("Api-Key"))
		assert.Equal(t, apiVersion, r.Header.Get("X-Pinecone-API-Version"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/indexes/gemini-index":
			if !f.exists {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"Resource gemini-index not found"}}`))
				return
			}
			f.describe(w)
		case r.Method == http.MethodPost && r.URL.Path == "/indexes":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&f.createBody))
			f.exists = true
			f.dimension = int(f.createBody["dimension"].(float64))
			w.WriteHeader(http.StatusCreated)
			f.describe(w)
		case r.Method == http.MethodPost && r.URL.Path == "/vectors/upsert":
			var body struct {
				Vectors []vector `json:"vectors"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.upserted = append(f.upserted, body.Vectors...)
			fmt.Fprintf(w, `{"upsertedCount":%d}`, len(body.Vectors))
		case r.Method == http.MethodPost && r.URL.Path == "/query":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastQuery))
			_, _ = w.Write([]byte(`{"matches":[
				{"id":"notes.txt","score":0.42,"metadata":{"file_name":"notes.txt"}},
				{"id":"report.pdf","score":0.91,"metadata":{"file_name":"report.pdf"}}
			],"namespace":""}`))
		case r.Method == http.MethodPost && r.URL.Path == "/vectors/delete":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.deleteAll = body["deleteAll"] == true
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
}

func newFake(t *testing.T, f *fakePinecone) (*Storage, func()) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	f.url = srv.URL
	s, err := NewStorage(Config{APIKey: "pc-key", ControlURL: srv.URL, Index: "gemini-index", Cloud: "aws", Region: "us-east-1"})
	require.NoError(t, err)
	s.readyPoll = time.Millisecond
	return s, srv.Close
}

func TestNewStorage_Validation(t *testing.T) {
	_, err := NewStorage(Config{Index: "x"})
	assert.Error(t, err)
	_, err = NewStorage(Config{APIKey: "k"})
	assert.Error(t, err)
}

func TestInit_CreatesServerlessIndex(t *testing.T) {
	f := &fakePinecone{readyAfter: 2}
	s, done := newFake(t, f)
	defer done()

	require.NoError(t, s.Init(context.Background(), 768))

	assert.Equal(t, "gemini-index", f.createBody["name"])
	assert.Equal(t, float64(768), f.createBody["dimension"])
	assert.Equal(t, "cosine", f.createBody["metric"])
	serverless := f.createBody["spec"].(map[string]any)["serverless"].(map[string]any)
	assert.Equal(t, "aws", serverless["cloud"])
	assert.Equal(t, "us-east-1", serverless["region"])
	assert.Equal(t, f.url, s.dataHost())
}

func TestInit_ExistingIndexDimensionMismatch(t *testing.T) {
	f := &fakePinecone{exists: true, dimension: 1536}
	s, done := newFake(t, f)
	defer done()

	err := s.Init(context.Background(), 768)
	assert.ErrorContains(t, err, "dimension 1536")
}

func TestInit_ConfiguredHostStillChecksDimension(t *testing.T) {
	f := &fakePinecone{exists: true, dimension: 1536}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()
	f.url = srv.URL

	s, err := NewStorage(Config{APIKey: "pc-key", ControlURL: srv.URL, Host: srv.URL, Index: "gemini-index"})
	require.NoError(t, err)
	assert.ErrorContains(t, s.Init(context.Background(), 768), "dimension 1536")
	assert.NoError(t, s.Init(context.Background(), 1536))

	// an unreachable control plane leaves the configured host in use
	s, err = NewStorage(Config{APIKey: "pc-key", ControlURL: "http://127.0.0.1:1", Host: srv.URL, Index: "gemini-index"})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background(), 768))
	assert.Equal(t, srv.URL, s.dataHost())
}

func TestUpsertQueryClear(t *testing.T) {
	f := &fakePinecone{exists: true, dimension: 2}
	s, done := newFake(t, f)
	defer done()
	ctx := context.Background()

	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Record{{FileName: "report.pdf", Vector: []float32{1, 0}}}))
	require.Len(t, f.upserted, 1)
	assert.Equal(t, "report.pdf", f.upserted[0].ID)
	assert.Equal(t, "report.pdf", f.upserted[0].Metadata["file_name"])

	got, err := s.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.Match{
		{FileName: "report.pdf", Score: 0.91},
		{FileName: "notes.txt", Score: 0.42},
	}, got)
	assert.Equal(t, float64(5), f.lastQuery["topK"])
	assert.Equal(t, true, f.lastQuery["includeMetadata"])

	require.NoError(t, s.Clear(ctx))
	assert.True(t, f.deleteAll)
}

func TestDataPlaneRequiresInit(t *testing.T) {
	s, err := NewStorage(Config{APIKey: "k", Index: "i"})
	require.NoError(t, err)
	_, err = s.Query(context.Background(), []float32{1}, 1)
	assert.Error(t, err)
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "https://idx-abc.svc.pinecone.io", normalizeHost("idx-abc.svc.pinecone.io"))
	assert.Equal(t, "http://localhost:5080", normalizeHost("http://localhost:5080/"))
}
