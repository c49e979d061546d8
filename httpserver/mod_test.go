package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/securesum/storage"
	"go.dedis.ch/securesum/types"
)

func newStore(t *testing.T, n int) storage.KVStore {
	store := storage.NewBasicKV()
	for i := 0; i < n; i++ {
		res := types.Result{
			RunID:     "run",
			Party:     types.PartyID(i),
			Secret:    int64(1000 + i),
			GlobalSum: 100,
			Parties:   n,
			Average:   100 / int64(n),
			Standing:  types.Above,
		}
		require.NoError(t, store.Put(strconv.Itoa(i), res))
	}
	return store
}

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func Test_HTTP_Health(t *testing.T) {
	s := NewServer(newStore(t, 2))

	w := get(t, s.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, float64(2), body["results"])
}

func Test_HTTP_Results(t *testing.T) {
	s := NewServer(newStore(t, 12))

	w := get(t, s.Handler(), "/results")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NotContains(t, w.Body.String(), "1003")
	require.Contains(t, w.Body.String(), `"Standing":"above"`)

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 12)
	for i, r := range results {
		require.Equal(t, float64(i), r["Party"])
		_, ok := r["Secret"]
		require.False(t, ok)
	}

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = get(t, s.Handler(), "/results", "If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, w.Code)
}

func Test_HTTP_ETag_Changes(t *testing.T) {
	store := newStore(t, 1)
	s := NewServer(store)

	first := get(t, s.Handler(), "/results").Header().Get("ETag")
	require.NoError(t, store.Put("1", types.Result{Party: 1}))
	second := get(t, s.Handler(), "/results").Header().Get("ETag")

	require.NotEqual(t, first, second)

	w := get(t, s.Handler(), "/results", "If-None-Match", first)
	require.Equal(t, http.StatusOK, w.Code)
}

func Test_HTTP_Result(t *testing.T) {
	s := NewServer(newStore(t, 3))

	w := get(t, s.Handler(), "/results/2")
	require.Equal(t, http.StatusOK, w.Code)

	var r map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	require.Equal(t, float64(2), r["Party"])
	require.Equal(t, float64(33), r["Average"])

	require.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/results/3").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/results/abc").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/results/-1").Code)
}

func Test_HTTP_Start_Stop(t *testing.T) {
	s := NewServer(newStore(t, 1))

	addr, err := s.Start("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
