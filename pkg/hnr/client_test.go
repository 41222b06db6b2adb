package hnr_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/reap/pkg/hnr"
)

type fakeAPI struct {
	codes   map[string]int
	fail    map[int]int // Batch index to HTTP status.
	batches [][]string
	mu      sync.Mutex
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.Header.Get("Authorization") != "Bearer secret" ||
		r.Header.Get("Content-Type") != "application/json" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req struct {
		InfoHash []string `json:"info_hash"`
	}

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	idx := len(f.batches)
	f.batches = append(f.batches, req.InfoHash)
	status, fail := f.fail[idx]
	f.mu.Unlock()

	if fail {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("tracker unavailable"))

		return
	}

	type record struct {
		Torrent map[string]string `json:"torrent"`
		Status  map[string]int    `json:"status"`
	}

	data := []record{}
	for _, h := range req.InfoHash {
		code, ok := f.codes[h]
		if !ok {
			continue
		}

		data = append(data, record{
			Torrent: map[string]string{"info_hash": h},
			Status:  map[string]int{"hnr_status_code": code},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (f *fakeAPI) batchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	sizes := make([]int, 0, len(f.batches))
	for _, b := range f.batches {
		sizes = append(sizes, len(b))
	}

	return sizes
}

func newServer(t *testing.T, api http.Handler) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	return srv
}

func hashes(n int) []string {
	out := make([]string, 0, n)
	for i := range n {
		out = append(out, fmt.Sprintf("%040x", i))
	}

	return out
}

func TestClient_CheckTorrents(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{codes: map[string]int{"a": 20, "b": 5, "d": 21}}
	srv := newServer(t, api)

	c := hnr.NewClient(srv.URL, "secret", hnr.WithHTTPClient(srv.Client()))

	got, err := c.CheckTorrents(t.Context(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true, "b": false, "d": true}, got)
	assert.Equal(t, []int{4}, api.batchSizes())
}

func TestClient_Batching(t *testing.T) {
	t.Parallel()

	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			t.Parallel()

			all := hashes(120)
			codes := make(map[string]int, len(all))
			for i, h := range all {
				codes[h] = 20 + i%2
			}

			api := &fakeAPI{codes: codes}
			srv := newServer(t, api)

			c := hnr.NewClient(srv.URL, "secret",
				hnr.WithHTTPClient(srv.Client()),
				hnr.WithBatchSize(50),
				hnr.WithConcurrency(concurrency),
			)

			got, err := c.Lookup(t.Context(), all)
			require.NoError(t, err)
			assert.Len(t, got, 120)
			assert.ElementsMatch(t, []int{50, 50, 20}, api.batchSizes())

			for i, h := range all {
				assert.Equal(t, hnr.Record{Hash: h, StatusCode: 20 + i%2}, got[h])
			}
		})
	}
}

func TestClient_DefaultBatchSize(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{codes: map[string]int{}}
	srv := newServer(t, api)

	c := hnr.NewClient(srv.URL, "secret", hnr.WithHTTPClient(srv.Client()))

	got, err := c.Lookup(t.Context(), hashes(101))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []int{50, 50, 1}, api.batchSizes())
}

func TestClient_NoHashes(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	srv := newServer(t, api)

	c := hnr.NewClient(srv.URL, "secret", hnr.WithHTTPClient(srv.Client()))

	got, err := c.CheckTorrents(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, api.batchSizes())
}

func TestClient_SatisfiedCodes(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{codes: map[string]int{"a": 20, "b": 7}}
	srv := newServer(t, api)

	c := hnr.NewClient(srv.URL, "secret",
		hnr.WithHTTPClient(srv.Client()),
		hnr.WithSatisfiedCodes(7),
	)

	got, err := c.CheckTorrents(t.Context(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": false, "b": true}, got)
}

func TestClient_NormalizesHashes(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"torrent":{"info_hash":"ABC"},"status":{"hnr_status_code":20}},
			{"torrent":{"info_hash":"abc"},"status":{"hnr_status_code":5}}
		]}`))
	}))

	c := hnr.NewClient(srv.URL, "secret", hnr.WithHTTPClient(srv.Client()))

	// The last record for a hash wins.
	got, err := c.Lookup(t.Context(), []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, map[string]hnr.Record{"abc": {Hash: "abc", StatusCode: 5}}, got)
}

func TestClient_RepeatedRecords(t *testing.T) {
	t.Parallel()

	t.Run("within a batch", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[
				{"torrent":{"info_hash":"a"},"status":{"hnr_status_code":5}},
				{"torrent":{"info_hash":"a"},"status":{"hnr_status_code":20}}
			]}`))
		}))

		c := hnr.NewClient(srv.URL, "secret", hnr.WithHTTPClient(srv.Client()))

		got, err := c.CheckTorrents(t.Context(), []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"a": true}, got)
	})

	t.Run("across batches", func(t *testing.T) {
		t.Parallel()

		// Every batch reports on "z"; the code depends on which hash was asked for.
		codes := map[string]int{"a": 20, "b": 5, "c": 21}
		srv := newServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				InfoHash []string `json:"info_hash"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.InfoHash) != 1 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			_, _ = fmt.Fprintf(w, `{"data":[{"torrent":{"info_hash":"z"},"status":{"hnr_status_code":%d}}]}`,
				codes[req.InfoHash[0]])
		}))

		c := hnr.NewClient(srv.URL, "secret",
			hnr.WithHTTPClient(srv.Client()),
			hnr.WithBatchSize(1),
			hnr.WithConcurrency(3),
		)

		for range 5 {
			got, err := c.Lookup(t.Context(), []string{"a", "b", "c"})
			require.NoError(t, err)
			assert.Equal(t, map[string]hnr.Record{"z": {Hash: "z", StatusCode: 21}}, got)
		}
	})
}

func TestClient_Failures(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		handler http.HandlerFunc
		want    string
	}{
		"non-success status": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte("bad token\n"))
			},
			want: "unexpected status 403: bad token",
		},
		"malformed payload": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data": [`))
			},
			want: "decode response",
		},
		"record without hash": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":[{"torrent":{},"status":{"hnr_status_code":20}}]}`))
			},
			want: "missing torrent.info_hash",
		},
		"record without status": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":[{"torrent":{"info_hash":"a"},"status":{}}]}`))
			},
			want: "missing status.hnr_status_code",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := newServer(t, tc.handler)
			c := hnr.NewClient(srv.URL, "secret", hnr.WithHTTPClient(srv.Client()))

			got, err := c.CheckTorrents(t.Context(), []string{"a"})
			require.ErrorIs(t, err, hnr.ErrConnectionFailure)
			assert.ErrorContains(t, err, tc.want)
			assert.Nil(t, got)

			var connErr *hnr.ConnectionError
			require.ErrorAs(t, err, &connErr)
			assert.Equal(t, 0, connErr.Batch)
			assert.Equal(t, 1, connErr.Size)
		})
	}
}

func TestClient_FailedBatchFailsLookup(t *testing.T) {
	t.Parallel()

	all := hashes(120)
	codes := make(map[string]int, len(all))
	for _, h := range all {
		codes[h] = 20
	}

	api := &fakeAPI{codes: codes, fail: map[int]int{1: http.StatusBadGateway}}
	srv := newServer(t, api)

	c := hnr.NewClient(srv.URL, "secret", hnr.WithHTTPClient(srv.Client()), hnr.WithBatchSize(50))

	got, err := c.CheckTorrents(t.Context(), all)
	require.ErrorIs(t, err, hnr.ErrConnectionFailure)
	assert.Nil(t, got)

	var statusErr *hnr.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)

	// Sequential dispatch stops at the failed batch.
	assert.Equal(t, []int{50, 50}, api.batchSizes())
}

func TestClient_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := hnr.NewClient(url, "secret", hnr.WithTimeout(time.Second))

	_, err := c.CheckTorrents(t.Context(), []string{"a"})
	require.ErrorIs(t, err, hnr.ErrConnectionFailure)
	assert.ErrorContains(t, err, "send request")
}

func TestClient_RateLimit(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{codes: map[string]int{}}
	srv := newServer(t, api)

	c := hnr.NewClient(srv.URL, "secret",
		hnr.WithHTTPClient(srv.Client()),
		hnr.WithBatchSize(1),
		hnr.WithRateLimit(20),
	)

	start := time.Now()

	_, err := c.Lookup(t.Context(), hashes(3))
	require.NoError(t, err)

	// The first request uses the burst; the other two wait 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Len(t, api.batchSizes(), 3)
}
