package sysaid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pageServer struct {
	mu       sync.Mutex
	offsets  []int
	requests []*http.Request
	handle   func(w http.ResponseWriter, r *http.Request, offset, limit int)
}

func (s *pageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	s.requests = append(s.requests, r.Clone(context.Background()))
	s.mu.Unlock()

	s.handle(w, r, offset, limit)
}

func newPageServer(t testing.TB, handle func(w http.ResponseWriter, r *http.Request, offset, limit int)) (*pageServer, *Collector) {
	ps := &pageServer{handle: handle}
	server := httptest.NewServer(ps)
	t.Cleanup(server.Close)

	collector, err := NewCollector(CollectorOptions{
		BaseUrl:        server.URL,
		RequestTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	return ps, collector
}

func writeRecords(w http.ResponseWriter, n, start int) {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{
			"id": start + i,
			"info": []map[string]any{
				{"keyCaption": "Priority", "valueCaption": "High"},
			},
		}
	}
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

var testJar = NewCookieJar([]Cookie{
	{Name: "JSESSIONID", Value: "abc"},
	{Name: "SERVERID", Value: "s1"},
})

func TestCollectAllPaginates(t *testing.T) {
	ps, collector := newPageServer(t, func(w http.ResponseWriter, r *http.Request, offset, limit int) {
		if offset >= 1000 {
			w.Header().Set("content-type", "application/json")
			fmt.Fprint(w, "[]")
			return
		}
		writeRecords(w, limit, offset)
	})

	records, err := collector.CollectAll(context.Background(), testJar, 500)
	require.NoError(t, err)
	require.Len(t, records, 1000)
	require.Equal(t, []int{0, 500, 1000}, ps.offsets)

	entries, ok := records[999].Entries()
	require.True(t, ok)
	require.Equal(t, "Priority", entries[0].KeyCaption)

	for _, req := range ps.requests {
		require.Equal(t, "JSESSIONID=abc; SERVERID=s1", req.Header.Get("Cookie"))
		require.Equal(t, "application/json", req.Header.Get("Accept"))
		require.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))
		require.Equal(t, "500", req.URL.Query().Get("limit"))
		require.Equal(t, "/api/v1/sr", req.URL.Path)
	}
}

func TestCollectAllEmptyBodies(t *testing.T) {
	for _, body := range []string{"", "null", "[]", "  [ ]\n"} {
		t.Run(strconv.Quote(body), func(t *testing.T) {
			ps, collector := newPageServer(t, func(w http.ResponseWriter, r *http.Request, offset, limit int) {
				if offset == 0 {
					writeRecords(w, limit, offset)
					return
				}
				fmt.Fprint(w, body)
			})

			records, err := collector.CollectAll(context.Background(), testJar, 2)
			require.NoError(t, err)
			require.Len(t, records, 2)
			require.Equal(t, []int{0, 2}, ps.offsets)
		})
	}
}

func TestCollectAllEmptyHtmlBodyEndsCollection(t *testing.T) {
	ps, collector := newPageServer(t, func(w http.ResponseWriter, r *http.Request, offset, limit int) {
		if offset == 0 {
			writeRecords(w, limit, offset)
			return
		}
		w.Header().Set("Content-Type", "text/html;charset=UTF-8")
		w.WriteHeader(http.StatusOK)
	})

	records, err := collector.CollectAll(context.Background(), testJar, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []int{0, 2}, ps.offsets)
}

func TestCollectAllServerError(t *testing.T) {
	ps, collector := newPageServer(t, func(w http.ResponseWriter, r *http.Request, offset, limit int) {
		if offset == 0 {
			writeRecords(w, limit, offset)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	records, err := collector.CollectAll(context.Background(), testJar, 10)
	require.Nil(t, records)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, 10, fetchErr.Offset)
	require.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Equal(t, []int{0, 10}, ps.offsets)
}

func TestCollectAllSessionExpired(t *testing.T) {
	cases := map[string]func(w http.ResponseWriter){
		"unauthorized": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		"forbidden": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusForbidden)
		},
		"login page": func(w http.ResponseWriter) {
			w.Header().Set("content-type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><form><input name=\"userName\"></form></html>")
		},
	}
	for name, respond := range cases {
		t.Run(name, func(t *testing.T) {
			_, collector := newPageServer(t, func(w http.ResponseWriter, r *http.Request, offset, limit int) {
				respond(w)
			})
			_, err := collector.CollectAll(context.Background(), testJar, 10)
			require.ErrorIs(t, err, ErrSessionExpired)
		})
	}
}

func TestCollectAllMalformedPage(t *testing.T) {
	_, collector := newPageServer(t, func(w http.ResponseWriter, r *http.Request, offset, limit int) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"rows": []}`)
	})
	_, err := collector.CollectAll(context.Background(), testJar, 10)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.ErrorIs(t, err, ErrMalformedPage)
	require.Equal(t, http.StatusOK, fetchErr.StatusCode)
}

func TestCollectAllPageLimit(t *testing.T) {
	ps := &pageServer{handle: func(w http.ResponseWriter, r *http.Request, offset, limit int) {
		writeRecords(w, limit, offset)
	}}
	server := httptest.NewServer(ps)
	defer server.Close()

	collector, err := NewCollector(CollectorOptions{BaseUrl: server.URL, MaxPages: 3})
	require.NoError(t, err)

	_, err = collector.CollectAll(context.Background(), testJar, 5)
	require.ErrorIs(t, err, ErrPageLimitExceeded)
	require.Equal(t, []int{0, 5, 10}, ps.offsets)
}

func TestCollectAllRetries(t *testing.T) {
	var mu sync.Mutex
	failures := 2
	ps := &pageServer{handle: func(w http.ResponseWriter, r *http.Request, offset, limit int) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if offset > 0 {
			fmt.Fprint(w, "[]")
			return
		}
		writeRecords(w, limit, offset)
	}}
	server := httptest.NewServer(ps)
	defer server.Close()

	collector, err := NewCollector(CollectorOptions{BaseUrl: server.URL, RetryCount: 2})
	require.NoError(t, err)
	collector.Http().SetRetryWaitTime(time.Millisecond)
	collector.Http().SetRetryMaxWaitTime(5 * time.Millisecond)

	records, err := collector.CollectAll(context.Background(), testJar, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []int{0, 0, 0, 3}, ps.offsets)
}

func TestCollectAllInvalidPageSize(t *testing.T) {
	_, collector := newPageServer(t, func(w http.ResponseWriter, r *http.Request, offset, limit int) {
		t.Fatal("no request expected")
	})
	_, err := collector.CollectAll(context.Background(), testJar, 0)
	require.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestCollectAllCanceled(t *testing.T) {
	_, collector := newPageServer(t, func(w http.ResponseWriter, r *http.Request, offset, limit int) {
		writeRecords(w, limit, offset)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collector.CollectAll(ctx, testJar, 10)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, 0, fetchErr.Offset)
}
