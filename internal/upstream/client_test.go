package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bookproxy/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsAuthorizationAndHeaders(t *testing.T) {
	var gotAuth, gotVersion, gotContentType string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("cal-api-version")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(ts.Close)

	c := NewClient(Options{
		Provider: "test",
		BaseURL:  ts.URL + "/",
		Token:    "secret",
		Headers:  map[string]string{"cal-api-version": "2024-08-13"},
	})
	assert.True(t, c.Configured())

	resp, err := c.PostJSON(context.Background(), "create", "/things", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "2024-08-13", gotVersion)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, float64(1), gotBody["n"])
}

func TestClientNotConfigured(t *testing.T) {
	c := NewClient(Options{Provider: "test", BaseURL: "http://example.invalid"})
	assert.False(t, c.Configured())
}

func TestGetJSONCachesSuccess(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"name":"Ben"}`))
	}))
	t.Cleanup(ts.Close)

	c := NewClient(Options{
		Provider: "test",
		BaseURL:  ts.URL,
		Token:    "t",
		Cache:    cache.NewMemoryCache(),
		CacheTTL: time.Minute,
	})

	for i := 0; i < 3; i++ {
		var out struct {
			Name string `json:"name"`
		}
		require.NoError(t, c.GetJSON(context.Background(), "me", "/me", "me", &out))
		assert.Equal(t, "Ben", out.Name)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetJSONStatusErrorNotCached(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}))
	t.Cleanup(ts.Close)

	c := NewClient(Options{
		Provider: "test",
		BaseURL:  ts.URL,
		Token:    "t",
		Cache:    cache.NewMemoryCache(),
		CacheTTL: time.Minute,
	})

	for i := 0; i < 2; i++ {
		var out map[string]any
		err := c.GetJSON(context.Background(), "link", "/links/x", "link:x", &out)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		assert.Contains(t, statusErr.Body, "not found")
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetJSONCorruptCacheEntryRefetches(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	t.Cleanup(ts.Close)

	mem := cache.NewMemoryCache()
	require.NoError(t, mem.Set(context.Background(), "link:abc", []byte(`{"id":"abc","durations":[15,"x"]}`), time.Minute))

	c := NewClient(Options{
		Provider: "test",
		BaseURL:  ts.URL,
		Token:    "t",
		Cache:    mem,
		CacheTTL: time.Minute,
	})

	var out struct {
		ID        string `json:"id"`
		Durations []int  `json:"durations"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "link", "/links/abc", "link:abc", &out))
	assert.Equal(t, "abc", out.ID)
	assert.Nil(t, out.Durations)
	assert.Equal(t, int32(1), hits.Load())

	cached, ok, err := mem.Get(context.Background(), "link:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"abc"}`, string(cached))
}

func TestDecodeFreshLeavesTargetOnError(t *testing.T) {
	out := struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{Name: "kept", Count: 7}

	assert.Error(t, decodeFresh([]byte(`{"name":"new","count":"x"}`), &out))
	assert.Equal(t, "kept", out.Name)
	assert.Equal(t, 7, out.Count)

	require.NoError(t, decodeFresh([]byte(`{"name":"new"}`), &out))
	assert.Equal(t, "new", out.Name)
	assert.Equal(t, 0, out.Count)
}

func TestGetJSONDecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	t.Cleanup(ts.Close)

	c := NewClient(Options{Provider: "test", BaseURL: ts.URL, Token: "t"})
	var out map[string]any
	assert.Error(t, c.GetJSON(context.Background(), "link", "/x", "", &out))
}

func TestClientTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := NewClient(Options{Provider: "test", BaseURL: url, Token: "t", Timeout: time.Second})
	_, err := c.Get(context.Background(), "link", "/x")
	assert.Error(t, err)
}

func TestClientTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(ts.Close)

	c := NewClient(Options{Provider: "test", BaseURL: ts.URL, Token: "t", Timeout: 50 * time.Millisecond})
	_, err := c.Get(context.Background(), "slow", "/slow")
	assert.Error(t, err)
}
