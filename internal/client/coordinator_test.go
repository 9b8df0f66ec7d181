package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguahub/vocabimage/internal/server"
	"github.com/linguahub/vocabimage/internal/vocab"
)

func newCountingServer(t *testing.T, imageURL string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/vocabulary-images", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(server.GenerateResponse{ImageURL: imageURL, Cached: false})
	}))
	t.Cleanup(testServer.Close)
	return testServer, &requests
}

func TestCoordinator_Fetch_DisabledOrBlank(t *testing.T) {
	testServer, requests := newCountingServer(t, "https://cdn.example.com/a.png")

	tests := []struct {
		name       string
		vocabulary string
		enabled    bool
	}{
		{name: "disabled", vocabulary: "xin chào", enabled: false},
		{name: "empty word", vocabulary: "", enabled: true},
		{name: "whitespace-only word", vocabulary: "   ", enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coordinator := NewCoordinator(testServer.URL, NewSessionCache())
			defer func() {
				_ = coordinator.Close()
			}()

			result := coordinator.Fetch(context.Background(), tt.vocabulary, vocab.LanguageVietnamese, tt.enabled)

			assert.Equal(t, StateIdle, result.State)
			assert.Empty(t, result.ImageURL)
			assert.Equal(t, int64(0), requests.Load())
		})
	}
}

func TestCoordinator_Fetch_DisabledClearsPriorResult(t *testing.T) {
	testServer, _ := newCountingServer(t, "https://cdn.example.com/a.png")

	coordinator := NewCoordinator(testServer.URL, NewSessionCache())
	defer func() {
		_ = coordinator.Close()
	}()

	result := coordinator.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true)
	require.Equal(t, StateResolved, result.State)

	result = coordinator.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, false)
	assert.Equal(t, StateIdle, result.State)
	assert.Equal(t, StateIdle, coordinator.State())
}

func TestCoordinator_Fetch_SessionDedup(t *testing.T) {
	testServer, requests := newCountingServer(t, "https://cdn.example.com/xin_chào_vi.png")

	coordinator := NewCoordinator(testServer.URL, NewSessionCache())
	defer func() {
		_ = coordinator.Close()
	}()

	first := coordinator.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true)
	require.Equal(t, StateResolved, first.State)
	assert.Equal(t, "https://cdn.example.com/xin_chào_vi.png", first.ImageURL)
	assert.Equal(t, int64(1), requests.Load())

	// The second call resolves from the session cache without a network call,
	// even for an unnormalized spelling of the same pair.
	second := coordinator.Fetch(context.Background(), " Xin   chào ", vocab.LanguageVietnamese, true)
	assert.Equal(t, StateResolved, second.State)
	assert.Equal(t, first.ImageURL, second.ImageURL)
	assert.True(t, second.Cached)
	assert.Equal(t, int64(1), requests.Load())
}

func TestCoordinator_Fetch_SharedSessionAcrossConsumers(t *testing.T) {
	testServer, requests := newCountingServer(t, "https://cdn.example.com/a.png")

	session := NewSessionCache()
	first := NewCoordinator(testServer.URL, session)
	defer func() {
		_ = first.Close()
	}()
	second := NewCoordinator(testServer.URL, session)
	defer func() {
		_ = second.Close()
	}()

	require.Equal(t, StateResolved, first.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true).State)
	require.Equal(t, StateResolved, second.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true).State)
	assert.Equal(t, int64(1), requests.Load())
}

func TestCoordinator_Fetch_DifferentLanguagesAreDistinct(t *testing.T) {
	testServer, requests := newCountingServer(t, "https://cdn.example.com/a.png")

	coordinator := NewCoordinator(testServer.URL, NewSessionCache())
	defer func() {
		_ = coordinator.Close()
	}()

	require.Equal(t, StateResolved, coordinator.Fetch(context.Background(), "cà phê", vocab.LanguageVietnamese, true).State)
	coordinator.Reset()
	require.Equal(t, StateResolved, coordinator.Fetch(context.Background(), "cà phê", vocab.LanguageChinese, true).State)
	assert.Equal(t, int64(2), requests.Load())
}

func TestCoordinator_Fetch_FailureIsNotCached(t *testing.T) {
	var requests atomic.Int64
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(server.ErrorResponse{Error: "Rate limit exceeded, please try again later."})
	}))
	defer testServer.Close()

	coordinator := NewCoordinator(testServer.URL, NewSessionCache())
	defer func() {
		_ = coordinator.Close()
	}()

	first := coordinator.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true)
	assert.Equal(t, StateFailed, first.State)
	assert.Equal(t, "Rate limit exceeded, please try again later.", first.Message)

	// A new fetch cycle retries instead of serving the failure from cache.
	coordinator.Reset()
	second := coordinator.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true)
	assert.Equal(t, StateFailed, second.State)
	assert.Equal(t, int64(2), requests.Load())
}

func TestCoordinator_Fetch_SingleInFlightRequest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var requests atomic.Int64
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		close(started)
		<-release

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(server.GenerateResponse{ImageURL: "https://cdn.example.com/a.png"})
	}))
	defer testServer.Close()

	coordinator := NewCoordinator(testServer.URL, NewSessionCache())
	defer func() {
		_ = coordinator.Close()
	}()

	results := make(chan Result, 1)
	go func() {
		results <- coordinator.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the server")
	}

	// While the first request is in flight, another fetch observes the
	// pending state instead of issuing its own request.
	concurrent := coordinator.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true)
	assert.Equal(t, StatePending, concurrent.State)

	close(release)
	result := <-results
	assert.Equal(t, StateResolved, result.State)
	assert.Equal(t, int64(1), requests.Load())
}

func TestCoordinator_Fetch_StaleResolutionDoesNotOverwriteNewerState(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(server.GenerateResponse{ImageURL: "https://cdn.example.com/stale.png"})
	}))
	defer testServer.Close()

	coordinator := NewCoordinator(testServer.URL, NewSessionCache())
	defer func() {
		_ = coordinator.Close()
	}()

	results := make(chan Result, 1)
	go func() {
		results <- coordinator.Fetch(context.Background(), "xin chào", vocab.LanguageVietnamese, true)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the server")
	}

	// The input pair changed before the request resolved.
	coordinator.Reset()

	close(release)
	result := <-results
	// The stale caller still gets its result, but the coordinator's state
	// belongs to the new input cycle.
	assert.Equal(t, StateResolved, result.State)
	assert.Equal(t, StateIdle, coordinator.State())
}
