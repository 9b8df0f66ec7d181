package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"resty.dev/v3"

	"github.com/linguahub/vocabimage/internal/server"
	"github.com/linguahub/vocabimage/internal/vocab"
)

// State is the request state of a coordinator.
type State string

const (
	StateIdle     State = "idle"
	StatePending  State = "pending"
	StateResolved State = "resolved"
	StateFailed   State = "failed"
)

// Result is the three-state outcome of a fetch: pending, resolved with a
// URL, or failed with a message. An idle result means no image was requested
// (disabled or blank input).
type Result struct {
	State    State
	ImageURL string
	Cached   bool
	Message  string
}

// Coordinator issues at most one outstanding request to the image service at
// a time for one consumer, answering repeats from the session cache.
type Coordinator struct {
	httpClient *resty.Client
	session    *SessionCache

	mu         sync.Mutex
	state      State
	result     Result
	generation uint64
}

// NewCoordinator creates a coordinator talking to the service at baseURL.
// Consumers sharing one session cache share fetched URLs; each consumer gets
// its own coordinator.
func NewCoordinator(baseURL string, session *SessionCache) *Coordinator {
	httpClient := resty.New()
	httpClient.SetBaseURL(baseURL)
	httpClient.SetHeader("Content-Type", "application/json")

	return &Coordinator{
		httpClient: httpClient,
		session:    session,
		state:      StateIdle,
	}
}

func (c *Coordinator) Close() error {
	return c.httpClient.Close()
}

// State returns the coordinator's current request state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset clears the coordinator for a new input pair. A request still in
// flight keeps running but its resolution is discarded, so a stale pair can
// never overwrite the state of a newer one.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = StateIdle
	c.result = Result{State: StateIdle}
}

// Fetch resolves a vocabulary pair to an image URL.
//
// When enabled is false or the word is blank, it reports no image, clears
// any prior result and performs no network call. A session cache hit is
// returned without a network call or a pending state. Otherwise one request
// is issued; concurrent calls while it is in flight observe the pending
// state instead of issuing their own.
func (c *Coordinator) Fetch(ctx context.Context, vocabulary string, language vocab.Language, enabled bool) Result {
	if !enabled || vocab.NormalizeKey(vocabulary) == "" {
		c.Reset()
		return Result{State: StateIdle}
	}

	key := Key(vocabulary, language)
	if url, ok := c.session.Get(key); ok {
		slog.Default().Debug("session cache hit", "key", key)
		c.mu.Lock()
		c.state = StateResolved
		c.result = Result{State: StateResolved, ImageURL: url, Cached: true}
		result := c.result
		c.mu.Unlock()
		return result
	}

	c.mu.Lock()
	if c.state == StatePending {
		result := c.result
		c.mu.Unlock()
		return result
	}
	c.generation++
	generation := c.generation
	c.state = StatePending
	c.result = Result{State: StatePending}
	c.mu.Unlock()

	slog.Default().Debug("session cache miss, requesting image", "key", key)
	result := c.request(ctx, vocabulary, language)
	if result.State == StateResolved {
		c.session.Put(key, result.ImageURL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		// Input changed while the request was in flight; keep the newer
		// pair's state and hand the stale result only to this caller.
		return result
	}
	c.state = result.State
	c.result = result
	return result
}

func (c *Coordinator) request(ctx context.Context, vocabulary string, language vocab.Language) Result {
	var (
		success server.GenerateResponse
		failure server.ErrorResponse
	)
	response, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(server.GenerateRequest{
			Vocabulary: vocabulary,
			Language:   string(language),
		}).
		SetResult(&success).
		SetError(&failure).
		Post("/v1/vocabulary-images")
	if err != nil {
		return Result{State: StateFailed, Message: fmt.Sprintf("request failed: %v", err)}
	}
	if response.IsError() {
		message := failure.Error
		if message == "" {
			message = fmt.Sprintf("response error %d", response.StatusCode())
		}
		return Result{State: StateFailed, Message: message}
	}
	if success.ImageURL == "" {
		return Result{State: StateFailed, Message: "no image in response"}
	}
	return Result{State: StateResolved, ImageURL: success.ImageURL, Cached: success.Cached}
}
