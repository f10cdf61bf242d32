// Package catalogtest provides an in-memory catalog.Fetcher for tests.
package catalogtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Fetcher answers resources from a fixed table. Responses are round-tripped
// through JSON so callers get the same decoding as over HTTP.
type Fetcher struct {
	mu        sync.Mutex
	responses map[string]any
	failures  map[string]error
	gates     map[string]chan struct{}
	calls     []string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		responses: map[string]any{},
		failures:  map[string]error{},
		gates:     map[string]chan struct{}{},
	}
}

// Respond registers the value returned for resource.
func (f *Fetcher) Respond(resource string, value any) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[resource] = value
	return f
}

// Fail makes resource return err.
func (f *Fetcher) Fail(resource string, err error) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[resource] = err
	return f
}

// Hold blocks fetches of resource until the returned release func is called
// or the fetch context is cancelled.
func (f *Fetcher) Hold(resource string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[resource] = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Calls returns every resource requested so far, in order.
func (f *Fetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times resource was requested.
func (f *Fetcher) CallCount(resource string) int {
	n := 0
	for _, call := range f.Calls() {
		if call == resource {
			n++
		}
	}
	return n
}

func (f *Fetcher) Fetch(ctx context.Context, resource string, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, resource)
	gate := f.gates[resource]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	failure, failed := f.failures[resource]
	value, ok := f.responses[resource]
	f.mu.Unlock()

	if failed {
		return failure
	}
	if !ok {
		return fmt.Errorf("no response registered for %q", resource)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}
