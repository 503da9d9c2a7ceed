package usecases

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
)

// fakePanel is an in-memory PanelClient keyed by "METHOD /path".
type fakePanel struct {
	mu        sync.Mutex
	responses map[string]any
	errs      map[string]error
	calls     []string
}

func newFakePanel() *fakePanel {
	return &fakePanel{
		responses: make(map[string]any),
		errs:      make(map[string]error),
	}
}

func (f *fakePanel) respond(key string, v any) { f.responses[key] = v }
func (f *fakePanel) fail(key string, err error) { f.errs[key] = err }

func (f *fakePanel) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (f *fakePanel) do(method, path string, out any) error {
	key := method + " " + path

	f.mu.Lock()
	f.calls = append(f.calls, key)
	err := f.errs[key]
	resp, ok := f.responses[key]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if !ok || out == nil {
		return nil
	}
	payload, mErr := json.Marshal(resp)
	if mErr != nil {
		return mErr
	}
	return json.Unmarshal(payload, out)
}

func (f *fakePanel) Get(_ context.Context, path string, _ url.Values, out any) error {
	return f.do("GET", path, out)
}

func (f *fakePanel) Post(_ context.Context, path string, _, out any) error {
	return f.do("POST", path, out)
}

func (f *fakePanel) Put(_ context.Context, path string, _, out any) error {
	return f.do("PUT", path, out)
}

func (f *fakePanel) Delete(_ context.Context, path string, out any) error {
	return f.do("DELETE", path, out)
}
