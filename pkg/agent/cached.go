package agent

import (
	"context"

	"ipe/pkg/cache"
	"ipe/pkg/fingerprint"
)

// Cached wraps an Invoker with the fingerprint-keyed response cache. The
// fingerprint is computed from the request's semantic identity only, but
// entries are stored under the workflow instance's cache directory, so hits
// never cross instance boundaries on disk.
type Cached struct {
	inner      Invoker
	store      *cache.Store
	instanceID string

	// Observer, when set, is told whether each Invoke was served from cache.
	Observer func(hit bool)
}

// NewCached returns a cache-wrapped view of inner for one workflow instance.
func NewCached(inner Invoker, store *cache.Store, instanceID string) *Cached {
	return &Cached{
		inner:      inner,
		store:      store,
		instanceID: instanceID,
	}
}

// Invoke returns the cached response when one exists and is fresh; otherwise
// it calls through and stores the result, successful or not. Cache failures
// in either direction are swallowed — the cache is advisory and must never
// block the agent call.
func (c *Cached) Invoke(ctx context.Context, req Request) (Response, error) {
	fp := fingerprint.Key(req.Prompt, req.Model, req.WorkingDir, req.SlashCommand)

	if e, ok := c.store.Get(c.instanceID, fp); ok {
		if c.Observer != nil {
			c.Observer(true)
		}
		resp := Response{Output: e.Output, Success: e.Success}
		if e.SessionID != nil {
			resp.SessionID = *e.SessionID
		}
		return resp, nil
	}
	if c.Observer != nil {
		c.Observer(false)
	}

	resp, err := c.inner.Invoke(ctx, req)
	if err != nil {
		return resp, err
	}

	entry := cache.Entry{
		Fingerprint: fp,
		Output:      resp.Output,
		Success:     resp.Success,
		PromptPrev:  req.Prompt,
		Model:       req.Model,
	}
	if resp.SessionID != "" {
		sid := resp.SessionID
		entry.SessionID = &sid
	}
	if req.SlashCommand != "" {
		sc := req.SlashCommand
		entry.SlashCommand = &sc
	}
	_ = c.store.Put(c.instanceID, entry)

	return resp, nil
}
