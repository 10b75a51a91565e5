// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package syncclient

import "context"

// Subscribe starts polling the room. The local version starts at 0, so
// the first visible tick always triggers a full fetch and the UI never
// shows an empty room while waiting for a change. Subscribing while
// already subscribed switches rooms.
func (c *Client) Subscribe(code string) {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.code = code
	c.localVersion = 0
	c.mu.Unlock()

	go c.loop(code, stop)
}

// Unsubscribe stops the poller and resets the local version, so a
// later Subscribe starts from a clean baseline.
func (c *Client) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.code = ""
	c.localVersion = 0
}

// Refresh forces an immediate version check outside the tick schedule.
// Called after the client's own mutations so the user sees their write
// without waiting out the interval.
func (c *Client) Refresh(ctx context.Context) {
	c.mu.Lock()
	code := c.code
	c.mu.Unlock()
	if code == "" {
		return
	}
	c.checkOnce(ctx, code)
}

func (c *Client) refresh(ctx context.Context) {
	c.Refresh(ctx)
}

func (c *Client) loop(code string, stop chan struct{}) {
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if c.Visible != nil && !c.Visible() {
				// Hidden tab: skip the tick entirely, not even the
				// cheap version read.
				continue
			}
			c.checkOnce(context.Background(), code)
		}
	}
}

// checkOnce runs one poll cycle: read the version, and fetch the full
// snapshot only if it moved past what we hold.
func (c *Client) checkOnce(ctx context.Context, code string) {
	remote, err := c.FetchVersion(ctx, code)
	if err != nil {
		c.report(err)
		return
	}

	c.mu.Lock()
	held := c.localVersion
	active := c.code == code
	c.mu.Unlock()
	if !active {
		return
	}
	// 0 is the server's "room unknown" sentinel. It never matches a
	// held baseline, so it always forces the full fetch.
	if remote == held && remote != 0 {
		return
	}

	snap, err := c.FetchGroup(ctx, code)
	if err != nil {
		c.report(err)
		return
	}

	c.mu.Lock()
	// Re-check under the lock: the subscription may have moved to
	// another room, or a racing fetch may have applied a newer
	// snapshot. A stale snapshot is discarded, never applied.
	if c.code != code || snap.Version < c.localVersion {
		c.mu.Unlock()
		return
	}
	c.localVersion = snap.Version
	c.mu.Unlock()

	if c.OnSnapshot != nil {
		c.OnSnapshot(*snap)
	}
}

func (c *Client) report(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}
