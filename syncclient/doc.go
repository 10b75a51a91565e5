// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package syncclient keeps a device in sync with a room through
version-counter polling.

# Polling Loop

Subscribe starts a ticker (3s by default) that hits the cheap version
endpoint. Only when the reported version differs from the held one does
the client fetch the full snapshot:

	client := syncclient.New("https://api.example.com")
	client.OnSnapshot = func(snap models.GroupSnapshot) { render(snap) }
	client.Subscribe("ABC123")
	defer client.Unsubscribe()

The local version starts at 0, the "no baseline" sentinel, so the first
visible tick always fetches. Ticks are skipped entirely while the
Visible callback reports a hidden UI. Snapshots older than the held
version, and snapshots arriving after the subscription moved to another
room, are discarded.

# Mutations

The typed mutation methods (Join, AddChallenge, Vote, AdvancePhase, ...)
attach the participant token header and trigger an immediate Refresh on
success, so the caller sees their own write without waiting out the
poll interval.

# Field Encryption

With a room key installed via WithRoomKey, challenge texts and display
names are sealed with AES-256-GCM before they leave the client and
opened on fetch. The key travels in the invite URL fragment and never
reaches the server. A snapshot whose fields fail to authenticate is
rejected whole.

# Clock Injection

The poller takes its timer from a clockwork.Clock, so tests drive the
schedule with a fake clock instead of sleeping.
*/
package syncclient
