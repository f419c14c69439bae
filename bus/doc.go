// Package bus implements the broadcast fan-out used by every producer in the
// server to reach connected overlay and dashboard subscribers.
//
// Delivery is best-effort and fire-and-forget: each subscriber owns a
// buffered channel, and a publish that finds the buffer full drops the event
// for that subscriber rather than blocking the producer. There is no queuing
// for disconnected subscribers and no acknowledgment; a subscriber that
// connects after an event was published never sees it. Snapshot replay for
// late joiners is the caller's responsibility (see server's /events handler,
// which unicasts current state via PublishTo on connect).
package bus
