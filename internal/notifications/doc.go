// Package notifications pushes batch run events to ntfy.
//
// NewService returns a no-op notifier when no topic is configured, so callers
// publish unconditionally. Events are enumerated here and rendered into a
// title, body, tags, and priority before being posted as plain text.
package notifications
