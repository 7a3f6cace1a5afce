// Package notifications pushes render job results to ntfy.
//
// NewService returns a no-op implementation when notifications.ntfy_topic is
// empty, so callers publish unconditionally. Only completion, failure, and
// test events produce a push; queue events are accepted and dropped.
package notifications
