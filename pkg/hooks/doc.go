// Package hooks derives small pieces of ambient state (device orientation,
// scroll position, focus) from ambient event sources.
//
// Each constructor returns a State handle whose Value reflects the latest
// event. Close releases the underlying subscriptions.
package hooks
