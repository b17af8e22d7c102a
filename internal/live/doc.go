// Package live pushes registry revision changes to WebSocket subscribers.
//
// A Watcher polls the registry branch head. When it moves, the watcher
// drops the registry's tree cache and the Hub broadcasts a text frame to
// every subscriber:
//
//	{"type":"revision","sha":"<new>","previous":"<old>","at":"<RFC 3339>"}
//
// New subscribers immediately receive the last known revision.
package live
