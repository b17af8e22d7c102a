// Package registry turns a component repository hosted on GitHub into a
// queryable catalog of versioned UI components.
//
// The repository is a sparse file tree. Every published version lives at
//
//	components/<namespace>/<name>/<version>/registry.json
//
// with the files it declares stored next to it, and an optional README.md.
//
// A Registry walks the branch tree at most once per freshness window (see
// TreeCache), resolves each registry.json into a canonical Item, and builds
// either the deduplicated catalog (List) or one fully hydrated component
// (Get). Remote fetches are bounded by a Limiter.
//
// Versions are compared as plain strings, so "9.0.0" sorts after "10.0.0".
// Published data already depends on that ordering to pick "latest".
package registry
