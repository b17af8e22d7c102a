package registry

import (
	"context"
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"go.opentelemetry.io/otel/attribute"
)

// Extractor locates the component object inside a parsed registry.json.
// Extract reports whether the document has this extractor's shape; the
// returned candidate may still be empty.
type Extractor struct {
	Name    string
	Extract func(doc any) (candidate any, matched bool)
}

var (
	pathItems     = jp.MustParseString("$.items")
	pathFirstItem = jp.MustParseString("$.items[0]")
	pathName      = jp.MustParseString("$.name")
	pathType      = jp.MustParseString("$.type")
	pathComponent = jp.MustParseString("$.component")
)

// DefaultExtractors returns the supported registry.json shapes in
// precedence order: a wrapped items list, a flat item, a component field.
func DefaultExtractors() []Extractor {
	return []Extractor{
		{Name: "items", Extract: extractItems},
		{Name: "flat", Extract: extractFlat},
		{Name: "component", Extract: extractComponent},
	}
}

func extractItems(doc any) (any, bool) {
	items, ok := pathItems.First(doc).([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	return pathFirstItem.First(doc), true
}

func extractFlat(doc any) (any, bool) {
	if truthy(pathName.First(doc)) && truthy(pathType.First(doc)) {
		return doc, true
	}
	return nil, false
}

func extractComponent(doc any) (any, bool) {
	c := pathComponent.First(doc)
	if !truthy(c) {
		return nil, false
	}
	return c, true
}

// truthy follows JSON-document truthiness: null, false, zero and the empty
// string are false; every object and array is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// ParseMetadata normalizes a registry.json document into an Item.
func ParseMetadata(data []byte, extractors []Extractor) (*Item, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	var candidate any
	for _, x := range extractors {
		if c, ok := x.Extract(doc); ok {
			candidate = c
			break
		}
	}
	if !truthy(candidate) {
		return nil, fmt.Errorf("%w; available keys: %v", ErrNoComponentData, topLevelKeys(doc))
	}

	return validateItem(candidate)
}

func topLevelKeys(doc any) []string {
	m, ok := doc.(map[string]any)
	if !ok {
		return []string{}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// validateItem checks a candidate against the item schema and decodes it.
func validateItem(candidate any) (*Item, error) {
	ctx, schema, err := loadItemSchema()
	if err != nil {
		return nil, err
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := ctx.Encode(candidate)
	if v.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, v.Err())
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	var item Item
	if err := unified.Decode(&item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return &item, nil
}

// ResolveMetadata fetches one registry.json and normalizes it. Failures are
// logged here; callers skip the component.
func (r *Registry) ResolveMetadata(ctx context.Context, path string) (item *Item, err error) {
	ctx, span := r.startSpan(ctx, "registry.ResolveMetadata")
	span.SetAttributes(attribute.String("registry.path", path))
	defer func() { endSpan(span, err) }()

	data, err := r.fetchFile(ctx, path)
	if err != nil {
		r.metrics.rejected.WithLabelValues(rejectReason(err)).Inc()
		r.logger.Error("failed to fetch component metadata", "path", path, "error", err)
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}

	item, err = ParseMetadata(data, r.extractors)
	if err != nil {
		r.metrics.rejected.WithLabelValues(rejectReason(err)).Inc()
		r.logger.Error("unusable component metadata", "path", path, "error", err)
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return item, nil
}
