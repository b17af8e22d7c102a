package registry

import (
	"context"
	"path"
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

const readmeFile = "README.md"

// Get returns one component version with its declared files hydrated.
// An empty version selects the latest. A version that does not exist falls
// back to the latest and sets Detail.Fallback. Get returns nil, nil when the
// component does not exist or its metadata is unusable; tree failures are
// returned as errors.
func (r *Registry) Get(ctx context.Context, namespace, name, version string) (detail *Detail, err error) {
	ctx, span := r.startSpan(ctx, "registry.Get")
	span.SetAttributes(
		attribute.String("component.namespace", namespace),
		attribute.String("component.name", name),
		attribute.String("component.requested_version", version),
	)
	defer func() { endSpan(span, err) }()

	ids, err := r.ComponentTree(ctx)
	if err != nil {
		return nil, err
	}

	var versions []Identifier
	for _, id := range ids {
		if id.Namespace == namespace && id.Name == name {
			versions = append(versions, id)
		}
	}
	if len(versions) == 0 {
		return nil, nil
	}

	target := versions[0]
	for _, v := range versions[1:] {
		if v.Version > target.Version {
			target = v
		}
	}

	fallback := false
	if version != "" {
		found := false
		for _, v := range versions {
			if v.Version == version {
				target, found = v, true
				break
			}
		}
		if !found {
			fallback = true
			r.logger.Warn("requested version not found, using latest",
				"component", namespace+"/"+name, "requested", version, "using", target.Version)
		}
	}

	item, err := r.ResolveMetadata(ctx, target.MetadataPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, nil
	}

	baseDir := path.Dir(target.MetadataPath)
	files := make([]DetailFile, len(item.Files))
	var readme string

	// One extra slot for the README.
	r.limiter.Each(ctx, len(item.Files)+1, func(ctx context.Context, i int) {
		if i == len(item.Files) {
			data, err := r.fetchFile(ctx, baseDir+"/"+readmeFile)
			if err != nil {
				r.logger.Debug("no readme", "component", namespace+"/"+name, "error", err)
				return
			}
			readme = string(data)
			return
		}

		f := item.Files[i]
		files[i] = DetailFile{File: f}
		data, err := r.fetchFile(ctx, baseDir+"/"+f.Path)
		if err != nil {
			r.logger.Error("failed to fetch component file",
				"component", namespace+"/"+name, "file", f.Path, "error", err)
			return
		}
		files[i].Content = string(data)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if readme != "" {
		for i := range files {
			if files[i].Path == readmeFile && files[i].Content == "" {
				files[i].Content = readme
			}
		}
	}

	all := make([]string, len(versions))
	for i, v := range versions {
		all[i] = v.Version
	}
	sort.Sort(sort.Reverse(sort.StringSlice(all)))

	span.SetAttributes(
		attribute.String("component.version", target.Version),
		attribute.Bool("component.fallback", fallback),
	)

	return &Detail{
		CatalogEntry: CatalogEntry{
			Item:    *item,
			Slug:    name,
			Version: target.Version,
			Author:  namespace,
		},
		AllVersions:      all,
		Files:            files,
		Readme:           readme,
		RequestedVersion: version,
		Fallback:         fallback,
	}, nil
}
