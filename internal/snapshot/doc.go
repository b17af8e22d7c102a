// Package snapshot exports the component catalog as static JSON documents.
//
// An export writes three kinds of objects to a Store:
//
//	catalog.json                   every catalog entry
//	manifest.json                  {revision, count, generatedAt}
//	components/<ns>/<name>.json    component detail (optional)
//
// Stores are interchangeable. DiskStore writes under a local directory and
// S3Store writes to a bucket:
//
//	client := snapshot.NewS3Client(snapshot.S3Options{Region: "eu-west-1"})
//	store := snapshot.NewS3Store(client, "scm-snapshots", "registry/")
//	exp := snapshot.NewExporter(reg, store)
//	manifest, err := exp.Export(ctx, true)
package snapshot
