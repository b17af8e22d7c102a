package registry

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed item_schema.cue
var itemSchemaSource string

const itemSchemaPath = "#Item"

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	itemSchema cue.Value
	schemaErr  error

	// cue.Context is not safe for concurrent use.
	schemaMu sync.Mutex
)

// loadItemSchema compiles the embedded schema once.
func loadItemSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		compiled := schemaCtx.CompileString(itemSchemaSource, cue.Filename("item_schema.cue"))
		if compiled.Err() != nil {
			schemaErr = fmt.Errorf("internal error: failed to compile item schema: %w", compiled.Err())
			return
		}
		itemSchema = compiled.LookupPath(cue.ParsePath(itemSchemaPath))
		if itemSchema.Err() != nil {
			schemaErr = fmt.Errorf("internal error: schema definition %s not found: %w", itemSchemaPath, itemSchema.Err())
		}
	})
	return schemaCtx, itemSchema, schemaErr
}
