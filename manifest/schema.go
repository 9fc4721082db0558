package manifest

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

// schemaSource constrains binpac.toml. Definitions are closed, so unknown
// keys are rejected.
const schemaSource = `
#Manifest: {
	project: {
		name:     string & =~"^[A-Za-z][A-Za-z0-9_.-]*$"
		module?:  string
		version?: string
	}
	compiler?: {
		"fail-fast"?: bool
		verbosity?:   int & >=-4 & <=4
		listing?:     bool
	}
	cache?: {
		enabled?: bool
		path?:    string & !=""
	}
	dependencies?: [string]: {
		path:    string & !=""
		module?: string
	}
}
`

var (
	schemaMu    sync.Mutex
	schemaCtx   *cue.Context
	schemaValue cue.Value
)

func manifestSchema() (*cue.Context, cue.Value) {
	if schemaCtx == nil {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource)
		if err := v.Err(); err != nil {
			panic(fmt.Sprintf("manifest: invalid schema: %v", err))
		}
		schemaValue = v.LookupPath(cue.ParsePath("#Manifest"))
	}
	return schemaCtx, schemaValue
}

// Validate checks manifest text against the binpac.toml schema.
func Validate(data []byte) error {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, schema := manifestSchema()
	v := schema.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}
