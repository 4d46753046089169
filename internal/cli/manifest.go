package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/salescope/internal/store"
)

// manifestSchema constrains dataset manifests. Sources load in
// declared order, so manifests list parent tables before the tables
// that reference them.
const manifestSchema = `
dataset: {
	name: string & !=""
	sources: [...{
		table: string & !=""
		file:  string & !=""
	}]
}
`

// Manifest describes a dataset: which CSV file feeds which table.
type Manifest struct {
	Name    string
	Sources []TableSource
}

// TableSource maps one CSV file onto one table. File is resolved
// relative to the manifest location.
type TableSource struct {
	Table string `json:"table"`
	File  string `json:"file"`
}

// LoadManifest reads and validates a CUE dataset manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(manifestSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compiling manifest: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	dataset := unified.LookupPath(cue.ParsePath("dataset"))
	if !dataset.Exists() {
		return nil, fmt.Errorf("invalid manifest: missing dataset")
	}

	manifest := &Manifest{}
	if err := dataset.LookupPath(cue.ParsePath("name")).Decode(&manifest.Name); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if err := dataset.LookupPath(cue.ParsePath("sources")).Decode(&manifest.Sources); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if len(manifest.Sources) == 0 {
		return nil, fmt.Errorf("invalid manifest: dataset %q has no sources", manifest.Name)
	}

	base := filepath.Dir(path)
	seen := map[string]bool{}
	for i, src := range manifest.Sources {
		if !store.LoadableTable(src.Table) {
			return nil, fmt.Errorf("invalid manifest: unknown table %q", src.Table)
		}
		if seen[src.Table] {
			return nil, fmt.Errorf("invalid manifest: table %q listed twice", src.Table)
		}
		seen[src.Table] = true
		if !filepath.IsAbs(src.File) {
			manifest.Sources[i].File = filepath.Join(base, src.File)
		}
	}

	return manifest, nil
}
