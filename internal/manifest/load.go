package manifest

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load reads the manifest declarations from a directory of CUE files.
// Entries live under the top-level "rune" struct, one field per entry:
//
//	rune: patch_generate: {
//		rune_id:      "rn.…"
//		handler_path: "api.generate.create_patches"
//		name:         "PATCH_GENERATE"
//		category:     "generation"
//		assets: ["patch_generate.svg"]
//	}
//
// Load only parses and shapes the data; correctness checks belong to
// Validate so that a structurally loadable manifest with semantic problems
// still gets a complete validation report.
func Load(dir string) (*Manifest, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("manifest directory not found: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing manifest directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	runesVal := value.LookupPath(cue.ParsePath("rune"))
	if !runesVal.Exists() {
		return nil, fmt.Errorf("manifest has no top-level \"rune\" declarations")
	}

	iter, err := runesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating rune declarations: %w", err)
	}

	var entries []Entry
	for iter.Next() {
		var e Entry
		if err := iter.Value().Decode(&e); err != nil {
			return nil, fmt.Errorf("rune.%s: %w", iter.Selector(), err)
		}
		entries = append(entries, e)
	}

	// Deterministic order regardless of file layout.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RuneID < entries[j].RuneID
	})

	return &Manifest{Entries: entries}, nil
}
