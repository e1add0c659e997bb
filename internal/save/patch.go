package save

import (
	"bytes"
	"encoding/json"
	"fmt"

	"idle_tapper/internal/domain"
)

// nested objects merged key by key instead of replaced
var deepMerged = map[string]bool{
	"collection": true,
	"titleState": true,
}

// owned by the store, never taken from a patch
var storeOwned = map[string]bool{
	"schemaVersion": true,
	"revision":      true,
	"updatedAt":     true,
}

// applyPatch shallow-merges patch over cur at the JSON level.
func applyPatch(cur domain.SaveState, patch Patch) (domain.SaveState, error) {
	raw, err := json.Marshal(cur)
	if err != nil {
		return cur, err
	}
	// UseNumber keeps int64 counters above 2^53 exact through the round trip
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return cur, err
	}

	for k, v := range patch {
		if storeOwned[k] {
			continue
		}
		if deepMerged[k] {
			if sub, ok := v.(map[string]any); ok {
				base, _ := doc[k].(map[string]any)
				if base == nil {
					base = map[string]any{}
				}
				for sk, sv := range sub {
					base[sk] = sv
				}
				doc[k] = base
				continue
			}
		}
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return cur, fmt.Errorf("encode patch: %w", err)
	}
	next, err := decodeOnDefault(merged)
	if err != nil {
		return cur, fmt.Errorf("apply patch: %w", err)
	}
	return next, nil
}
