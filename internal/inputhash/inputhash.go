// Package inputhash computes the deterministic content hash that identifies
// an input document regardless of JSON key ordering or of the transient
// runtime fields (time limits, solver tuning knobs) that do not change what
// is being planned.
package inputhash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// runtimeKeys are top-level input fields that influence how the solve runs
// but not what planning problem is being solved; they are excluded so the
// same roster produces the same hash regardless of time budget or score
// weight tuning between reruns.
var runtimeKeys = map[string]struct{}{
	"timeLimit":         {},
	"solverScoreConfig": {},
	"fixedRotationOffset": {},
}

// Compute returns "sha256:<hex>" over the canonical JSON form of raw, with
// runtimeKeys stripped from the top level. Canonical form is sorted object
// keys at every nesting level with default (no extra whitespace) separators,
// which is what makes the result invariant under reordering of the input's
// JSON object keys.
func Compute(raw []byte) (string, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", err
	}
	for k := range runtimeKeys {
		delete(doc, k)
	}

	canonical, err := canonicalize(doc)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// canonicalize re-marshals v with object keys sorted at every level. The
// standard library already marshals Go maps in sorted key order, so the only
// work here is recursively converting nested JSON values into maps/slices
// that encoding/json will, in turn, sort.
func canonicalize(v any) ([]byte, error) {
	normalized := normalize(v)
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = normalize(val[k])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	default:
		return val
	}
}
