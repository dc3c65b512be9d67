// Package fingerprint computes deterministic content digests for consent
// binding. The same logical content must always produce the same digest,
// across processes and across the languages of whatever issued the original
// consent, so object keys are sorted recursively before hashing.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	dErrors "placet/pkg/domain-errors"
)

// Fingerprint returns the lowercase hex SHA-256 digest of the canonical form
// of v: object keys sorted alphabetically at every nesting level, arrays in
// their original order, compact whitespace-free serialization.
//
// The only failure mode is non-serializable input, which schema validation
// is expected to reject upstream.
func Fingerprint(v any) (string, error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize returns the canonical serialized form of v. Exposed so tests
// and callers can inspect exactly what gets hashed.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "content is not serializable")
	}

	// Round-trip through json.Number so numeric literals survive verbatim
	// instead of being reformatted through float64.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "content is not serializable")
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeValidation, "content is not serializable")
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case json.Number:
		buf.WriteString(t.String())
	default:
		// string, bool, nil
		out, err := json.Marshal(t)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("content is not serializable: %T", t))
		}
		buf.Write(out)
	}
	return nil
}
