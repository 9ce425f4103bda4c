package docengine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"vellum/internal/domain/models/doc"
)

// HashUnavailable is the sentinel stored when a fingerprint could not be
// computed. Consumers must treat it as "integrity unknown", never as a
// verified hash.
const HashUnavailable = "hash-unavailable"

// hashPayload selects exactly the legally relevant content of a document.
// The audit log, form answers, ephemeral editor state and the hash field
// itself are excluded.
type hashPayload struct {
	Blocks    []*doc.Block   `json:"blocks"`
	Parties   []doc.Party    `json:"parties"`
	Settings  doc.Settings   `json:"settings"`
	Terms     []doc.Term     `json:"terms"`
	Variables []doc.Variable `json:"variables"`
}

// Canonicalize reduces any JSON-serializable value to its generic form:
// map[string]any / []any / primitives. Serializing that form with
// encoding/json yields a canonical byte string, because encoding/json
// writes object keys in sorted order and the round trip drops struct
// fields that were absent (omitempty) while preserving explicit nulls.
// Array order is kept as-is; element order is semantically meaningful.
// Canonicalize is idempotent: applying it to its own output is a no-op.
func Canonicalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("canonicalize unmarshal: %w", err)
	}
	return generic, nil
}

// CanonicalJSON serializes v canonically: sorted object keys, no extra
// whitespace, arrays in original order.
func CanonicalJSON(v any) ([]byte, error) {
	generic, err := Canonicalize(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonical serialize: %w", err)
	}
	return data, nil
}

// HashContent computes the SHA-256 fingerprint of v's canonical JSON form,
// rendered as lowercase hex.
func HashContent(v any) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashDocument fingerprints the signable content of a document. Two
// documents with structurally identical blocks/parties/settings/terms/
// variables hash identically regardless of key order; any content change,
// including reordering within an array, changes the result.
//
// Failures surface as (HashUnavailable, err) rather than panicking: a
// failed hash must be distinguishable from a valid one, and must never
// silently pass for "integrity verified".
func HashDocument(state *doc.DocumentState) (string, error) {
	payload := hashPayload{
		Blocks:    state.Blocks,
		Parties:   state.Parties,
		Settings:  state.Settings,
		Terms:     state.Terms,
		Variables: state.Variables,
	}
	sum, err := HashContent(payload)
	if err != nil {
		return HashUnavailable, err
	}
	return sum, nil
}
