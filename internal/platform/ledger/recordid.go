package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// RecordID is the fixed-width fingerprint of a human-readable record name.
type RecordID [32]byte

// RecordIDFromName derives the identifier for a record name using Keccak-256,
// matching the id an EVM contract computes for the same UTF-8 string.
func RecordIDFromName(name string) RecordID {
	var id RecordID
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	copy(id[:], h.Sum(nil))
	return id
}

// ParseRecordID parses a 0x-prefixed (or bare) 64-character hex string.
func ParseRecordID(s string) (RecordID, error) {
	var id RecordID
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*len(id) {
		return id, fmt.Errorf("%w: record id must be %d hex characters", ErrInvalidArgument, 2*len(id))
	}
	if _, err := hex.Decode(id[:], []byte(raw)); err != nil {
		return id, fmt.Errorf("%w: record id is not valid hex", ErrInvalidArgument)
	}
	return id, nil
}

// NamePrefix marks a string as a record name even when it would parse as a
// hex id.
const NamePrefix = "name:"

// ResolveRecordID accepts either a hex record id or a human-readable name.
// Strings that parse as a hex id are treated as ids unless prefixed with
// NamePrefix.
func ResolveRecordID(idOrName string) (RecordID, error) {
	if idOrName == "" {
		return RecordID{}, fmt.Errorf("%w: record id or name is required", ErrInvalidArgument)
	}
	if name, ok := strings.CutPrefix(idOrName, NamePrefix); ok {
		if name == "" {
			return RecordID{}, fmt.Errorf("%w: record name is required after %q", ErrInvalidArgument, NamePrefix)
		}
		return RecordIDFromName(name), nil
	}
	if id, err := ParseRecordID(idOrName); err == nil {
		return id, nil
	}
	return RecordIDFromName(idOrName), nil
}

// String renders the id as 0x-prefixed lowercase hex.
func (id RecordID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// IsZero reports whether the id is unset.
func (id RecordID) IsZero() bool {
	return id == RecordID{}
}

func (id RecordID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *RecordID) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UniqueRecordIDs drops repeated ids, keeping the first occurrence.
func UniqueRecordIDs(ids []RecordID) []RecordID {
	seen := make(map[RecordID]struct{}, len(ids))
	out := make([]RecordID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ContainsRecordID reports whether id is in ids.
func ContainsRecordID(ids []RecordID, id RecordID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
