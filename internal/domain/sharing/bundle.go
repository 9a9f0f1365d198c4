// Package sharing builds and unpacks the bundle a scoped approval exposes to a
// doctor: a filtered copy of the approved records, tagged with the doctor and
// the authorized ids. Bundles are plain JSON; nothing is encrypted.
package sharing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

const (
	BundleType    = "doctor-shared-data"
	BundleVersion = 1
)

// SharedRecord is the view of a record entry copied into a bundle.
type SharedRecord struct {
	RecordID   ledger.RecordID   `json:"record_id"`
	ContentRef ledger.ContentRef `json:"content_ref"`
	Provider   ledger.Principal  `json:"provider"`
	Version    int               `json:"version"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Bundle is the tagged payload stored behind ApprovedAccess.SharedDataRef.
// Data is keyed by the 0x-prefixed record id.
type Bundle struct {
	Type                string                  `json:"type"`
	Version             int                     `json:"version"`
	Doctor              ledger.Principal        `json:"doctor"`
	AuthorizedRecordIDs []ledger.RecordID       `json:"authorized_record_ids"`
	Data                map[string]SharedRecord `json:"data"`
	Timestamp           time.Time               `json:"timestamp"`
}

// Build filters records down to the authorized ids. Authorized ids with no
// matching record are listed but carry no data.
func Build(records []SharedRecord, doctor ledger.Principal, authorized []ledger.RecordID, now time.Time) Bundle {
	ids := ledger.UniqueRecordIDs(authorized)
	data := make(map[string]SharedRecord, len(ids))
	for _, r := range records {
		if ledger.ContainsRecordID(ids, r.RecordID) {
			data[r.RecordID.String()] = r
		}
	}
	return Bundle{
		Type:                BundleType,
		Version:             BundleVersion,
		Doctor:              doctor,
		AuthorizedRecordIDs: ids,
		Data:                data,
		Timestamp:           now,
	}
}

// Encode serializes the bundle.
func Encode(b Bundle) ([]byte, error) {
	return json.Marshal(b)
}

// wireBundle uses pointers so missing fields can be told apart from zero values.
type wireBundle struct {
	Type                *string                  `json:"type"`
	Version             *int                     `json:"version"`
	Doctor              *ledger.Principal        `json:"doctor"`
	AuthorizedRecordIDs *[]ledger.RecordID       `json:"authorized_record_ids"`
	Data                *map[string]SharedRecord `json:"data"`
	Timestamp           *time.Time               `json:"timestamp"`
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ledger.ErrCorruptBundle}, args...)...)
}

// Decode parses and validates a bundle. Any deviation from the shape Build
// produces is reported as ledger.ErrCorruptBundle.
func Decode(data []byte) (*Bundle, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireBundle
	if err := dec.Decode(&w); err != nil {
		return nil, corrupt("%v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, corrupt("trailing data after bundle")
	}

	switch {
	case w.Type == nil || *w.Type != BundleType:
		return nil, corrupt("missing or unexpected type tag")
	case w.Version == nil || *w.Version != BundleVersion:
		return nil, corrupt("unsupported bundle version")
	case w.Doctor == nil || w.Doctor.Validate() != nil:
		return nil, corrupt("missing or malformed doctor")
	case w.AuthorizedRecordIDs == nil:
		return nil, corrupt("missing authorized record ids")
	case w.Data == nil || *w.Data == nil:
		return nil, corrupt("missing data")
	case w.Timestamp == nil:
		return nil, corrupt("missing timestamp")
	}

	ids := *w.AuthorizedRecordIDs
	for key, rec := range *w.Data {
		id, err := ledger.ParseRecordID(key)
		if err != nil || id.String() != key {
			return nil, corrupt("data key %q is not a record id", key)
		}
		if rec.RecordID != id {
			return nil, corrupt("data entry %s carries record id %s", key, rec.RecordID)
		}
		if !ledger.ContainsRecordID(ids, id) {
			return nil, corrupt("data entry %s is not authorized", key)
		}
	}

	return &Bundle{
		Type:                *w.Type,
		Version:             *w.Version,
		Doctor:              *w.Doctor,
		AuthorizedRecordIDs: ids,
		Data:                *w.Data,
		Timestamp:           *w.Timestamp,
	}, nil
}
