package sharing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/blobstore"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

var testNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func sampleRecords() []SharedRecord {
	return []SharedRecord{
		{RecordID: ledger.RecordIDFromName("A"), ContentRef: "QmA", Provider: "0xV1", Version: 1, UpdatedAt: testNow},
		{RecordID: ledger.RecordIDFromName("B"), ContentRef: "QmB", Provider: "0xV1", Version: 3, UpdatedAt: testNow},
	}
}

func TestBuild_FiltersToAuthorized(t *testing.T) {
	a := ledger.RecordIDFromName("A")
	b := Build(sampleRecords(), "0xD1", []ledger.RecordID{a, a}, testNow)

	if b.Type != BundleType || b.Version != BundleVersion || b.Doctor != "0xD1" {
		t.Errorf("unexpected header %+v", b)
	}
	if len(b.AuthorizedRecordIDs) != 1 || b.AuthorizedRecordIDs[0] != a {
		t.Errorf("expected deduplicated [A], got %v", b.AuthorizedRecordIDs)
	}
	if len(b.Data) != 1 {
		t.Fatalf("expected 1 data entry, got %d", len(b.Data))
	}
	if got := b.Data[a.String()]; got.ContentRef != "QmA" {
		t.Errorf("unexpected data entry %+v", got)
	}
}

func TestPackager_RoundTrip(t *testing.T) {
	p := NewPackager(blobstore.NewMemoryStore(), ledger.FixedClock(testNow))
	ctx := context.Background()
	authorized := []ledger.RecordID{ledger.RecordIDFromName("B"), ledger.RecordIDFromName("A")}

	ref, err := p.CreateDoctorSharedData(ctx, sampleRecords(), "0xD1", authorized)
	if err != nil {
		t.Fatalf("CreateDoctorSharedData: %v", err)
	}
	if err := ref.Validate(); err != nil {
		t.Errorf("content ref is not well formed: %v", err)
	}

	bundle, err := p.DecryptDoctorSharedData(ctx, ref, "0xD1")
	if err != nil {
		t.Fatalf("DecryptDoctorSharedData: %v", err)
	}
	if bundle.Doctor != "0xD1" || !bundle.Timestamp.Equal(testNow) {
		t.Errorf("unexpected bundle header %+v", bundle)
	}
	if len(bundle.AuthorizedRecordIDs) != 2 || bundle.AuthorizedRecordIDs[0] != authorized[0] || bundle.AuthorizedRecordIDs[1] != authorized[1] {
		t.Errorf("authorized ids not preserved: %v", bundle.AuthorizedRecordIDs)
	}
	if len(bundle.Data) != 2 {
		t.Errorf("expected 2 data entries, got %d", len(bundle.Data))
	}

	if _, err := p.DecryptDoctorSharedData(ctx, ref, "0xD2"); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("expected Unauthorized for another doctor, got %v", err)
	}
}

func TestPackager_ForeignPayload(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	p := NewPackager(blobs, ledger.FixedClock(testNow))
	ctx := context.Background()

	ref, err := blobs.Put(ctx, []byte(`{"resourceType":"Patient","id":"123"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.DecryptDoctorSharedData(ctx, ref, "0xD1"); !errors.Is(err, ledger.ErrCorruptBundle) {
		t.Errorf("expected CorruptBundle, got %v", err)
	}
}

func TestPackager_MissingBlob(t *testing.T) {
	p := NewPackager(blobstore.NewMemoryStore(), ledger.FixedClock(testNow))
	ref := blobstore.RefFor([]byte("never stored"))
	if _, err := p.DecryptDoctorSharedData(context.Background(), ref, "0xD1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestDecode_Rejects(t *testing.T) {
	a := ledger.RecordIDFromName("A").String()
	b := ledger.RecordIDFromName("B").String()
	entry := func(id string) string {
		return `{"record_id":"` + id + `","content_ref":"QmA","provider":"0xV1","version":1,"updated_at":"2024-05-01T09:30:00Z"}`
	}
	valid := `{"type":"doctor-shared-data","version":1,"doctor":"0xD1","authorized_record_ids":["` + a + `"],"data":{"` + a + `":` + entry(a) + `},"timestamp":"2024-05-01T09:30:00Z"}`
	if _, err := Decode([]byte(valid)); err != nil {
		t.Fatalf("valid bundle rejected: %v", err)
	}

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "hello"},
		{"trailing data", valid + " {}"},
		{"wrong type", strings.Replace(valid, "doctor-shared-data", "patient-export", 1)},
		{"wrong version", strings.Replace(valid, `"version":1,"doctor"`, `"version":2,"doctor"`, 1)},
		{"missing doctor", strings.Replace(valid, `"doctor":"0xD1",`, "", 1)},
		{"unknown field", strings.Replace(valid, `"doctor":"0xD1"`, `"doctor":"0xD1","extra":true`, 1)},
		{"missing ids", strings.Replace(valid, `"authorized_record_ids":["`+a+`"],`, "", 1)},
		{"null data", strings.Replace(valid, `"data":{"`+a+`":`+entry(a)+`}`, `"data":null`, 1)},
		{"unauthorized entry", strings.Replace(valid, `"data":{"`+a+`":`+entry(a)+`}`, `"data":{"`+b+`":`+entry(b)+`}`, 1)},
		{"mismatched entry", strings.Replace(valid, `"data":{"`+a+`":`+entry(a)+`}`, `"data":{"`+a+`":`+entry(b)+`}`, 1)},
		{"missing timestamp", strings.Replace(valid, `,"timestamp":"2024-05-01T09:30:00Z"}`, "}", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.payload)); !errors.Is(err, ledger.ErrCorruptBundle) {
				t.Errorf("expected CorruptBundle, got %v", err)
			}
		})
	}
}
