package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRecordIDFromName_Keccak(t *testing.T) {
	// keccak256("") is a well known constant.
	got := RecordIDFromName("").String()
	want := "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRecordIDFromName_Deterministic(t *testing.T) {
	a := RecordIDFromName("blood-test-2024")
	b := RecordIDFromName("blood-test-2024")
	if a != b {
		t.Error("expected the same id for the same name")
	}
	if a == RecordIDFromName("blood-test-2025") {
		t.Error("expected different ids for different names")
	}
}

func TestParseRecordID_RoundTrip(t *testing.T) {
	id := RecordIDFromName("xray")
	parsed, err := ParseRecordID(id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != id {
		t.Errorf("expected %s, got %s", id, parsed)
	}
	bare, err := ParseRecordID(strings.TrimPrefix(id.String(), "0x"))
	if err != nil || bare != id {
		t.Errorf("expected bare hex to parse, got %v %v", bare, err)
	}
}

func TestParseRecordID_Invalid(t *testing.T) {
	for _, in := range []string{"", "0x1234", "0x" + strings.Repeat("zz", 32)} {
		if _, err := ParseRecordID(in); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseRecordID(%q): expected ErrInvalidArgument, got %v", in, err)
		}
	}
}

func TestResolveRecordID(t *testing.T) {
	id := RecordIDFromName("mri")
	got, err := ResolveRecordID(id.String())
	if err != nil || got != id {
		t.Errorf("expected hex input to resolve to itself, got %s %v", got, err)
	}
	got, err = ResolveRecordID("mri")
	if err != nil || got != id {
		t.Errorf("expected name input to be fingerprinted, got %s %v", got, err)
	}
	if _, err := ResolveRecordID(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty input, got %v", err)
	}
}

func TestResolveRecordID_NamePrefix(t *testing.T) {
	hexName := strings.Repeat("ab", 32)
	got, err := ResolveRecordID(NamePrefix + hexName)
	if err != nil {
		t.Fatal(err)
	}
	if got != RecordIDFromName(hexName) {
		t.Errorf("expected a hex-looking name to be fingerprinted, got %s", got)
	}
	if raw, _ := ResolveRecordID(hexName); raw == got {
		t.Error("expected the unprefixed form to stay a raw id")
	}
	if got, _ := ResolveRecordID(NamePrefix + "mri"); got != RecordIDFromName("mri") {
		t.Errorf("expected prefixed name to match plain name, got %s", got)
	}
	if _, err := ResolveRecordID(NamePrefix); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for a bare prefix, got %v", err)
	}
}

func TestRecordID_TextMarshaling(t *testing.T) {
	id := RecordIDFromName("lab")
	b, _ := id.MarshalText()
	var out RecordID
	if err := out.UnmarshalText(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != id {
		t.Errorf("expected %s, got %s", id, out)
	}
}

func TestUniqueRecordIDs_KeepsFirstOccurrence(t *testing.T) {
	a, b := RecordIDFromName("a"), RecordIDFromName("b")
	got := UniqueRecordIDs([]RecordID{b, a, b, a})
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestPrincipal_Validate(t *testing.T) {
	tests := []struct {
		in    Principal
		valid bool
	}{
		{"0xP1", true},
		{"0xAbCdEf0123456789", true},
		{"", false},
		{"has space", false},
		{"tab\tchar", false},
		{Principal(strings.Repeat("a", MaxPrincipalLen+1)), false},
	}
	for _, tt := range tests {
		err := tt.in.Validate()
		if tt.valid && err != nil {
			t.Errorf("Validate(%q): unexpected error %v", tt.in, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Validate(%q): expected ErrInvalidArgument, got %v", tt.in, err)
		}
	}
}

func TestContentRef_Validate(t *testing.T) {
	tests := []struct {
		in    ContentRef
		valid bool
	}{
		{"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", true},
		{"bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku", true},
		{"ipfs://QmTest", true},
		{"", false},
		{"has space", false},
		{"/leading-slash", false},
		{ContentRef("Q" + strings.Repeat("m", MaxContentRefLen)), false},
	}
	for _, tt := range tests {
		err := tt.in.Validate()
		if tt.valid && err != nil {
			t.Errorf("Validate(%q): unexpected error %v", tt.in, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Validate(%q): expected ErrInvalidArgument, got %v", tt.in, err)
		}
	}
}

func TestClock_TruncatesToSeconds(t *testing.T) {
	c := FixedClock(time.Date(2024, 6, 1, 10, 0, 0, 999, time.UTC))
	if got := c.Now(); got.Nanosecond() != 0 {
		t.Errorf("expected whole seconds, got %v", got)
	}
	var nilClock Clock
	if nilClock.Now().IsZero() {
		t.Error("expected nil clock to fall back to system time")
	}
}

func TestAfterCommit_RunsImmediatelyOutsideTx(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	if !ran {
		t.Error("expected hook to run immediately without a transaction")
	}
}

func TestAfterCommit_DeferredUntilRun(t *testing.T) {
	ctx, hooks := WithCommitHooks(context.Background())
	var order []int
	AfterCommit(ctx, func() { order = append(order, 1) })
	AfterCommit(ctx, func() { order = append(order, 2) })
	if len(order) != 0 {
		t.Fatal("expected hooks to be deferred")
	}
	hooks.Run()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("unexpected hook order: %v", order)
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	var m KeyedMutex
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("0xP1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("expected 50, got %d", counter)
	}
}
