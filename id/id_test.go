package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/paywall/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"PostID", id.NewPostID, "post_"},
		{"SubscriptionID", id.NewSubscriptionID, "sub_"},
		{"UnlockID", id.NewUnlockID, "ulk_"},
		{"TransactionID", id.NewTransactionID, "txn_"},
		{"AccountID", id.NewAccountID, "acct_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixPost)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixPost {
		t.Errorf("expected prefix %q, got %q", id.PrefixPost, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"PostID", id.NewPostID, id.ParsePostID},
		{"SubscriptionID", id.NewSubscriptionID, id.ParseSubscriptionID},
		{"UnlockID", id.NewUnlockID, id.ParseUnlockID},
		{"TransactionID", id.NewTransactionID, id.ParseTransactionID},
		{"AccountID", id.NewAccountID, id.ParseAccountID},
		{"EventID", id.NewEventID, id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round trip: got %q, want %q", parsed.String(), original.String())
			}
		})
	}
}

func TestParseRejectsWrongPrefix(t *testing.T) {
	postID := id.NewPostID()
	if _, err := id.ParseUnlockID(postID.String()); err == nil {
		t.Error("expected error parsing post ID as unlock ID")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	tests := []string{"", "not-a-typeid", "post_!!!!", "_missing"}
	for _, s := range tests {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero value should be nil")
	}
	if i.String() != "" {
		t.Errorf("nil ID String: got %q, want empty", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("nil ID Prefix: got %q, want empty", i.Prefix())
	}
}

func TestTextMarshaling(t *testing.T) {
	original := id.NewUnlockID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(data); err != nil {
		t.Fatal(err)
	}
	if decoded.String() != original.String() {
		t.Errorf("round trip: got %q, want %q", decoded.String(), original.String())
	}

	var empty id.ID
	if err := empty.UnmarshalText(nil); err != nil {
		t.Fatal(err)
	}
	if !empty.IsNil() {
		t.Error("unmarshaling empty text should produce nil ID")
	}
}

func TestSQLValueScan(t *testing.T) {
	original := id.NewTransactionID()

	v, err := original.Value()
	if err != nil {
		t.Fatal(err)
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Value: expected string, got %T", v)
	}

	var scanned id.ID
	if err := scanned.Scan(s); err != nil {
		t.Fatal(err)
	}
	if scanned.String() != original.String() {
		t.Errorf("scan round trip: got %q, want %q", scanned.String(), original.String())
	}

	// NULL column scans to Nil.
	var fromNull id.ID
	if err := fromNull.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if !fromNull.IsNil() {
		t.Error("scanning nil should produce nil ID")
	}

	// Nil ID stores NULL.
	nv, err := id.Nil.Value()
	if err != nil {
		t.Fatal(err)
	}
	if nv != nil {
		t.Errorf("nil ID Value: got %v, want nil", nv)
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := id.NewEventID().String()
		if seen[s] {
			t.Fatalf("duplicate ID generated: %s", s)
		}
		seen[s] = true
	}
}
