package entry

import "testing"

func TestRef_InternalRoundTrip(t *testing.T) {
	r := Internal(42)

	if r.Kind() != RefInternal {
		t.Errorf("Expected internal kind, got %v", r.Kind())
	}
	id, ok := r.Int()
	if !ok || id != 42 {
		t.Errorf("Expected (42, true), got (%d, %v)", id, ok)
	}
	if _, ok := r.Str(); ok {
		t.Error("Expected Str() to fail on an internal ref")
	}
	if r.String() != "42" {
		t.Errorf("Expected \"42\", got %q", r.String())
	}
}

func TestRef_FederatedRoundTrip(t *testing.T) {
	r := Federated("box:/docs/report.docx")

	if r.Kind() != RefFederated {
		t.Errorf("Expected federated kind, got %v", r.Kind())
	}
	id, ok := r.Str()
	if !ok || id != "box:/docs/report.docx" {
		t.Errorf("Expected the raw id back, got (%q, %v)", id, ok)
	}
	if _, ok := r.Int(); ok {
		t.Error("Expected Int() to fail on a federated ref")
	}
	if r.String() != "box:/docs/report.docx" {
		t.Errorf("Unexpected rendering %q", r.String())
	}
}

func TestRefOf(t *testing.T) {
	if got := RefOf(7); got != Internal(7) {
		t.Errorf("RefOf(7) = %v", got)
	}
	if got := RefOf("sp:/a"); got != Federated("sp:/a") {
		t.Errorf("RefOf(sp:/a) = %v", got)
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{"17", Internal(17)},
		{"box:/a/b", Federated("box:/a/b")},
		{"3a9f", Federated("3a9f")},
	}
	for _, tt := range tests {
		if got := ParseRef(tt.in); got != tt.want {
			t.Errorf("ParseRef(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRef_IsZero(t *testing.T) {
	var zero Ref
	if !zero.IsZero() {
		t.Error("Expected the zero Ref to report IsZero")
	}
	if Internal(1).IsZero() {
		t.Error("Internal(1) must not be zero")
	}
	if Federated("k:/").IsZero() {
		t.Error("A federated ref must not be zero")
	}
}

func TestRef_StringMatchesTagRows(t *testing.T) {
	// Tag and security rows key entries by this rendering; both spaces
	// must survive a String/ParseRef round trip.
	for _, r := range []Ref{Internal(5), Federated("gd:/x y/z.txt")} {
		if got := ParseRef(r.String()); got != r {
			t.Errorf("Round trip of %v gave %v", r, got)
		}
	}
}
