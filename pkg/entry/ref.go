package entry

import (
	"fmt"
	"strconv"
)

// ID constrains the identifier type a store is parameterized over.
//
// Internal stores address entries by small integers allocated by the local
// database. Federated stores address entries by opaque strings of the form
// "provider-key:native-path". A single store instance never mixes the two;
// crossing the boundary goes through the cross-store engine.
type ID interface {
	~int | ~string
}

// RefKind discriminates the two identifier spaces.
type RefKind int

const (
	// RefInternal identifies an entry hosted in the internal store.
	RefInternal RefKind = iota

	// RefFederated identifies an entry hosted in a provider-backed store.
	RefFederated
)

// Ref is a sum-typed entry identifier used at call boundaries where both
// identifier kinds must be carried or compared.
//
// Inside a store, entries keep their native typed identifier (int or string);
// Ref exists so the aggregator, the cross-store engine and the tag overlay can
// handle mixed results without type-unsafe branching.
type Ref struct {
	kind RefKind
	num  int
	str  string
}

// Internal builds a Ref for an internal integer identifier.
func Internal(id int) Ref {
	return Ref{kind: RefInternal, num: id}
}

// Federated builds a Ref for a federated string identifier.
func Federated(id string) Ref {
	return Ref{kind: RefFederated, str: id}
}

// RefOf converts a store-native identifier into a Ref.
func RefOf[T ID](id T) Ref {
	switch v := any(id).(type) {
	case int:
		return Internal(v)
	case string:
		return Federated(v)
	default:
		// Unreachable for types satisfying ID, kept for named types.
		return Federated(fmt.Sprint(v))
	}
}

// Kind reports which identifier space the Ref belongs to.
func (r Ref) Kind() RefKind {
	return r.kind
}

// Int returns the internal identifier. ok is false for federated refs.
func (r Ref) Int() (int, bool) {
	if r.kind != RefInternal {
		return 0, false
	}
	return r.num, true
}

// Str returns the federated identifier. ok is false for internal refs.
func (r Ref) Str() (string, bool) {
	if r.kind != RefFederated {
		return "", false
	}
	return r.str, true
}

// IsZero reports whether the Ref carries no identifier at all.
// The zero value of Ref is an internal ref with id 0, which is never a valid
// entry id in the local database.
func (r Ref) IsZero() bool {
	return r.kind == RefInternal && r.num == 0 && r.str == ""
}

// String renders the identifier for keys and logs. Internal refs render as
// the decimal id, federated refs as the raw provider-prefixed id, so the
// rendering matches the entry ids stored in tag and security rows.
func (r Ref) String() string {
	if r.kind == RefInternal {
		return strconv.Itoa(r.num)
	}
	return r.str
}

// ParseRef is the inverse of Ref.String: decimal strings become internal
// refs, everything else a federated ref.
func ParseRef(s string) Ref {
	if n, err := strconv.Atoi(s); err == nil {
		return Internal(n)
	}
	return Federated(s)
}
