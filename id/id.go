// Package id provides the typed identifiers used across Custodian.
//
// Identifiers are TypeIDs: K-sortable, globally unique, URL-safe strings
// of the form "prefix_suffix", where the prefix names the entity kind.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the entity kind encoded in an identifier.
type Prefix string

const (
	PrefixProject      Prefix = "proj"
	PrefixExperiment   Prefix = "exp"
	PrefixDeployment   Prefix = "depl"
	PrefixGroupProfile Prefix = "grp"
	PrefixToken        Prefix = "tok"
	PrefixAuditLog     Prefix = "audit"
)

// ID wraps a TypeID. The zero value is Nil and renders as the empty
// string; database NULL and empty text both round-trip to Nil.
//
//nolint:recvcheck // Value receivers for reads, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a fresh ID under the given prefix. An invalid prefix is a
// programming error and panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse converts a TypeID string such as
// "proj_01h2xcejqtf2nbrexx3vqjhp41" into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and rejects it when the prefix differs from
// expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if p := parsed.Prefix(); p != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, p)
	}
	return parsed, nil
}

// MustParse is Parse for hardcoded values; it panics on error.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// MustParseWithPrefix is ParseWithPrefix for hardcoded values; it panics
// on error.
func MustParseWithPrefix(s string, expected Prefix) ID {
	parsed, err := ParseWithPrefix(s, expected)
	if err != nil {
		panic(fmt.Sprintf("id: must parse with prefix %q: %v", expected, err))
	}
	return parsed
}

// Aliases give call sites a vocabulary for which kind of ID they expect.
// They are aliases, not distinct types, so an AnyID from the sharing
// registry assigns freely once its prefix has been validated.
type (
	ProjectID      = ID
	ExperimentID   = ID
	DeploymentID   = ID
	GroupProfileID = ID
	TokenID        = ID
	AuditLogID     = ID
	AnyID          = ID
)

func NewProjectID() ID      { return New(PrefixProject) }
func NewExperimentID() ID   { return New(PrefixExperiment) }
func NewDeploymentID() ID   { return New(PrefixDeployment) }
func NewGroupProfileID() ID { return New(PrefixGroupProfile) }
func NewTokenID() ID        { return New(PrefixToken) }
func NewAuditLogID() ID     { return New(PrefixAuditLog) }

func ParseProjectID(s string) (ID, error)      { return ParseWithPrefix(s, PrefixProject) }
func ParseExperimentID(s string) (ID, error)   { return ParseWithPrefix(s, PrefixExperiment) }
func ParseDeploymentID(s string) (ID, error)   { return ParseWithPrefix(s, PrefixDeployment) }
func ParseGroupProfileID(s string) (ID, error) { return ParseWithPrefix(s, PrefixGroupProfile) }
func ParseTokenID(s string) (ID, error)        { return ParseWithPrefix(s, PrefixToken) }
func ParseAuditLogID(s string) (ID, error)     { return ParseWithPrefix(s, PrefixAuditLog) }

// ParseAny parses s without checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// String renders the full "prefix_suffix" form, or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether the ID is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields
// Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer. Nil stores as SQL NULL so optional
// foreign key columns stay nullable.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
