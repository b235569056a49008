package core

import "strings"

// Kind is the closed set of supported backends.
type Kind int

const (
	KindSqlite Kind = iota
	KindPostgres
)

func (k Kind) String() string {
	switch k {
	case KindSqlite:
		return "sqlite"
	case KindPostgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// DetectKind classifies a connection identifier. A string is a postgres
// identifier iff it starts with a recognized URI scheme or contains a
// key=value DSN marker; everything else - including strings with an
// unrecognized "scheme://" prefix - is a sqlite filesystem path.
func DetectKind(identifier string) Kind {
	if strings.HasPrefix(identifier, "postgres://") ||
		strings.HasPrefix(identifier, "postgresql://") ||
		strings.Contains(identifier, "host=") {
		return KindPostgres
	}
	return KindSqlite
}

// Descriptor is an immutable connection identifier with its derived kind.
type Descriptor struct {
	identifier string
	kind       Kind
}

func NewDescriptor(identifier string) Descriptor {
	return Descriptor{
		identifier: identifier,
		kind:       DetectKind(identifier),
	}
}

func (d Descriptor) Identifier() string { return d.identifier }

func (d Descriptor) Kind() Kind { return d.kind }
