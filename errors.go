package dtable

import "errors"

// ErrConnectionFailure is returned by Open when the liveness probe against the
// database fails. It is fatal; no retry is attempted internally.
var ErrConnectionFailure = errors.New("dtable: could not connect to database")

// Additional package-level errors
var (
	// ErrTableNotFound is returned when the requested table does not exist in the
	// configured schema namespace.
	ErrTableNotFound = errors.New("dtable: table not found")
	// ErrNoPrimaryKey is returned by Upsert when the target table exposes no
	// primary key; conflict resolution has no target without one.
	ErrNoPrimaryKey = errors.New("dtable: table has no primary key")
	// ErrMissingMatchField is returned by Update when a record lacks one of the
	// declared match fields, or carries nothing to set besides them.
	ErrMissingMatchField = errors.New("dtable: record is missing a match field")
	// ErrColumnAlreadyExists is returned by AddColumn when called directly on a
	// column that is already present. CreateTable's existing-table branch is the
	// idempotent path.
	ErrColumnAlreadyExists = errors.New("dtable: column already exists")
	// ErrUnsafeValue is returned by the predicate compiler when a caller supplies
	// a raw SQL fragment where a structured predicate is expected.
	ErrUnsafeValue = errors.New("dtable: unsafe predicate value")
)
