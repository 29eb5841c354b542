// Package gen provides the relationship-aware generation engine: it turns
// loaded entity schemas into an analyzed relationship graph and emits
// repository code for it.
package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the generation-time failure classes. All of them are
// non-recoverable for a generation pass; they are fixed by correcting the
// entity declarations.
var (
	// ErrInvalidSchema indicates a schema definition error.
	ErrInvalidSchema = errors.New("relgen: invalid schema")
	// ErrUnresolvedTarget indicates a relationship target that is not a known entity.
	ErrUnresolvedTarget = errors.New("relgen: unresolved relationship target")
	// ErrInvalidMappedBy indicates an inverse side whose back-reference does not resolve.
	ErrInvalidMappedBy = errors.New("relgen: invalid mappedBy reference")
	// ErrCircularOwnership indicates a cycle among owning relationship edges.
	ErrCircularOwnership = errors.New("relgen: circular ownership")
	// ErrUnsupportedShape indicates a relationship shape the synthesizer cannot express.
	ErrUnsupportedShape = errors.New("relgen: unsupported relationship shape")
	// ErrOrphanRemoval indicates a misconfigured orphan-removal declaration.
	ErrOrphanRemoval = errors.New("relgen: orphan removal misconfigured")
	// ErrValidationFailed indicates that graph validation failed.
	ErrValidationFailed = errors.New("relgen: validation failed")
)

// SchemaError represents an entity or field definition error.
type SchemaError struct {
	Type    string // entity name.
	Field   string // field name, if applicable.
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("relgen: schema error")
	if e.Type != "" {
		b.WriteString(" on entity ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error { return e.Cause }

// Is reports whether the target matches the sentinel error for SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrInvalidSchema }

// UnresolvedTargetError reports a relationship whose target type is not a
// known entity in the analyzed set.
type UnresolvedTargetError struct {
	Type   string // declaring entity.
	Rel    string // declaring relationship.
	Target string // unresolved target name.
}

// Error implements the error interface.
func (e *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("relgen: entity %s relationship %q: target %q is not a known entity", e.Type, e.Rel, e.Target)
}

// Is reports whether the target matches the sentinel error for UnresolvedTargetError.
func (e *UnresolvedTargetError) Is(target error) bool { return target == ErrUnresolvedTarget }

// InvalidMappedByError reports an inverse side whose mappedBy reference does
// not resolve to a field on the target, or resolves to a relationship of a
// mismatched kind.
type InvalidMappedByError struct {
	Type     string // declaring entity.
	Rel      string // declaring relationship.
	Target   string // target entity.
	MappedBy string // referenced field.
	Reason   string
}

// Error implements the error interface.
func (e *InvalidMappedByError) Error() string {
	return fmt.Sprintf("relgen: entity %s relationship %q: mappedBy %s.%s: %s", e.Type, e.Rel, e.Target, e.MappedBy, e.Reason)
}

// Is reports whether the target matches the sentinel error for InvalidMappedByError.
func (e *InvalidMappedByError) Is(target error) bool { return target == ErrInvalidMappedBy }

// CircularOwnershipError reports a cycle among owning relationship edges.
// Generation does not proceed; cycles are never broken implicitly.
type CircularOwnershipError struct {
	// Cycle holds the full entity cycle path, ending where it starts,
	// e.g. [A, B, C, A].
	Cycle []string
}

// Error implements the error interface.
func (e *CircularOwnershipError) Error() string {
	return fmt.Sprintf("relgen: circular ownership: %s", strings.Join(e.Cycle, " -> "))
}

// Is reports whether the target matches the sentinel error for CircularOwnershipError.
func (e *CircularOwnershipError) Is(target error) bool { return target == ErrCircularOwnership }

// UnsupportedRelationshipShapeError reports a relationship shape the SQL
// synthesizer cannot express, such as a composite-key join that cannot be
// written as one equality predicate per key column.
type UnsupportedRelationshipShapeError struct {
	Type   string // declaring entity.
	Rel    string // declaring relationship.
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedRelationshipShapeError) Error() string {
	return fmt.Sprintf("relgen: entity %s relationship %q: unsupported shape: %s", e.Type, e.Rel, e.Reason)
}

// Is reports whether the target matches the sentinel error for UnsupportedRelationshipShapeError.
func (e *UnsupportedRelationshipShapeError) Is(target error) bool { return target == ErrUnsupportedShape }

// OrphanRemovalMisconfiguredError reports orphan removal requested on a
// relationship without the qualifying shape (collection-valued inverse side
// with Remove cascade semantics).
type OrphanRemovalMisconfiguredError struct {
	Type   string // declaring entity.
	Rel    string // declaring relationship.
	Reason string
}

// Error implements the error interface.
func (e *OrphanRemovalMisconfiguredError) Error() string {
	return fmt.Sprintf("relgen: entity %s relationship %q: orphan removal: %s", e.Type, e.Rel, e.Reason)
}

// Is reports whether the target matches the sentinel error for OrphanRemovalMisconfiguredError.
func (e *OrphanRemovalMisconfiguredError) Is(target error) bool { return target == ErrOrphanRemoval }
