package errs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrorCode is the stable numeric identity of a failure kind. Two *Error
// values with the same code compare equal under errors.Is.
type ErrorCode int

const (
	CodeUnknown ErrorCode = 0

	// Store error codes (1000-1999)

	CodeDuplicateEntity      ErrorCode = 1001
	CodeDuplicateBlueprint   ErrorCode = 1002
	CodeDuplicateInstance    ErrorCode = 1003
	CodeUnknownComponent     ErrorCode = 1004
	CodeUnknownBlueprint     ErrorCode = 1005
	CodeEntityNotFound       ErrorCode = 1006
	CodeInstanceNotFound     ErrorCode = 1007
	CodeCapacityExceeded     ErrorCode = 1008
	CodeComponentNotAttached ErrorCode = 1009
	CodeKeyCollision         ErrorCode = 1010
	CodeCorrupt              ErrorCode = 1011

	// Authorization error codes (2000-2999)

	CodeUnauthorized        ErrorCode = 2001
	CodeBundleNotRegistered ErrorCode = 2002
	CodeInvalidOwner        ErrorCode = 2003
	CodeInvalidPlayer       ErrorCode = 2004

	// Phase error codes (3000-3999)

	CodeInvalidPlayPhase ErrorCode = 3001
	CodeGamePaused       ErrorCode = 3002
	CodeInvalidGameMode  ErrorCode = 3003

	// Input bound error codes (4000-4999)

	CodePlayerCountExceeded ErrorCode = 4001
	CodeStringTooLong       ErrorCode = 4002
	CodeInvalidArgument     ErrorCode = 4003

	// Game rule error codes (5000-5999)

	CodeTileOccupied      ErrorCode = 5001
	CodeInvalidCard       ErrorCode = 5002
	CodeInvalidUnit       ErrorCode = 5003
	CodeUnitRecovering    ErrorCode = 5004
	CodeUnitLacksMovement ErrorCode = 5005
	CodeUnitDead          ErrorCode = 5006
	CodeNoHealthComponent ErrorCode = 5007
	CodeOutOfRange        ErrorCode = 5008
	CodeFriendlyFire      ErrorCode = 5009
	CodeInvalidLocation   ErrorCode = 5010
)

var (
	// Store errors

	ErrDuplicateEntity      = New(CodeDuplicateEntity, "entity already exists")
	ErrDuplicateBlueprint   = New(CodeDuplicateBlueprint, "blueprint already registered")
	ErrDuplicateInstance    = New(CodeDuplicateInstance, "world instance already exists")
	ErrUnknownComponent     = New(CodeUnknownComponent, "component not registered")
	ErrUnknownBlueprint     = New(CodeUnknownBlueprint, "blueprint not registered")
	ErrEntityNotFound       = New(CodeEntityNotFound, "entity not found")
	ErrInstanceNotFound     = New(CodeInstanceNotFound, "world instance not found")
	ErrCapacityExceeded     = New(CodeCapacityExceeded, "capacity exceeded")
	ErrComponentNotAttached = New(CodeComponentNotAttached, "component not attached to entity")
	ErrKeyCollision         = New(CodeKeyCollision, "component key collision")
	ErrCorrupt              = New(CodeCorrupt, "stored record is corrupt")

	// Authorization errors

	ErrUnauthorized        = New(CodeUnauthorized, "signer is not permitted to write component")
	ErrBundleNotRegistered = New(CodeBundleNotRegistered, "action bundle not registered")
	ErrInvalidOwner        = New(CodeInvalidOwner, "caller does not own entity")
	ErrInvalidPlayer       = New(CodeInvalidPlayer, "player is not part of this instance")

	// Phase errors

	ErrInvalidPlayPhase = New(CodeInvalidPlayPhase, "invalid play phase")
	ErrGamePaused       = New(CodeGamePaused, "game is paused")
	ErrInvalidGameMode  = New(CodeInvalidGameMode, "operation not available in this game mode")

	// Input bound errors

	ErrPlayerCountExceeded = New(CodePlayerCountExceeded, "player count exceeded")
	ErrStringTooLong       = New(CodeStringTooLong, "string too long")
	ErrInvalidArgument     = New(CodeInvalidArgument, "invalid argument")

	// Game rule errors

	ErrTileOccupied      = New(CodeTileOccupied, "tile occupied")
	ErrInvalidCard       = New(CodeInvalidCard, "player does not hold that card")
	ErrInvalidUnit       = New(CodeInvalidUnit, "tile is not occupied by that unit")
	ErrUnitRecovering    = New(CodeUnitRecovering, "unit is still recovering")
	ErrUnitLacksMovement = New(CodeUnitLacksMovement, "unit cannot move that far")
	ErrUnitDead          = New(CodeUnitDead, "unit is not alive")
	ErrNoHealthComponent = New(CodeNoHealthComponent, "defender has no health")
	ErrOutOfRange        = New(CodeOutOfRange, "defender out of range")
	ErrFriendlyFire      = New(CodeFriendlyFire, "cannot attack own entity")
	ErrInvalidLocation   = New(CodeInvalidLocation, "defender is not on the defending tile")
)

// Error is a typed failure carrying a code, a message and optional context.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		b.WriteString(" (")
		for i, k := range slices.Sorted(maps.Keys(e.Context)) {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy annotated with key=value. The receiver is never mutated,
// so package-level sentinels stay clean.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	maps.Copy(cp.Context, e.Context)
	cp.Context[key] = value
	return &cp
}

// Wrap returns a copy with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
