package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissing                = errors.New("missing required attribute")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrConversion             = errors.New("numeric conversion failed")
	ErrUnderflow              = errors.New("tick arithmetic underflow")
	ErrEmpty                  = errors.New("empty collection")
	ErrNotImplemented         = errors.New("not implemented")
)

// Kind classifies an expansion failure.
type Kind int

const (
	KindMissing Kind = iota + 1
	KindUnsupportedContentType
	KindConversion
	KindUnderflow
	KindEmpty
	KindNotImplemented
)

var kindNames = map[Kind]string{
	KindMissing:                "missing",
	KindUnsupportedContentType: "unsupported_content_type",
	KindConversion:             "conversion",
	KindUnderflow:              "underflow",
	KindEmpty:                  "empty",
	KindNotImplemented:         "not_implemented",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Sentinel returns the package-level error matching k.
func (k Kind) Sentinel() error {
	switch k {
	case KindMissing:
		return ErrMissing
	case KindUnsupportedContentType:
		return ErrUnsupportedContentType
	case KindConversion:
		return ErrConversion
	case KindUnderflow:
		return ErrUnderflow
	case KindEmpty:
		return ErrEmpty
	case KindNotImplemented:
		return ErrNotImplemented
	}
	return nil
}

// Scope identifies the manifest entity an error refers to.
// Empty fields are omitted from messages.
type Scope struct {
	Period         string
	AdaptationSet  string
	Representation string
}

// Fail builds an *Error located at s.
func (s Scope) Fail(kind Kind, field string, cause error) *Error {
	return &Error{Kind: kind, Scope: s, Field: field, Err: cause}
}

// Locate fills the empty scope fields of err from s when err is an *Error,
// so a failure deep in the tree still names every enclosing entity.
func (s Scope) Locate(err error) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	located := *e
	if located.Scope.Period == "" {
		located.Scope.Period = s.Period
	}
	if located.Scope.AdaptationSet == "" {
		located.Scope.AdaptationSet = s.AdaptationSet
	}
	if located.Scope.Representation == "" {
		located.Scope.Representation = s.Representation
	}
	return &located
}

func (s Scope) String() string {
	var parts []string
	if s.Period != "" {
		parts = append(parts, fmt.Sprintf("period '%s'", s.Period))
	}
	if s.AdaptationSet != "" {
		parts = append(parts, fmt.Sprintf("adaptation set '%s'", s.AdaptationSet))
	}
	if s.Representation != "" {
		parts = append(parts, fmt.Sprintf("representation '%s'", s.Representation))
	}
	return strings.Join(parts, ", ")
}

// Error is returned for every expansion failure. It matches its Kind's
// sentinel with errors.Is and also unwraps to the underlying cause.
type Error struct {
	Kind  Kind
	Scope Scope
	Field string
	Err   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if sentinel := e.Kind.Sentinel(); sentinel != nil {
		sb.WriteString(sentinel.Error())
	} else {
		sb.WriteString("expansion failed")
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, " '%s'", e.Field)
	}
	if where := e.Scope.String(); where != "" {
		sb.WriteString(" in ")
		sb.WriteString(where)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// KindOf reports the Kind carried by err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
