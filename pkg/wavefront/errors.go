package wavefront

import (
	"errors"
	"fmt"
)

// Parse errors.
var (
	ErrMalformedNumericField = errors.New("malformed numeric field")
	ErrIndexOutOfRange       = errors.New("face index out of range")
	ErrMissingName           = errors.New("missing name")
	ErrCanceled              = errors.New("parse canceled")
)

// Tier says what happens when a field fails to decode.
type Tier int

const (
	// Fatal aborts the whole parse with an error.
	Fatal Tier = iota
	// Tolerant falls back to a default and keeps parsing.
	Tolerant
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case Fatal:
		return "fatal"
	case Tolerant:
		return "tolerant"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Field names a decoded field class.
type Field string

// Field classes with a decode policy.
const (
	FieldPosition      Field = "v"
	FieldTexCoord      Field = "vt"
	FieldNormal        Field = "vn"
	FieldFacePosition  Field = "f.position"
	FieldFaceTexCoord  Field = "f.texcoord"
	FieldFaceNormal    Field = "f.normal"
	FieldColor         Field = "Kd/Ks"
	FieldOpacity       Field = "d/Tr"
	FieldMaterialName  Field = "newmtl"
	FieldTextureLookup Field = "map"
)

// Policy is the decode policy for every field class. Attribute components
// are fatal since dropping them would shift every later index; face index
// sub-tokens are tolerant.
var Policy = map[Field]Tier{
	FieldPosition:      Fatal,
	FieldTexCoord:      Fatal,
	FieldNormal:        Fatal,
	FieldFacePosition:  Tolerant, // corner skipped
	FieldFaceTexCoord:  Tolerant, // index 1
	FieldFaceNormal:    Tolerant, // index 1
	FieldColor:         Fatal,
	FieldOpacity:       Fatal,
	FieldMaterialName:  Fatal,
	FieldTextureLookup: Tolerant, // handle left nil, error collected
}

// LineError reports the source line a fatal error came from.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func lineError(line int, err error) error {
	return &LineError{Line: line, Err: err}
}
