// Package command implements the command parameter contract: declarative
// parameter specs, the existence/permission/type validation pipeline, and
// the serializable command definitions consumed by clients for pre-flight
// validation. The package is transport-agnostic; the dispatch layer feeds
// it a Data mapping extracted from the request and decides how failures
// are surfaced.
package command

// Type is the logical type of a command parameter. It determines both the
// coercion rule applied to incoming values and whether the value arrives
// as a JSON-encoded form string or as a raw multipart payload.
type Type string

const (
	TypeNumber      Type = "number"
	TypeString      Type = "string"
	TypeObject      Type = "object"
	TypeNumberArray Type = "number[]"
	TypeStringArray Type = "string[]"
	TypeObjectArray Type = "object[]"
	TypeBlob        Type = "blob"
	TypeBlobArray   Type = "blob[]"
	TypeFile        Type = "file"
	TypeFileArray   Type = "file[]"
)

// Valid reports whether t is one of the known logical types.
func (t Type) Valid() bool {
	switch t {
	case TypeNumber, TypeString, TypeObject,
		TypeNumberArray, TypeStringArray, TypeObjectArray,
		TypeBlob, TypeBlobArray, TypeFile, TypeFileArray:
		return true
	default:
		return false
	}
}

// Multivalued reports whether raw extraction should yield a sequence of
// values rather than a single item.
func (t Type) Multivalued() bool {
	switch t {
	case TypeNumberArray, TypeStringArray, TypeObjectArray, TypeBlobArray, TypeFileArray:
		return true
	default:
		return false
	}
}

// TransportEncoded reports whether values of this type arrive as
// JSON-encoded form strings that need a decode step before coercion.
// Blob and file payloads arrive as native multipart parts and pass
// through untouched.
func (t Type) TransportEncoded() bool {
	switch t {
	case TypeNumber, TypeString, TypeObject,
		TypeNumberArray, TypeStringArray, TypeObjectArray:
		return true
	default:
		return false
	}
}

// Binary reports whether values of this type are carried in the file part
// of a multipart form rather than in the value part.
func (t Type) Binary() bool {
	switch t {
	case TypeBlob, TypeBlobArray, TypeFile, TypeFileArray:
		return true
	default:
		return false
	}
}

// Param declares one expected command parameter. It is a pure value
// object: construction is programmer-controlled and specs are checked for
// shape once, at registry registration time.
type Param struct {
	Name     string
	Type     Type
	Required bool
	Default  any
}

// Key returns the transport key under which this parameter's value(s) are
// expected in incoming request data. Multivalued parameters use the
// form-encoding convention of a "[]" suffix so clients can post repeated
// fields without stringifying; all other types use the name as-is.
func (p Param) Key() string {
	if p.Type.Multivalued() {
		return p.Name + "[]"
	}
	return p.Name
}

// ParamDefinition is the serializable shape of a Param, consumed by
// clients for upfront form validation.
type ParamDefinition struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// Definition returns the client-facing definition of the parameter.
func (p Param) Definition() ParamDefinition {
	return ParamDefinition{
		Name:     p.Name,
		Type:     p.Type,
		Required: p.Required,
		Default:  p.Default,
	}
}
