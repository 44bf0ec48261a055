package command

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
)

// Contract is the static declaration of one command: its name, its auth
// and permission requirements, and its parameter specs. Contracts are
// registered once at startup, are immutable thereafter, and are safely
// shared read-only across concurrent requests.
type Contract struct {
	Name         string
	AuthRequired bool
	Permissions  []string
	Params       []Param

	// Optional post-coercion hooks, keyed by parameter name.
	Normalizers map[string][]Normalizer
	Rules       map[string][]Rule
}

// Definition is the serializable shape of a Contract, consumed by clients
// so the backend drives the commands available to the front end.
type Definition struct {
	Name   string            `json:"name"`
	Params []ParamDefinition `json:"params"`
}

// Definition returns the client-facing definition of the command, params
// in declared order.
func (c *Contract) Definition() Definition {
	params := make([]ParamDefinition, 0, len(c.Params))
	for _, p := range c.Params {
		params = append(params, p.Definition())
	}
	return Definition{Name: c.Name, Params: params}
}

// ValidateAuth reports whether the caller satisfies the command's
// authentication requirement.
func (c *Contract) ValidateAuth(isAuthenticated bool) bool {
	if !c.AuthRequired {
		return true
	}
	return isAuthenticated
}

// ValidatePermissions reports whether the caller holds all required
// permissions. The contract only decides WHICH permissions are required;
// hasPermissions is computed by an external authorization collaborator.
func (c *Contract) ValidatePermissions(hasPermissions bool) bool {
	if len(c.Permissions) == 0 {
		return true
	}
	return hasPermissions
}

// ValidateParamExistence checks that every required parameter is present
// in data under its transport key. All missing names are collected into a
// single failure, not just the first.
func (c *Contract) ValidateParamExistence(data Data) error {
	var missing []string
	for _, p := range c.Params {
		if p.Required && !data.Has(p.Key()) {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return NewMissingParams(missing)
	}
	return nil
}

// ValidateParamTypes coerces every parameter present in data to its
// declared type and returns the typed mapping keyed by parameter name.
// Specs absent from data are skipped (existence has already been checked;
// defaults are the caller's concern). Coercion errors are accumulated:
// the returned failure names every invalid parameter.
func (c *Contract) ValidateParamTypes(data Data) (map[string]any, error) {
	typed := make(map[string]any)
	var invalid []string
	for _, p := range c.Params {
		if !data.Has(p.Key()) {
			continue
		}
		v, err := coerce(p, data)
		if err != nil {
			invalid = append(invalid, p.Name)
			continue
		}
		typed[p.Name] = v
	}
	if len(invalid) > 0 {
		return nil, NewInvalidParams(invalid)
	}
	return typed, nil
}

// ApplyDefaults fills typed with the declared default of every parameter
// that is absent from it. Defaults are substituted verbatim, never
// themselves coerced or validated.
func (c *Contract) ApplyDefaults(typed map[string]any) {
	for _, p := range c.Params {
		if p.Default == nil {
			continue
		}
		if _, ok := typed[p.Name]; !ok {
			typed[p.Name] = p.Default
		}
	}
}

// check verifies the shape of the contract at registration time.
func (c *Contract) check() error {
	if c.Name == "" {
		return fmt.Errorf("command name must not be empty")
	}
	seen := make(map[string]bool, len(c.Params))
	for _, p := range c.Params {
		if p.Name == "" {
			return fmt.Errorf("command %q: param name must not be empty", c.Name)
		}
		if !p.Type.Valid() {
			return fmt.Errorf("command %q: param %q has unknown type %q", c.Name, p.Name, p.Type)
		}
		if seen[p.Name] {
			return fmt.Errorf("command %q: duplicate param %q", c.Name, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// coerce applies the type-specific coercion rule for one present param.
func coerce(p Param, data Data) (any, error) {
	if p.Type.Binary() {
		return coerceBinary(p, data)
	}

	switch p.Type {
	case TypeNumber:
		raw, _ := data.Get(p.Key())
		return decodeNumber(raw)
	case TypeString:
		raw, _ := data.Get(p.Key())
		return decodeString(raw), nil
	case TypeObject:
		raw, _ := data.Get(p.Key())
		return decodeObject(raw)
	case TypeNumberArray:
		elems, decoded := arrayElements(data.GetList(p.Key()))
		out := make([]float64, 0, len(elems))
		for _, e := range elems {
			n, err := elementNumber(e, decoded)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case TypeStringArray:
		elems, decoded := arrayElements(data.GetList(p.Key()))
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			s, err := elementString(e, decoded)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case TypeObjectArray:
		elems, decoded := arrayElements(data.GetList(p.Key()))
		out := make([]map[string]any, 0, len(elems))
		for _, e := range elems {
			m, err := elementObject(e, decoded)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown type %q", p.Type)
	}
}

func coerceBinary(p Param, data Data) (any, error) {
	fhs := data.Files(p.Key())
	if len(fhs) == 0 {
		return nil, fmt.Errorf("no file part under %q", p.Key())
	}
	switch p.Type {
	case TypeFile:
		return fhs[0], nil
	case TypeFileArray:
		return fhs, nil
	case TypeBlob:
		return readBlob(fhs[0])
	case TypeBlobArray:
		out := make([][]byte, 0, len(fhs))
		for _, fh := range fhs {
			b, err := readBlob(fh)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown binary type %q", p.Type)
	}
}

func readBlob(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// arrayElements resolves the two array transports: a single posted value
// holding a JSON array contributes its already-decoded elements; anything
// else is a repeated field whose raw values are decoded element-wise.
// decoded reports which case applied.
func arrayElements(raw []string) (elems []any, decoded bool) {
	if len(raw) == 1 {
		var arr []any
		if err := json.Unmarshal([]byte(raw[0]), &arr); err == nil {
			return arr, true
		}
	}
	out := make([]any, len(raw))
	for i, r := range raw {
		out[i] = r
	}
	return out, false
}

func elementNumber(e any, decoded bool) (float64, error) {
	if decoded {
		n, ok := e.(float64)
		if !ok {
			return 0, fmt.Errorf("element is not a number")
		}
		return n, nil
	}
	return decodeNumber(e.(string))
}

func elementString(e any, decoded bool) (string, error) {
	if decoded {
		s, ok := e.(string)
		if !ok {
			return "", fmt.Errorf("element is not a string")
		}
		return s, nil
	}
	return decodeString(e.(string)), nil
}

func elementObject(e any, decoded bool) (map[string]any, error) {
	if decoded {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element is not an object")
		}
		return m, nil
	}
	return decodeObject(e.(string))
}

func decodeNumber(raw string) (float64, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return 0, err
	}
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("value %q is not a number", raw)
	}
	return n, nil
}

// decodeString accepts a JSON-encoded string and, as a convenience for
// clients that skip stringify on plain text, falls back to the raw value
// when it is not a JSON string.
func decodeString(raw string) string {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return raw
}

func decodeObject(raw string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
