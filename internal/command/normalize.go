package command

import (
	"html"
	"regexp"
	"strings"
)

// Normalizer transforms a string parameter value before custom validation
// and handler use. Normalizers run in declared order, after type coercion.
type Normalizer func(string) string

func Lowercase() Normalizer  { return strings.ToLower }
func Uppercase() Normalizer  { return strings.ToUpper }
func Strip() Normalizer      { return strings.TrimSpace }
func HTMLEscape() Normalizer { return html.EscapeString }
func HTMLUnescape() Normalizer {
	return html.UnescapeString
}

var nonDigits = regexp.MustCompile(`[^\d]+`)

// OnlyDigits drops every non-digit character.
func OnlyDigits() Normalizer {
	return func(s string) string { return nonDigits.ReplaceAllString(s, "") }
}

// Rule is a per-parameter check applied after normalization. A failing
// rule rejects the request with its own message under the invalid-params
// error class.
type Rule struct {
	Check   func(any) bool
	Message string
}

// NotBlank fails for empty or whitespace-only strings.
func NotBlank(message string) Rule {
	return Rule{
		Check: func(v any) bool {
			s, ok := v.(string)
			return ok && strings.TrimSpace(s) != ""
		},
		Message: message,
	}
}

var emailPattern = regexp.MustCompile(`[^@]+@[^@]+\.[^@]+`)

// Email fails for values that do not look like an email address.
func Email(message string) Rule {
	return Match(emailPattern, message)
}

// Match fails for string values not matching the pattern.
func Match(pattern *regexp.Regexp, message string) Rule {
	return Rule{
		Check: func(v any) bool {
			s, ok := v.(string)
			return ok && pattern.MatchString(s)
		},
		Message: message,
	}
}

// Normalize applies the contract's normalizers to the typed mapping in
// place. Only string values and string-array elements are transformed.
func (c *Contract) Normalize(typed map[string]any) {
	for name, fns := range c.Normalizers {
		v, ok := typed[name]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			for _, fn := range fns {
				val = fn(val)
			}
			typed[name] = val
		case []string:
			for i, s := range val {
				for _, fn := range fns {
					s = fn(s)
				}
				val[i] = s
			}
		}
	}
}

// CheckRules runs the contract's field rules against the typed mapping
// and returns the first failure. Rules on absent parameters are skipped.
func (c *Contract) CheckRules(typed map[string]any) error {
	for _, p := range c.Params {
		rules, ok := c.Rules[p.Name]
		if !ok {
			continue
		}
		v, present := typed[p.Name]
		if !present {
			continue
		}
		for _, rule := range rules {
			if !rule.Check(v) {
				return &ValidationError{
					Kind:    ErrInvalidParams,
					Params:  []string{p.Name},
					Message: rule.Message,
				}
			}
		}
	}
	return nil
}
