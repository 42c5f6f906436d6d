package parser

import (
	"strings"

	"github.com/spf13/cast"
)

// Condition compares the field at a dotted path with an expected value.
// Values are compared by their textual form, so 1, 1.0 and "1" are equal.
type Condition struct {
	Field string `mapstructure:"field"`
	Value any    `mapstructure:"value"`
}

// ChangeTypeRule selects Type when its conditions match. Logic is AND (default)
// or OR. Rules without conditions never match.
type ChangeTypeRule struct {
	Conditions []Condition `mapstructure:"conditions"`
	Logic      string      `mapstructure:"logic"`
	Type       string      `mapstructure:"type"` // numeric or textual change type
}

// DocumentOptions are shared by the JSON and BSON parsers.
type DocumentOptions struct {
	KeyFields       []string         `mapstructure:"key_fields"`        // dotted field paths (default ["id"])
	KeySeparator    string           `mapstructure:"key_separator"`     // joins key parts (default "_")
	ChangeTypeRules []ChangeTypeRule `mapstructure:"change_type_rules"` // evaluated in order, first match wins
}

// DefaultDocumentOptions returns the default options
func DefaultDocumentOptions() *DocumentOptions {
	return &DocumentOptions{
		KeyFields:    []string{"id"},
		KeySeparator: "_",
	}
}

// withDefaults fills unset fields
func (o *DocumentOptions) withDefaults() *DocumentOptions {
	out := DefaultDocumentOptions()
	if o == nil {
		return out
	}
	if len(o.KeyFields) > 0 {
		out.KeyFields = o.KeyFields
	}
	if o.KeySeparator != "" {
		out.KeySeparator = o.KeySeparator
	}
	out.ChangeTypeRules = o.ChangeTypeRules
	return out
}

// fieldGetter returns the textual form of the field at path
type fieldGetter func(path string) (string, bool)

type compiledCondition struct {
	field    string
	expected string
}

type compiledRule struct {
	conditions []compiledCondition
	or         bool
	changeType ChangeType
}

type ruleSet []compiledRule

func compileRules(rules []ChangeTypeRule) ruleSet {
	out := make(ruleSet, 0, len(rules))
	for _, rule := range rules {
		cr := compiledRule{
			or:         strings.EqualFold(rule.Logic, "or"),
			changeType: ParseChangeType(rule.Type),
		}
		if rule.Type == "" {
			// a rule without a type selects Unknown
			cr.changeType = ChangeUnknown
		}
		for _, c := range rule.Conditions {
			cr.conditions = append(cr.conditions, compiledCondition{
				field:    c.Field,
				expected: formatExpected(c.Value),
			})
		}
		out = append(out, cr)
	}
	return out
}

// changeType returns the type of the first matching rule, or Add
func (rs ruleSet) changeType(get fieldGetter) ChangeType {
	for _, rule := range rs {
		if rule.matches(get) {
			return rule.changeType
		}
	}
	return ChangeAdd
}

func (r compiledRule) matches(get fieldGetter) bool {
	if len(r.conditions) == 0 {
		return false
	}
	for _, c := range r.conditions {
		actual, ok := get(c.field)
		hit := ok && actual == c.expected
		if r.or && hit {
			return true
		}
		if !r.or && !hit {
			return false
		}
	}
	return !r.or
}

func formatExpected(v any) string {
	if v == nil {
		return "null"
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}
