package registry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
)

// FieldType selects how a raw value is parsed for a field.
type FieldType string

const (
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeString FieldType = "string"
	TypeEnum   FieldType = "enum"
)

// Field is one editable configuration key.
type Field struct {
	Key      string    `toml:"key"`
	Label    string    `toml:"label"`
	Type     FieldType `toml:"type"`
	Default  any       `toml:"default"`
	Options  []string  `toml:"options"`
	Validate string    `toml:"validate"`
}

// Schema describes the editable fields of one component, or of a whole
// category when ComponentID is empty.
type Schema struct {
	ComponentID string  `toml:"component_id"`
	Category    string  `toml:"category"`
	Summary     string  `toml:"summary"`
	Fields      []Field `toml:"fields"`
}

// ErrInvalidValue is the type of every Parse failure.
const ErrInvalidValue = errors.ConstError("invalid value")

var validate = validator.New()

// Parse converts raw user input into the field's value type and checks it
// against the field's options and validation tag.
func (f Field) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)

	var value any
	switch f.Type {
	case TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalid(f, raw, "expected a whole number")
		}
		value = int(n)
	case TypeFloat:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, invalid(f, raw, "expected a number")
		}
		value = n
	case TypeEnum:
		if !contains(f.Options, raw) {
			return nil, invalid(f, raw, "expected one of "+strings.Join(f.Options, ", "))
		}
		value = raw
	default:
		value = raw
	}

	if f.Validate != "" {
		if err := validate.Var(value, f.Validate); err != nil {
			return nil, invalid(f, raw, describe(err))
		}
	}
	return value, nil
}

// DisplayLabel returns the label, or the key when no label is set.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// Infer builds generic fields from a map of default values, sorted by key.
func Infer(defaults map[string]any) []Field {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		f := Field{Key: k, Default: defaults[k], Type: TypeString}
		switch v := defaults[k].(type) {
		case int, int64:
			f.Type = TypeInt
		case float64:
			if v == math.Trunc(v) {
				f.Type = TypeInt
			} else {
				f.Type = TypeFloat
			}
		}
		fields = append(fields, f)
	}
	return fields
}

func invalid(f Field, raw, reason string) error {
	return errors.WithType(fmt.Errorf("%s: %q: %s", f.DisplayLabel(), raw, reason), ErrInvalidValue)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return "failed " + fe.Tag()
	}
	return err.Error()
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
