package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	EmailPattern = `^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`

	// Dutch and international numbers, spaces and dashes allowed
	PhonePattern = `^\+?[0-9][0-9 ()\-]{5,19}$`

	// 24h clock, used by school hour settings
	TimeOfDayPattern = `^([01][0-9]|2[0-3]):[0-5][0-9]$`

	PasswordMinLength = 8
	NameMaxLength     = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email     *regexp.Regexp
	Phone     *regexp.Regexp
	TimeOfDay *regexp.Regexp
}{
	Email:     regexp.MustCompile(EmailPattern),
	Phone:     regexp.MustCompile(PhonePattern),
	TimeOfDay: regexp.MustCompile(TimeOfDayPattern),
}

// RegisterGinValidators adds the custom tags to gin's validator engine and
// reports field errors by their JSON name.
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v)
}

// Register adds the custom tags to v.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return CompiledPatterns.Phone.MatchString(fl.Field().String())
	})
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return CompiledPatterns.Email.MatchString(strings.TrimSpace(s))
}

// StringValidation checks one string value
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
	OneOf    []string
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithOneOf restricts the value to a fixed set
func (v *StringValidation) WithOneOf(values ...string) *StringValidation {
	v.OneOf = values
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}
	n := len([]rune(v.Value))
	if v.MinLen > 0 && n < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && n > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	if len(v.OneOf) > 0 {
		for _, allowed := range v.OneOf {
			if v.Value == allowed {
				return true
			}
		}
		return false
	}
	return true
}

// NumericValidation checks that a string holds an integer in range
type NumericValidation struct {
	Raw      string
	Min      int
	Max      int
	Required bool
}

// NewNumericValidation creates a new numeric validation
func NewNumericValidation(raw string) *NumericValidation {
	return &NumericValidation{
		Raw:      raw,
		Required: true,
	}
}

// WithRange sets the inclusive bounds
func (v *NumericValidation) WithRange(min, max int) *NumericValidation {
	v.Min = min
	v.Max = max
	return v
}

// WithRequired sets if field is required
func (v *NumericValidation) WithRequired(required bool) *NumericValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *NumericValidation) Validate() bool {
	if v.Raw == "" {
		return !v.Required
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.Raw))
	if err != nil {
		return false
	}
	if v.Min != 0 && n < v.Min {
		return false
	}
	if v.Max != 0 && n > v.Max {
		return false
	}
	return true
}

// IsBool reports whether s is "true" or "false".
func IsBool(s string) bool {
	return s == "true" || s == "false"
}
