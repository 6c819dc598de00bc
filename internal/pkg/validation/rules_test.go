package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringValidation(t *testing.T) {
	tests := []struct {
		name string
		v    *StringValidation
		want bool
	}{
		{"required empty", NewStringValidation(""), false},
		{"optional empty", NewStringValidation("").WithRequired(false), true},
		{"too short", NewStringValidation("ab").WithMinLength(3), false},
		{"rune length", NewStringValidation("één").WithMaxLength(3), true},
		{"pattern", NewStringValidation("08:30").WithPattern(CompiledPatterns.TimeOfDay), true},
		{"pattern mismatch", NewStringValidation("25:00").WithPattern(CompiledPatterns.TimeOfDay), false},
		{"one of", NewStringValidation("nl").WithOneOf("nl", "en", "ar"), true},
		{"not one of", NewStringValidation("de").WithOneOf("nl", "en", "ar"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Validate())
		})
	}
}

func TestNumericValidation(t *testing.T) {
	assert.True(t, NewNumericValidation("12").WithRange(8, 64).Validate())
	assert.False(t, NewNumericValidation("6").WithRange(8, 64).Validate())
	assert.False(t, NewNumericValidation("twelve").Validate())
	assert.True(t, NewNumericValidation("").WithRequired(false).Validate())
}

func TestRegister_PhoneTagAndJSONNames(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	type contact struct {
		Phone string `json:"phone" validate:"omitempty,phone"`
	}
	assert.NoError(t, v.Struct(contact{Phone: "+31 6 1234 5678"}))
	assert.NoError(t, v.Struct(contact{}))

	err := v.Struct(contact{Phone: "call me"})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "phone", verrs[0].Field())
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("Info@Madrasa.nl"))
	assert.False(t, IsEmail("info@madrasa"))
}
