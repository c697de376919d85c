package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  error
	}{
		{"ada@example.com", nil},
		{"", ErrEmailRequired},
		{"not-an-email", ErrEmailFormat},
		{"Ada <ada@example.com>", ErrEmailFormat},
		{strings.Repeat("a", 250) + "@x.io", ErrEmailTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("  Ada  "))
	assert.NoError(t, ValidateName(strings.Repeat("é", MaxNameLen)))
	assert.ErrorIs(t, ValidateName("   "), ErrNameRequired)
	assert.ErrorIs(t, ValidateName(strings.Repeat("a", MaxNameLen+1)), ErrNameTooLong)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("correct-horse-battery"))
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("x", 73)), ErrPasswordTooLong)
	assert.ErrorIs(t, ValidatePassword("MyPassword2024!"), ErrPasswordCommon)
}
