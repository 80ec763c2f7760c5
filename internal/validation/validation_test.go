package validation_test

import (
	"strings"
	"testing"

	"github.com/juliansj/crouton/internal/validation"
	"github.com/stretchr/testify/assert"
)

func TestEnvironmentNameValidation(t *testing.T) {
	scenarios := map[string]struct {
		name  string
		valid bool
	}{
		"test alphabetic only": {
			name:  "sandboxSandbox",
			valid: true,
		},
		"test numeric only": {
			name:  "1234567890",
			valid: true,
		},
		"test alphanumeric": {
			name:  "bullseye64",
			valid: true,
		},
		"test underscores": {
			name:  "guest_env_dev",
			valid: true,
		},
		"test hyphens": {
			name:  "guest-env-dev",
			valid: true,
		},
		"test max length": {
			name:  strings.Repeat("x", 64),
			valid: true,
		},
		"test empty": {
			name:  "",
			valid: false,
		},
		"test over max length": {
			name:  strings.Repeat("x", 65),
			valid: false,
		},
		"test invalid specials": {
			name:  "a$b^c*",
			valid: false,
		},
		"test path traversal": {
			name:  "../evil",
			valid: false,
		},
		"test slash": {
			name:  "env/name",
			valid: false,
		},
		"test leading hyphen": {
			name:  "-rf",
			valid: false,
		},
	}

	for scenario, data := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			assert.Equal(
				t,
				data.valid,
				validation.EnvironmentName(data.name) == nil,
			)
		})
	}
}
