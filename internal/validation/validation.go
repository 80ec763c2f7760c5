package validation

import (
	"errors"
	"fmt"
)

// maxLength is the maximum length of an environment name. It's somewhat
// arbitrary, but 64 should be plenty long enough.
const maxLength = 64

// EnvironmentName validates that the provided name is not empty, does not
// exceed maxLength, only contains alphanumeric, '_' and '-' characters, and
// does not begin with '-'. Names become directory components and
// command-line arguments, so anything that could traverse paths or read as
// a flag is rejected.
func EnvironmentName(name string) error {
	if name == "" {
		return errors.New("empty environment name")
	}

	if len(name) > maxLength {
		return fmt.Errorf("max length is %d chars", maxLength)
	}

	if name[0] == '-' {
		return errors.New("may not begin with '-'")
	}

	for _, c := range name {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' ||
			c == '_') {
			return errors.New(
				"may only contain alphanumeric, '-' and '_' chars",
			)
		}
	}

	return nil
}
