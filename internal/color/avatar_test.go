package color

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForUserIsStable(t *testing.T) {
	assert.Equal(t, ForUser("user_abc123"), ForUser("user_abc123"))
}

func TestForUserFormat(t *testing.T) {
	hexColor := regexp.MustCompile(`^#[0-9A-F]{6}$`)

	for _, id := range []string{"a", "user_abc123", "user_zzz999", ""} {
		assert.Regexp(t, hexColor, ForUser(id), "id %q", id)
	}
}

func TestForUserVaries(t *testing.T) {
	colors := map[string]bool{}
	for _, id := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"} {
		colors[ForUser(id)] = true
	}
	assert.Greater(t, len(colors), 1)
}
