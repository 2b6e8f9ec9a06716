package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type grantRequest struct {
	Books []string `json:"books" validate:"dive,bookgrant"`
}

func TestValidateValid(t *testing.T) {
	v := New()

	err := v.Validate(loginRequest{Email: "user@school.org", Password: "long enough"})
	assert.NoError(t, err)
}

func TestValidateFieldErrors(t *testing.T) {
	v := New()

	err := v.Validate(loginRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email address", details["email"])
	assert.Equal(t, "must be at least 8 characters", details["password"])
}

func TestValidateBookGrant(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(grantRequest{Books: []string{"1", "42", "all"}}))

	err := v.Validate(grantRequest{Books: []string{"abc"}})
	require.Error(t, err)

	err = v.Validate(grantRequest{Books: []string{"0"}})
	require.Error(t, err)

	err = v.Validate(grantRequest{Books: []string{"-3"}})
	require.Error(t, err)
}
