package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatusAndCode(t *testing.T) {
	cases := map[Kind]struct {
		status int
		code   string
	}{
		KindAuthenticationFailed:   {http.StatusUnauthorized, "auth_failed"},
		KindAuthenticationRequired: {http.StatusUnauthorized, "authentication_required"},
		KindAccessDenied:           {http.StatusForbidden, "access_denied"},
		KindNotFound:               {http.StatusNotFound, "not_found"},
		KindInvalidPath:            {http.StatusBadRequest, "invalid_path"},
		KindConflict:               {http.StatusConflict, "conflict"},
		KindStorage:                {http.StatusBadGateway, "storage_error"},
		KindInternal:               {http.StatusInternalServerError, "internal_error"},
	}
	for kind, want := range cases {
		assert.Equal(t, want.status, kind.Status(), kind.Code())
		assert.Equal(t, want.code, kind.Code())
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("repository %q not found", "releases"))

	require.True(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrConflict))
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOfUnknownIsInternal(t *testing.T) {
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindStorage, cause, "upload failed")

	require.ErrorIs(t, err, cause)
	require.Equal(t, "upload failed", err.Message)
}
