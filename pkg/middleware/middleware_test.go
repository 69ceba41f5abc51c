package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, method string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestLogger())
	r.Handle(method, "/x", handler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, "/x", nil))
	return rec
}

func TestAbortWithErrorKinds(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{errs.NotFound("lib.jar not found"), http.StatusNotFound, "not_found", "lib.jar not found"},
		{errs.AccessDenied("nope"), http.StatusForbidden, "access_denied", "nope"},
		{fmt.Errorf("load: %w", errs.Conflict("taken")), http.StatusConflict, "conflict", "taken"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error", "internal error"},
		{errs.Wrap(errs.KindStorage, errors.New("bucket gone"), "storage backend failed"), http.StatusBadGateway, "storage_error", "storage backend failed"},
	}

	for _, tc := range cases {
		rec := serve(t, http.MethodGet, func(c *gin.Context) { AbortWithError(c, tc.err) })
		assert.Equal(t, tc.status, rec.Code)

		var body ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Error)
		assert.Equal(t, tc.message, body.Message)
		assert.NotContains(t, rec.Body.String(), "bucket gone")
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	}
}

func TestAbortWithErrorChallenge(t *testing.T) {
	rec := serve(t, http.MethodGet, func(c *gin.Context) {
		AbortWithError(c, errs.AuthenticationRequired("authentication required"))
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, authenticateChallenge, rec.Header().Get("WWW-Authenticate"))
}

func TestAbortWithErrorOnHead(t *testing.T) {
	rec := serve(t, http.MethodHead, func(c *gin.Context) { AbortWithError(c, errs.NotFound("missing")) })
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGetPrincipalDefaultsToAnonymous(t *testing.T) {
	rec := serve(t, http.MethodGet, func(c *gin.Context) {
		p := GetPrincipal(c)
		assert.False(t, p.Authenticated())
		assert.True(t, p.Capabilities.Empty())
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
