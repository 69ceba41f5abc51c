package middleware

import (
	"errors"
	"net/http"

	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const authenticateChallenge = `Basic realm="KRepo"`

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AbortWithError answers with the status and code of err's kind. Only the
// message of an *errs.Error reaches the client; causes and unknown errors are logged.
func AbortWithError(c *gin.Context, err error) {
	kind := errs.KindOf(err)

	message := "internal error"
	var e *errs.Error
	if errors.As(err, &e) && kind != errs.KindInternal {
		message = e.Message
	}

	switch kind {
	case errs.KindInternal, errs.KindStorage:
		logrus.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	default:
		logrus.Debugf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	if kind == errs.KindAuthenticationRequired || kind == errs.KindAuthenticationFailed {
		c.Header("WWW-Authenticate", authenticateChallenge)
	}

	if c.Request.Method == http.MethodHead {
		c.AbortWithStatus(kind.Status())
		return
	}

	c.AbortWithStatusJSON(kind.Status(), ErrorBody{Error: kind.Code(), Message: message})
}
