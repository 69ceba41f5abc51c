package middleware

import (
	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/aquaticgg/krepo/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

// ResolveCredentials resolves the Authorization header of every request and
// stores the resulting Principal on the context. Credentials that do not verify
// end the request with 401 whatever route it was for.
func ResolveCredentials(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, creds, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			metrics.ObserveAuth(creds.Scheme.String(), "error")
			AbortWithError(c, err)
			return
		}

		metrics.ObserveAuth(creds.Scheme.String(), identity.Kind.String())

		if identity.Kind == auth.Rejected {
			logrus.Warnf("Rejected %s credentials from %s: %s", creds.Scheme, c.ClientIP(), identity.Reason)
			AbortWithError(c, errs.AuthenticationFailed("invalid credentials"))
			return
		}

		c.Set(principalKey, auth.NewPrincipal(identity))
		c.Next()
	}
}

// GetPrincipal returns the caller stored by ResolveCredentials, or an anonymous
// principal when there is none.
func GetPrincipal(c *gin.Context) auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.AnonymousPrincipal()
}
