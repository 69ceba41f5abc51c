package server

import (
	"net/http"

	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/aquaticgg/krepo/pkg/metrics"
	"github.com/aquaticgg/krepo/pkg/middleware"
	"github.com/gin-gonic/gin"
)

func (s *Server) SetupEndpoints(r *gin.Engine) {
	s.engine = r
	r.HandleMethodNotAllowed = true

	r.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, errs.NotFound("page not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, middleware.ErrorBody{Error: "method_not_allowed", Message: "method not allowed"})
	})

	// credentials that do not verify end every request here with 401
	r.Use(middleware.ResolveCredentials(s.resolver))

	r.GET("/healthz", s.healthz)
	if s.metrics {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := r.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.POST("/auth/logout", s.logout)

	api.POST("/tokens", s.createToken)
	api.GET("/tokens", s.listTokens)
	api.DELETE("/tokens/:id", s.deleteToken)
	api.POST("/tokens/:name/reset", s.resetToken)

	api.GET("/repositories", s.listRepositories)
	api.GET("/storage/usage", s.storageUsage)

	r.GET("/:repository/*path", s.getArtifact)
	r.HEAD("/:repository/*path", s.headArtifact)
	r.PUT("/:repository/*path", s.putArtifact)
	r.DELETE("/:repository/*path", s.deleteArtifact)
}
