package server

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/errs"
	"github.com/aquaticgg/krepo/pkg/middleware"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/server/requests"
	"github.com/aquaticgg/krepo/pkg/server/responses"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultContentType = "application/octet-stream"

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			logrus.Errorf("Health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, responses.Health{Status: "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, responses.Health{Status: "ok"})
}

func (s *Server) register(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if !p.Authenticated() {
		middleware.AbortWithError(c, errs.AuthenticationRequired("authentication required"))
		return
	}
	if !p.Capabilities.Has(models.RoleAdmin) {
		middleware.AbortWithError(c, errs.AccessDenied("administrator role required"))
		return
	}

	var req requests.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errs.BadRequest("username and password are required"))
		return
	}

	session, err := s.accounts.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (s *Server) login(c *gin.Context) {
	var req requests.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errs.BadRequest("username and password are required"))
		return
	}

	session, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (s *Server) logout(c *gin.Context) {
	creds := auth.Classify(c.GetHeader("Authorization"))
	if creds.Scheme != auth.SchemeBearer {
		middleware.AbortWithError(c, errs.AuthenticationRequired("bearer token required"))
		return
	}

	if err := s.accounts.Logout(c.Request.Context(), creds.Token); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// tokenOwner returns the username whose deploy tokens the caller may manage.
// Deploy tokens cannot manage deploy tokens.
func tokenOwner(c *gin.Context) (string, bool) {
	p := middleware.GetPrincipal(c)
	if !p.Authenticated() {
		middleware.AbortWithError(c, errs.AuthenticationRequired("authentication required"))
		return "", false
	}
	if p.Identity.Kind != auth.BearerPrincipal {
		middleware.AbortWithError(c, errs.AccessDenied("deploy tokens cannot manage tokens"))
		return "", false
	}
	return p.Username(), true
}

func (s *Server) createToken(c *gin.Context) {
	username, ok := tokenOwner(c)
	if !ok {
		return
	}

	var req requests.CreateToken
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errs.BadRequest("token name is required"))
		return
	}

	token, secret, err := s.tokens.Create(c.Request.Context(), username, req.Name, req.Permissions)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, responses.NewToken(token, secret))
}

func (s *Server) listTokens(c *gin.Context) {
	username, ok := tokenOwner(c)
	if !ok {
		return
	}

	tokens, err := s.tokens.List(c.Request.Context(), username)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if tokens == nil {
		tokens = []models.DeployToken{}
	}

	c.JSON(http.StatusOK, tokens)
}

func (s *Server) deleteToken(c *gin.Context) {
	username, ok := tokenOwner(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		middleware.AbortWithError(c, errs.BadRequest("invalid token id %q", c.Param("id")))
		return
	}

	if err := s.tokens.Delete(c.Request.Context(), username, uint(id)); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) resetToken(c *gin.Context) {
	username, ok := tokenOwner(c)
	if !ok {
		return
	}

	name := c.Param("name")
	secret, err := s.tokens.Reset(c.Request.Context(), username, name)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.Token{Name: name, Token: secret})
}

func (s *Server) listRepositories(c *gin.Context) {
	repos, err := s.artifacts.ListRepositories(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, repos)
}

func (s *Server) storageUsage(c *gin.Context) {
	total, err := s.artifacts.Usage(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.Usage{Bytes: total})
}

// artifactParams splits the route into repository and relative path. The
// catch-all parameter always carries one leading slash.
func artifactParams(c *gin.Context) (string, string) {
	return c.Param("repository"), strings.TrimPrefix(c.Param("path"), "/")
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return defaultContentType
}

func (s *Server) getArtifact(c *gin.Context) {
	repository, relPath := artifactParams(c)

	obj, err := s.artifacts.Get(c.Request.Context(), middleware.GetPrincipal(c), repository, relPath)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, obj.Size, contentType(relPath), obj, nil)
}

func (s *Server) headArtifact(c *gin.Context) {
	repository, relPath := artifactParams(c)

	if err := s.artifacts.Exists(c.Request.Context(), middleware.GetPrincipal(c), repository, relPath); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", contentType(relPath))
	c.Status(http.StatusOK)
}

// putArtifact streams the body to storage. A request without a usable
// Content-Length is answered 411; an explicit zero is a bad request.
func (s *Server) putArtifact(c *gin.Context) {
	repository, relPath := artifactParams(c)

	length := c.Request.ContentLength
	if length == 0 && c.GetHeader("Content-Length") == "" {
		length = -1
	}

	err := s.artifacts.Upload(c.Request.Context(), middleware.GetPrincipal(c), repository, relPath, c.Request.Body, length)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, responses.Artifact{Repository: repository, Path: relPath, Size: length})
}

func (s *Server) deleteArtifact(c *gin.Context) {
	repository, relPath := artifactParams(c)

	if err := s.artifacts.Delete(c.Request.Context(), middleware.GetPrincipal(c), repository, relPath); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
