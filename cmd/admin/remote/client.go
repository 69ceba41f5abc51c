package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/middleware"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/server/requests"
	"github.com/aquaticgg/krepo/pkg/server/responses"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Client talks to a running server over its HTTP API.
type Client struct {
	rest    *resty.Client
	baseURL string
}

func NewClient(baseURL string) *Client {
	rest := resty.New().
		SetTimeout(5 * time.Minute).
		SetPreRequestHook(declareLength)

	return &Client{
		rest:    rest,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// declareLength moves an explicit Content-Length header onto the request so a
// streamed body is not sent chunked.
func declareLength(_ *resty.Client, req *http.Request) error {
	v := req.Header.Get("Content-Length")
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid Content-Length %q: %w", v, err)
	}
	req.ContentLength = n
	req.Header.Del("Content-Length")
	return nil
}

// WithBearer authenticates every following request with a session token.
func (c *Client) WithBearer(token string) *Client {
	c.rest.SetAuthToken(token)
	return c
}

// WithBasic authenticates every following request with a password or deploy token.
func (c *Client) WithBasic(username, secret string) *Client {
	c.rest.SetBasicAuth(username, secret)
	return c
}

func (c *Client) url(elem ...string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + "/" + path.Join(elem...)
	}
	u.Path = path.Join(append([]string{u.Path}, elem...)...)
	return u.String()
}

// APIError is a non-success answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("server answered %d %s: %s", e.Status, e.Code, e.Message)
}

func check(resp *resty.Response, err error, expected int) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() == expected {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	var body middleware.ErrorBody
	if json.Unmarshal(resp.Body(), &body) == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
	}
	return apiErr
}

func (c *Client) Login(username, password string) (*auth.Session, error) {
	var session auth.Session
	u := c.url("api", "auth", "login")
	logrus.Tracef("Using %s", u)
	resp, err := c.rest.R().
		SetBody(requests.Credentials{Username: username, Password: password}).
		SetResult(&session).
		Post(u)
	if err := check(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Logout() error {
	resp, err := c.rest.R().Post(c.url("api", "auth", "logout"))
	return check(resp, err, http.StatusNoContent)
}

// Push uploads size bytes from r to repository/relPath.
func (c *Client) Push(repository, relPath string, r io.Reader, size int64) (*responses.Artifact, error) {
	var artifact responses.Artifact
	u := c.url(repository, relPath)
	logrus.Tracef("Using %s", u)
	resp, err := c.rest.R().
		SetBody(r).
		SetHeader("Content-Length", strconv.FormatInt(size, 10)).
		SetHeader("Content-Type", "application/octet-stream").
		SetResult(&artifact).
		Put(u)
	if err := check(resp, err, http.StatusCreated); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (c *Client) Fetch(repository, relPath string) ([]byte, error) {
	resp, err := c.rest.R().Get(c.url(repository, relPath))
	if err := check(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *Client) ListTokens() ([]models.DeployToken, error) {
	var list []models.DeployToken
	resp, err := c.rest.R().SetResult(&list).Get(c.url("api", "tokens"))
	if err := check(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateToken(name string, permissions []string) (*responses.Token, error) {
	var token responses.Token
	resp, err := c.rest.R().
		SetBody(requests.CreateToken{Name: name, Permissions: permissions}).
		SetResult(&token).
		Post(c.url("api", "tokens"))
	if err := check(resp, err, http.StatusCreated); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *Client) DeleteToken(id uint) error {
	resp, err := c.rest.R().Delete(c.url("api", "tokens", fmt.Sprint(id)))
	return check(resp, err, http.StatusNoContent)
}

func (c *Client) Repositories() ([]models.Repository, error) {
	var list []models.Repository
	resp, err := c.rest.R().SetResult(&list).Get(c.url("api", "repositories"))
	if err := check(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return list, nil
}
