// Package api is the CLI's typed client for the showcase HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
	"github.com/zfogg/showcase/internal/models"
)

const userAgent = "showcase-cli/0.1"

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NeedsTwoFactorCode reports whether a login failed only for want of an
// authenticator code.
func NeedsTwoFactorCode(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Field == "code"
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	http *resty.Client
	log  *log.Logger
}

func New(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	hc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP request", "method", req.Method, "url", req.URL)
		return nil
	})
	hc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP response", "status", resp.StatusCode(), "took", resp.Time())
		return nil
	})
	return &Client{http: hc, log: logger}
}

func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// do sends the request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, query map[string]string, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.SetHeader("Content-Type", "application/json").SetBody(data)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return parseError(resp)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}

func parseError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "HTTP_" + strconv.Itoa(resp.StatusCode())
		apiErr.Message = resp.Status()
	}
	return apiErr
}

// AuthResponse mirrors the server's sign-in payload.
type AuthResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Login signs in. code is the authenticator code and may be empty for accounts
// without two-factor sign-in.
func (c *Client) Login(ctx context.Context, email, password, code string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if code != "" {
		body["code"] = code
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, nil, &out); err != nil {
		return nil, err
	}
	c.log.Debug("Login successful", "username", out.User.Username)
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Feed is one response from the discover or following feed.
type Feed struct {
	Mode    string            `json:"mode"`
	Order   string            `json:"order"`
	Items   []*models.Project `json:"items"`
	Empty   bool              `json:"empty"`
	Message string            `json:"message"`
}

func (c *Client) Feed(ctx context.Context, following, oldest bool) (*Feed, error) {
	path := "/api/v1/feed/discover"
	if following {
		path = "/api/v1/feed/following"
	}
	order := "newest"
	if oldest {
		order = "oldest"
	}
	var out Feed
	if err := c.do(ctx, http.MethodGet, path, nil, map[string]string{"order": order}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

func (c *Client) Notifications(ctx context.Context, limit, offset int) (*Inbox, error) {
	var out Inbox
	q := map[string]string{"limit": strconv.Itoa(limit), "offset": strconv.Itoa(offset)}
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var out struct {
		Marked int64 `json:"marked"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/notifications/read", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Marked, nil
}

// ReplyPage is one cursor page of a discussion's replies.
type ReplyPage struct {
	Replies    []models.Reply `json:"replies"`
	HasMore    bool           `json:"has_more"`
	NextCursor string         `json:"next_cursor"`
}

// Replies fetches the page after the reply with id after; empty means the first page.
func (c *Client) Replies(ctx context.Context, discussionID, after string) (*ReplyPage, error) {
	var q map[string]string
	if after != "" {
		q = map[string]string{"after": after}
	}
	var out ReplyPage
	if err := c.do(ctx, http.MethodGet, "/api/v1/discussions/"+discussionID+"/replies", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PostReply(ctx context.Context, discussionID, body string) (*models.Reply, error) {
	var out struct {
		Reply *models.Reply `json:"reply"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/discussions/"+discussionID+"/replies",
		map[string]string{"body": body}, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Reply, nil
}

type SearchResults struct {
	Query    string            `json:"query"`
	Type     string            `json:"type"`
	Projects []*models.Project `json:"projects"`
	Users    []*models.User    `json:"users"`
	Backend  string            `json:"backend"`
}

func (c *Client) Search(ctx context.Context, query, typ string, limit int) (*SearchResults, error) {
	var out SearchResults
	q := map[string]string{"q": query, "type": typ, "limit": strconv.Itoa(limit)}
	if err := c.do(ctx, http.MethodGet, "/api/v1/search", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
