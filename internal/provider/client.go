package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// OAuthClient holds the app credentials and the account's current token.
type OAuthClient struct {
	Config oauth2.Config
	Token  *oauth2.Token
}

func (o OAuthClient) AccessToken() string {
	if o.Token == nil {
		return ""
	}
	return o.Token.AccessToken
}

func (o OAuthClient) RefreshToken() string {
	if o.Token == nil {
		return ""
	}
	return o.Token.RefreshToken
}

// Refresh exchanges the refresh token through the standard oauth2 token endpoint.
func (o OAuthClient) Refresh(ctx context.Context, hc *http.Client) (*oauth2.Token, error) {
	if o.RefreshToken() == "" {
		return nil, fmt.Errorf("no refresh token")
	}
	if hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	}
	return o.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: o.RefreshToken()}).Token()
}

type AuthStyle int

const (
	AuthBearer AuthStyle = iota
	// AuthQuery passes the token as the access_token query parameter, as the Meta graph APIs expect.
	AuthQuery
)

// ResourceClient performs authenticated JSON calls against one platform API.
type ResourceClient struct {
	Platform  string
	BaseURL   string
	Token     string
	AuthStyle AuthStyle
	HTTP      *http.Client
}

func (c *ResourceClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *ResourceClient) Post(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, query, body, out)
}

func (c *ResourceClient) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *ResourceClient) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")

	if query == nil {
		query = url.Values{}
	}
	if c.AuthStyle == AuthQuery && c.Token != "" {
		query.Set("access_token", c.Token)
	}
	if encoded := query.Encode(); encoded != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + encoded
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshalling payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}
	if c.AuthStyle == AuthBearer && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Debug("provider request failed", "platform", c.Platform, "path", path, "status", resp.StatusCode)
		return &Error{Platform: c.Platform, StatusCode: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("error parsing response: %w", err)
		}
	}
	return nil
}

func (c *ResourceClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// apiErrorMessage pulls a readable message out of the error shapes used by the supported platforms.
func apiErrorMessage(body []byte) string {
	var shape struct {
		Error        json.RawMessage `json:"error"`
		Message      string          `json:"message"`
		ErrorMessage string          `json:"error_message"`
		Description  string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		if len(shape.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(shape.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if json.Unmarshal(shape.Error, &plain) == nil && plain != "" {
				if shape.Description != "" {
					return shape.Description
				}
				return plain
			}
		}
		for _, m := range []string{shape.Message, shape.ErrorMessage, shape.Description} {
			if m != "" {
				return m
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return "unexpected response"
	}
	return msg
}
