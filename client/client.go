package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/foomo/funnelstore/pkg/snapshot"
	"github.com/foomo/funnelstore/pkg/utils"
	"github.com/foomo/funnelstore/requests"
	"github.com/foomo/funnelstore/responses"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	// Client talks to the data endpoint of a funnelstore server
	Client struct {
		endpoint   string
		token      string
		httpClient *http.Client
	}
	Option func(*Client)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// New expects the server url including the base path, e.g. http://localhost:8080/api
func New(server string, opts ...Option) (*Client, error) {
	if !utils.IsValidURL(server) {
		return nil, errors.Errorf("invalid server url: %q", server)
	}
	inst := &Client{
		endpoint:   strings.TrimSuffix(server, "/") + "/data",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithToken(v string) Option {
	return func(o *Client) {
		o.token = v
	}
}

func WithHTTPClient(v *http.Client) Option {
	return func(o *Client) {
		o.httpClient = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Embed reads the current document through the public view
func (c *Client) Embed(ctx context.Context) (snapshot.Document, error) {
	data, err := c.get(ctx, url.Values{"action": {string(requests.ActionEmbed)}})
	return snapshot.Document(data), err
}

// Current reads the current document
func (c *Client) Current(ctx context.Context) (snapshot.Document, error) {
	data, err := c.get(ctx, url.Values{})
	return snapshot.Document(data), err
}

// Backups lists the backups, newest first
func (c *Client) Backups(ctx context.Context) ([]snapshot.Backup, error) {
	data, err := c.get(ctx, url.Values{"action": {string(requests.ActionBackups)}})
	if err != nil {
		return nil, err
	}
	resp := &responses.Backups{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode backups")
	}
	return resp.Backups, nil
}

// Restore reads a single backup
func (c *Client) Restore(ctx context.Context, key string) (snapshot.Document, error) {
	data, err := c.get(ctx, url.Values{
		"action": {string(requests.ActionRestore)},
		"key":    {key},
	})
	return snapshot.Document(data), err
}

// Save replaces the current document, the server keeps a backup of the old one
func (c *Client) Save(ctx context.Context, doc snapshot.Document) (*responses.Commit, error) {
	return c.post(ctx, &requests.Write{Action: requests.ActionSave, Data: doc})
}

// Import replaces the current document without a backup
func (c *Client) Import(ctx context.Context, doc snapshot.Document) (*responses.Commit, error) {
	return c.post(ctx, &requests.Write{Action: requests.ActionImport, Data: doc})
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, query url.Values) ([]byte, error) {
	u := c.endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, write *requests.Write) (*responses.Commit, error) {
	body, err := json.Marshal(write)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	commit := &responses.Commit{}
	if err := json.Unmarshal(data, commit); err != nil {
		return nil, errors.Wrap(err, "failed to decode commit")
	}
	return commit, nil
}

// do returns the body of a 200 response, everything else becomes a *responses.Error
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		respErr := &responses.Error{}
		if err := json.Unmarshal(data, respErr); err != nil || respErr.Message == "" {
			respErr.Message = http.StatusText(resp.StatusCode)
		}
		respErr.Status = resp.StatusCode
		return nil, respErr
	}
	return data, nil
}
