package controlplane

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/controlplane/handlers"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/version"
)

const clientTimeout = 5 * time.Second

var (
	ErrAPI = errors.New("control plane error")

	userAgent = fmt.Sprintf("Bookmarks/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)
)

// Client talks to a running daemon's control plane
type Client struct {
	client *req.Client
}

func NewClient(baseURL, authToken string) *Client {
	c := req.C().
		SetBaseURL(baseURL).
		SetTimeout(clientTimeout).
		SetUserAgent(userAgent).
		SetCommonErrorResult(&handlers.ControlPlaneError{}).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	if authToken != "" {
		c.SetCommonBearerAuthToken(authToken)
	}
	return &Client{client: c}
}

func (c *Client) Status(ctx context.Context) (resp *handlers.StatusResponse, err error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get("/v1/status")

	if err := handleAPIError(res, err, "status"); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Folders(ctx context.Context) (resp *handlers.FolderListResponse, err error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get("/v1/folders")

	if err := handleAPIError(res, err, "list folders"); err != nil {
		return nil, err
	}
	return resp, nil
}

func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		if e, ok := resp.ErrorResult().(*handlers.ControlPlaneError); ok && e.ErrorCode != "" {
			return fmt.Errorf("%w: %s: %s (%s)", ErrAPI, operation, e.Error, e.ErrorCode)
		}
		return fmt.Errorf("%w: %s: http %d", ErrAPI, operation, resp.StatusCode)
	}
	return nil
}
