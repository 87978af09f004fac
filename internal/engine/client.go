// Package engine is a thin REST client for the container engine's HTTP API,
// reached over a Unix socket. It exists instead of pulling in
// github.com/docker/docker/client because callers need exact control over
// each endpoint's status-code-to-error mapping, which the high-level SDK
// client folds into its own, coarser error types.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/sockets"
)

// apiVersion is the Docker Engine API version this client speaks.
const apiVersion = "v1.30"

// Client talks to a single container engine over a Unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
}

// NewClient dials socketPath (e.g. "/var/run/docker.sock") lazily: no I/O
// happens until the first request.
func NewClient(socketPath string) (*Client, error) {
	tr := &http.Transport{}
	if err := sockets.ConfigureTransport(tr, "unix", socketPath); err != nil {
		return nil, fmt.Errorf("configure engine transport: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Transport: tr},
		socketPath: socketPath,
	}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := "http://unix" + "/" + apiVersion + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(ErrTransport, err)
	}
	return resp, nil
}

// BuildParams configures an image build request.
type BuildParams struct {
	Dockerfile string
	Tag        string
	// Quiet sets the build endpoint's "q" query param so the engine
	// suppresses the verbose build-progress log and returns only the
	// final image id.
	Quiet bool
}

// BuildImage starts a build from a tar build context, returning a
// BuildDecoder over the response's streamed build-progress body. The decoder
// does not expose the body for closing; callers read it to io.EOF, at which
// point Go's http.Client releases the connection for reuse.
//
// Status mapping: 200 streams; 400 is BadRequest; anything else is Internal.
func (c *Client) BuildImage(ctx context.Context, tarBody io.Reader, params BuildParams) (*BuildDecoder, error) {
	q := url.Values{}
	if params.Dockerfile != "" {
		q.Set("dockerfile", params.Dockerfile)
	}
	if params.Tag != "" {
		q.Set("t", params.Tag)
	}
	if params.Quiet {
		q.Set("q", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/build", q), tarBody)
	if err != nil {
		return nil, newError(ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-tar")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return NewBuildDecoder(resp.Body), nil
	case http.StatusBadRequest:
		defer resp.Body.Close()
		return nil, newError(ErrBadRequest, readEngineMessage(resp.Body))
	default:
		defer resp.Body.Close()
		return nil, newError(ErrInternal, readEngineMessage(resp.Body))
	}
}

// createContainerRequest is the wire body for POST /containers/create: the
// container.Config fields flatten to the top level (Docker's API shape),
// HostConfig nests under its own key.
type createContainerRequest struct {
	container.Config
	HostConfig container.HostConfig `json:"HostConfig"`
}

type createContainerResponse struct {
	ID       string   `json:"Id"`
	Warnings []string `json:"Warnings"`
}

// CreateContainer creates a container from the given image, returning its
// ID.
//
// Status mapping: 201 parses the Id; 406 is CantAttach; 400/404 are
// BadRequest; anything else is Internal.
func (c *Client) CreateContainer(ctx context.Context, cfg container.Config, hostCfg container.HostConfig) (string, error) {
	body, err := json.Marshal(createContainerRequest{Config: cfg, HostConfig: hostCfg})
	if err != nil {
		return "", newError(ErrUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/containers/create", nil), bytes.NewReader(body))
	if err != nil {
		return "", newError(ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var parsed createContainerResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return "", newError(ErrUnknown, err)
		}
		return parsed.ID, nil
	case http.StatusNotAcceptable:
		return "", newError(ErrCantAttach, readEngineMessage(resp.Body))
	case http.StatusBadRequest, http.StatusNotFound:
		return "", newError(ErrBadRequest, readEngineMessage(resp.Body))
	default:
		return "", newError(ErrInternal, readEngineMessage(resp.Body))
	}
}

// StartContainer starts a previously created container.
//
// Status mapping: 204/304 succeed; 404 is NotFound; anything else is
// Internal.
func (c *Client) StartContainer(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/containers/"+id+"/start", nil), nil)
	if err != nil {
		return newError(ErrTransport, err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotModified:
		return nil
	case http.StatusNotFound:
		return newError(ErrNotFound, readEngineMessage(resp.Body))
	default:
		return newError(ErrInternal, readEngineMessage(resp.Body))
	}
}

// AttachLogs follows a running container's combined stdout/stderr stream,
// returning a LogDecoder over the response body.
//
// Status mapping: 200/101 stream; 404 is NotFound; anything else is
// Internal.
func (c *Client) AttachLogs(ctx context.Context, id string) (*LogDecoder, error) {
	q := url.Values{
		"follow": {"true"},
		"stdout": {"true"},
		"stderr": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/containers/"+id+"/logs", q), nil)
	if err != nil {
		return nil, newError(ErrTransport, err)
	}
	req.Header.Set("Connection", "Upgrade")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusSwitchingProtocols:
		return NewLogDecoder(resp.Body), nil
	case http.StatusNotFound:
		defer resp.Body.Close()
		return nil, newError(ErrNotFound, readEngineMessage(resp.Body))
	default:
		defer resp.Body.Close()
		return nil, newError(ErrInternal, readEngineMessage(resp.Body))
	}
}

func readEngineMessage(r io.Reader) error {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return fmt.Errorf("engine returned no error detail")
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return fmt.Errorf("%s", parsed.Message)
	}
	return fmt.Errorf("%s", string(body))
}
