// Package bonsai is a client for the Bonsai-style proving service REST API:
// presigned artifact uploads, session creation, fixed-interval status
// polling, and receipt download.
//
// A client drives one job at a time through the session lifecycle. No step
// is ever retried automatically; every failure surfaces as a *Error whose
// Kind names the failed stage and whose Body preserves the server's reply
// verbatim.
package bonsai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultPollInterval is the fixed sleep between status polls.
const DefaultPollInterval = 15 * time.Second

const defaultHTTPTimeout = 30 * time.Second

// Endpoint is the remote service address and API key. The two travel packed
// in one external configuration string, "<api_url>|<api_key>".
type Endpoint struct {
	URL string
	Key string
}

// ParseEndpoint splits a packed "<api_url>|<api_key>" string.
func ParseEndpoint(s string) (Endpoint, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Endpoint{}, &Error{
			Kind:    KindEndpoint,
			Op:      "parse endpoint",
			Message: "bonsai: endpoint must be in format '<api_url>|<api_key>'",
		}
	}
	return Endpoint{URL: strings.TrimRight(parts[0], "/"), Key: parts[1]}, nil
}

// String renders the endpoint with the key redacted.
func (e Endpoint) String() string {
	return e.URL + "|********"
}

// Client talks to one proving service. Safe for concurrent use.
type Client struct {
	endpoint Endpoint
	httpc    *http.Client
	poll     time.Duration
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the HTTP client, for custom timeouts or a fake
// transport in tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// WithPollInterval changes the fixed sleep between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.poll = d
		}
	}
}

// New builds a client for the given endpoint.
func New(ep Endpoint, opts ...Option) (*Client, error) {
	if ep.URL == "" || ep.Key == "" {
		return nil, &Error{
			Kind:    KindEndpoint,
			Op:      "new client",
			Message: "bonsai: endpoint URL and API key are required",
		}
	}
	c := &Client{
		endpoint: Endpoint{URL: strings.TrimRight(ep.URL, "/"), Key: ep.Key},
		httpc:    &http.Client{Timeout: defaultHTTPTimeout},
		poll:     DefaultPollInterval,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromString builds a client from a packed "<api_url>|<api_key>" string.
func NewFromString(endpoint string, opts ...Option) (*Client, error) {
	ep, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	return New(ep, opts...)
}

// PollInterval reports the fixed interval Wait sleeps between polls.
func (c *Client) PollInterval() time.Duration {
	return c.poll
}

// UploadImage uploads a program image and returns its artifact UUID.
func (c *Client) UploadImage(ctx context.Context, buf []byte) (string, error) {
	return c.upload(ctx, "images", "image upload", bytes.NewReader(buf))
}

// UploadImageFile uploads a program image from disk.
func (c *Client) UploadImageFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", opError(KindUpload, "image upload", err)
	}
	defer f.Close()
	return c.upload(ctx, "images", "image upload", f)
}

// UploadInput uploads a packaged input buffer and returns its artifact UUID.
func (c *Client) UploadInput(ctx context.Context, buf []byte) (string, error) {
	return c.upload(ctx, "inputs", "input upload", bytes.NewReader(buf))
}

// UploadInputFile uploads a packaged input from disk.
func (c *Client) UploadInputFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", opError(KindUpload, "input upload", err)
	}
	defer f.Close()
	return c.upload(ctx, "inputs", "input upload", f)
}

// upload fetches a presigned location for route and PUTs the body there.
func (c *Client) upload(ctx context.Context, route, op string, body io.Reader) (string, error) {
	loc, err := c.uploadLocation(ctx, route)
	if err != nil {
		return "", err
	}
	if err := c.putData(ctx, op, loc.URL, body); err != nil {
		return "", err
	}
	return loc.UUID, nil
}

func (c *Client) uploadLocation(ctx context.Context, route string) (*UploadRes, error) {
	op := route + " upload location"
	res, err := c.do(ctx, http.MethodGet, c.endpoint.URL+"/"+route+"/upload", "", nil)
	if err != nil {
		return nil, opError(KindUploadLocation, op, err)
	}
	defer res.Body.Close()
	if !success(res) {
		return nil, serverError(KindUploadLocation, op, res)
	}
	var loc UploadRes
	if err := json.NewDecoder(res.Body).Decode(&loc); err != nil {
		return nil, opError(KindUploadLocation, op, err)
	}
	if loc.URL == "" || loc.UUID == "" {
		return nil, &Error{
			Kind:    KindUploadLocation,
			Op:      op,
			Message: fmt.Sprintf("bonsai: %s: reply missing url or uuid", op),
		}
	}
	return &loc, nil
}

func (c *Client) putData(ctx context.Context, op, url string, body io.Reader) error {
	res, err := c.do(ctx, http.MethodPut, url, "", body)
	if err != nil {
		return opError(KindUpload, op, err)
	}
	defer res.Body.Close()
	if !success(res) {
		return serverError(KindUpload, op, res)
	}
	return nil
}

// CreateSession starts a proof job over previously uploaded artifacts.
func (c *Client) CreateSession(ctx context.Context, imgUUID, inputUUID string) (*Session, error) {
	op := "create session"
	payload, err := json.Marshal(ProofReq{Img: imgUUID, Input: inputUUID})
	if err != nil {
		return nil, opError(KindSessionCreate, op, err)
	}
	res, err := c.do(ctx, http.MethodPost, c.endpoint.URL+"/sessions/create", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, opError(KindSessionCreate, op, err)
	}
	defer res.Body.Close()
	if !success(res) {
		return nil, serverError(KindSessionCreate, op, res)
	}
	var created CreateSessRes
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		return nil, opError(KindSessionCreate, op, err)
	}
	if created.UUID == "" {
		return nil, &Error{
			Kind:    KindSessionCreate,
			Op:      op,
			Message: "bonsai: create session: reply missing session uuid",
		}
	}
	return &Session{UUID: created.UUID, c: c}, nil
}

// Download fetches a receipt URL into memory.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	op := "download"
	res, err := c.do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, opError(KindDownload, op, err)
	}
	defer res.Body.Close()
	if !success(res) {
		return nil, serverError(KindDownload, op, res)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, opError(KindDownload, op, err)
	}
	return data, nil
}

// ProveRemote drives one full job: concurrent image and input uploads,
// session creation, polling until terminal, receipt download. It returns
// the raw receipt bytes; verification is the caller's.
func (c *Client) ProveRemote(ctx context.Context, image, input []byte) ([]byte, error) {
	var (
		wg            sync.WaitGroup
		imgID, inID   string
		imgErr, inErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		imgID, imgErr = c.UploadImage(ctx, image)
	}()
	go func() {
		defer wg.Done()
		inID, inErr = c.UploadInput(ctx, input)
	}()
	wg.Wait()
	if imgErr != nil {
		return nil, imgErr
	}
	if inErr != nil {
		return nil, inErr
	}

	session, err := c.CreateSession(ctx, imgID, inID)
	if err != nil {
		return nil, err
	}
	st, err := session.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return c.Download(ctx, st.ReceiptURL)
}

// Session is one proof job on the remote service.
type Session struct {
	UUID string
	c    *Client
}

// Status fetches the session's current status.
func (s *Session) Status(ctx context.Context) (*SessionStatusRes, error) {
	op := "session status"
	res, err := s.c.do(ctx, http.MethodGet, s.c.endpoint.URL+"/sessions/status/"+s.UUID, "", nil)
	if err != nil {
		return nil, opError(KindStatus, op, err)
	}
	defer res.Body.Close()
	if !success(res) {
		return nil, serverError(KindStatus, op, res)
	}
	var st SessionStatusRes
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		return nil, opError(KindStatus, op, err)
	}
	return &st, nil
}

// Wait polls until the session leaves RUNNING, sleeping the client's fixed
// interval between polls. A SUCCEEDED reply must carry a receipt URL;
// anything else terminal fails with the verbatim status. Cancellation of ctx
// is observed both during polls and mid-sleep.
func (s *Session) Wait(ctx context.Context) (*SessionStatusRes, error) {
	for {
		st, err := s.Status(ctx)
		if err != nil {
			return nil, err
		}
		switch st.Status {
		case StatusRunning:
			if err := s.c.sleep(ctx, s.c.poll); err != nil {
				return nil, err
			}
		case StatusSucceeded:
			if st.ReceiptURL == "" {
				return nil, &Error{
					Kind:    KindProtocol,
					Op:      "session wait",
					Message: fmt.Sprintf("bonsai: session %s succeeded without a receipt URL", s.UUID),
				}
			}
			return st, nil
		default:
			return nil, &Error{
				Kind:    KindJobFailed,
				Op:      "session wait",
				Status:  st.Status,
				Message: fmt.Sprintf("bonsai: session %s exited with status %s", s.UUID, st.Status),
			}
		}
	}
}

func (c *Client) do(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.endpoint.Key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpc.Do(req)
}

func success(res *http.Response) bool {
	return res.StatusCode >= 200 && res.StatusCode < 300
}

func opError(kind Kind, op string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf("bonsai: %s: %v", op, cause),
		Cause:   cause,
	}
}

func serverError(kind Kind, op string, res *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	return &Error{
		Kind:    kind,
		Op:      op,
		Body:    string(body),
		Message: fmt.Sprintf("bonsai: %s: status %d: server error: '%s'", op, res.StatusCode, body),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
