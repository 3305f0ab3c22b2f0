package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"doorsync/command"
	"doorsync/logger"
)

// AccessKeyHeader carries the pre-provisioned credential.
const AccessKeyHeader = "X-Access-Key"

// Config holds the remote endpoints and credential.
type Config struct {
	GetURL       string        `yaml:"get_url"`
	PutURL       string        `yaml:"put_url"`
	AccessKey    string        `yaml:"access_key"`
	CAFile       string        `yaml:"ca_file"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

var errTooLarge = errors.New("response too large")

// Client exchanges the command record with the remote service.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

// New creates a Client. A CAFile, if set, replaces the system roots.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4096
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CAFile)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		log:  log,
	}, nil
}

// Fetch retrieves the current command record.
func (c *Client) Fetch(ctx context.Context) (command.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GetURL, nil)
	if err != nil {
		return command.Record{}, &Error{Op: "fetch", Kind: KindConnection, Err: err}
	}
	req.Header.Set(AccessKeyHeader, c.cfg.AccessKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return command.Record{}, &Error{Op: "fetch", Kind: KindConnection, Err: err}
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		drain(resp.Body)
		return command.Record{}, &Error{Op: "fetch", Kind: KindStatus, Status: resp.StatusCode}
	}

	body, err := c.readBody(resp.Body)
	if err != nil {
		kind := KindConnection
		if errors.Is(err, errTooLarge) {
			kind = KindDecode
		}
		return command.Record{}, &Error{Op: "fetch", Kind: kind, Err: err}
	}

	rec, err := command.Decode(body)
	if err != nil {
		return command.Record{}, &Error{Op: "fetch", Kind: KindDecode, Err: err}
	}
	c.log.Debugw("Fetched", "record", rec)
	return rec, nil
}

// Push writes rec back. A nil return is an acknowledgment.
func (c *Client) Push(ctx context.Context, rec command.Record) error {
	payload, err := command.Encode(rec)
	if err != nil {
		return &Error{Op: "push", Kind: KindWrite, Err: err}
	}

	body := &countingReader{r: bytes.NewReader(payload)}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cfg.PutURL, body)
	if err != nil {
		return &Error{Op: "push", Kind: KindConnection, Err: err}
	}
	req.ContentLength = int64(len(payload))
	req.Header.Set(AccessKeyHeader, c.cfg.AccessKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindConnection
		if sent := body.n.Load(); sent > 0 && sent < int64(len(payload)) {
			kind = KindWrite
		}
		return &Error{Op: "push", Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		drain(resp.Body)
		return &Error{Op: "push", Kind: KindStatus, Status: resp.StatusCode}
	}

	ack, err := c.readBody(resp.Body)
	if err != nil {
		return &Error{Op: "push", Kind: KindAcknowledge, Err: err}
	}
	if len(bytes.TrimSpace(ack)) > 0 {
		if _, err := command.Decode(ack); err != nil {
			return &Error{Op: "push", Kind: KindAcknowledge, Err: err}
		}
	}
	return nil
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", errTooLarge, c.cfg.MaxBodyBytes)
	}
	return body, nil
}

func success(code int) bool {
	return code >= 200 && code <= 299
}

func drain(r io.Reader) {
	io.Copy(io.Discard, io.LimitReader(r, 64<<10))
}

// countingReader records how much of the payload the transport consumed.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
