package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"

	"github.com/ktaudit/ktaudit/wire"
)

// maxFrameSize bounds a single framed message read from the wire, guarding
// against a misbehaving or malicious remote sending an unbounded length
// prefix.
const maxFrameSize = 16 * 1024 * 1024

// HTTPTransport implements Transport by POSTing framed binary requests to a
// configured base URL and parsing framed binary responses. Each message is
// a 4-byte big-endian length prefix followed by the hand-rolled wire
// encoding used throughout this repository.
type HTTPTransport struct {
	client  *http.Client
	baseURL string
}

// NewHTTPTransport returns a transport that talks to baseURL using client.
// If client is nil, http.DefaultClient is used.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client, baseURL: baseURL}
}

func frame(data []byte) []byte {
	out := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], data)
	return out
}

func readFrame(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	if size > maxFrameSize {
		return nil, fmt.Errorf("framed message too large: %d bytes", size)
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *HTTPTransport) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(frame(body)))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote returned status %d", resp.StatusCode)
	}
	return readFrame(resp.Body)
}

func (t *HTTPTransport) Audit(ctx context.Context, req wire.AuditRequest) (*wire.AuditResponse, error) {
	encoded, err := wire.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("encoding audit request: %w", err)
	}
	raw, err := t.post(ctx, "/v1/audit", encoded)
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalAuditResponse(bytes.NewBuffer(raw))
}

func (t *HTTPTransport) SetAuditorHead(ctx context.Context, head wire.AuditorTreeHead) error {
	encoded, err := wire.Marshal(&head)
	if err != nil {
		return fmt.Errorf("encoding auditor tree head: %w", err)
	}
	_, err = t.post(ctx, "/v1/auditor-head", encoded)
	return err
}
