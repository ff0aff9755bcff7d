package transport

import (
	"context"
	"fmt"

	"github.com/ktaudit/ktaudit/wire"
)

// MemoryTransport is a fixed in-memory Transport: Audit replays a canned
// sequence of responses keyed by request start offset, and SetAuditorHead
// records every head it is given. Used by audit-loop tests in place of a
// real remote service.
type MemoryTransport struct {
	Responses map[uint64]*wire.AuditResponse
	Heads     []wire.AuditorTreeHead

	// AuditErr, if set, is returned by Audit instead of a canned response.
	AuditErr error
	// SetAuditorHeadErr, if set, is returned by SetAuditorHead instead of
	// recording the head.
	SetAuditorHeadErr error
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{Responses: make(map[uint64]*wire.AuditResponse)}
}

func (t *MemoryTransport) Audit(ctx context.Context, req wire.AuditRequest) (*wire.AuditResponse, error) {
	if t.AuditErr != nil {
		return nil, t.AuditErr
	}
	resp, ok := t.Responses[req.Start]
	if !ok {
		return nil, fmt.Errorf("memory transport: no canned response for start=%d", req.Start)
	}
	return resp, nil
}

func (t *MemoryTransport) SetAuditorHead(ctx context.Context, head wire.AuditorTreeHead) error {
	if t.SetAuditorHeadErr != nil {
		return t.SetAuditorHeadErr
	}
	t.Heads = append(t.Heads, head)
	return nil
}
