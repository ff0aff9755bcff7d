// Package transport abstracts the two remote calls the auditor makes
// against the key-transparency service it is countersigning for.
package transport

import (
	"context"

	"github.com/ktaudit/ktaudit/wire"
)

// Transport is the seam between the audit loop and the remote service.
type Transport interface {
	// Audit requests a page of updates starting at req.Start.
	Audit(ctx context.Context, req wire.AuditRequest) (*wire.AuditResponse, error)

	// SetAuditorHead transmits a newly signed tree head.
	SetAuditorHead(ctx context.Context, head wire.AuditorTreeHead) error
}
