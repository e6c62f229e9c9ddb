package ports

import (
	"context"

	"github.com/userhub/user-api/internal/core/domain"
)

// AuditSink accepts committed-write events. Record must not block the caller.
type AuditSink interface {
	Record(event domain.AuditEvent)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event domain.AuditEvent) error
}
