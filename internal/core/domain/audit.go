package domain

import "time"

type AuditAction string

const (
	AuditUserCreated AuditAction = "user_created"
	AuditUserUpdated AuditAction = "user_updated"
	AuditUserDeleted AuditAction = "user_deleted"
)

// AuditEvent records a committed user write. ActorID is 0 for
// unauthenticated writes such as signup and seeding.
type AuditEvent struct {
	Action  AuditAction
	UserID  int64
	ActorID int64
	Email   string
	At      time.Time
}
