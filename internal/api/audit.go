package api

import (
	"log"

	"github.com/google/uuid"
)

// logAudit writes administrative escape-hatch usage to the audit trail. The
// platform ships these lines to the organization's audit sink; this core
// only guarantees they are emitted.
func logAudit(action string, recordID uuid.UUID, value, reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	log.Printf("[Audit] action=%s record=%s value=%s reason=%q", action, recordID, value, reason)
}
