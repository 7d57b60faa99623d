package models

import (
	"fmt"
	"time"
)

// ResolutionAction is the closed set of ways a sync conflict can be resolved.
// Code switching on it must handle every constant and reject anything else.
type ResolutionAction int

const (
	// ResolutionKeepLocal discards the remote snapshot.
	ResolutionKeepLocal ResolutionAction = iota + 1
	// ResolutionKeepRemote replaces the local ciphertext and metadata with
	// the remote snapshot.
	ResolutionKeepRemote
	// ResolutionMerge is a placeholder strategy: it keeps the local snapshot
	// and performs no field-level reconciliation. Callers must not present it
	// as a semantic merge.
	ResolutionMerge
)

func (a ResolutionAction) String() string {
	switch a {
	case ResolutionKeepLocal:
		return "keep_local"
	case ResolutionKeepRemote:
		return "keep_remote"
	case ResolutionMerge:
		return "merge"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// ParseResolutionAction maps the wire/CLI spelling to a ResolutionAction.
func ParseResolutionAction(s string) (ResolutionAction, error) {
	switch s {
	case "keep_local":
		return ResolutionKeepLocal, nil
	case "keep_remote":
		return ResolutionKeepRemote, nil
	case "merge":
		return ResolutionMerge, nil
	default:
		return 0, fmt.Errorf("unknown resolution action %q", s)
	}
}

// SyncConflict records a divergent pair of replicas for one session. It is
// created only when an inbound record's content hash differs from the local
// one, and is retired by marking it resolved.
type SyncConflict struct {
	ConflictID string
	UserID     string
	SessionID  string

	// LocalSnapshot and RemoteSnapshot are JSON-marshalled EncryptedSession
	// values captured at detection time.
	LocalSnapshot  []byte
	RemoteSnapshot []byte

	DetectedAt time.Time
	Resolved   bool
	// ResolutionAction is the string form of the action once resolved,
	// empty while the conflict is open.
	ResolutionAction string
}
