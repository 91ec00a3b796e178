package model

import "time"

// RepoOpAction discriminates the kind of change a RepoOp describes.
// Unknown strings are preserved verbatim (Event Model parsing rule:
// "unknown string enums are preserved as the raw string").
type RepoOpAction string

const (
	RepoOpCreate RepoOpAction = "create"
	RepoOpUpdate RepoOpAction = "update"
	RepoOpDelete RepoOpAction = "delete"
)

// ParseRepoOpAction maps a raw action string to its typed constant,
// preserving anything unrecognized as the raw string (Event Model
// parsing rule: "unknown string enums are preserved as the raw string").
func ParseRepoOpAction(raw string) RepoOpAction {
	return RepoOpAction(raw)
}

// RepoOp is one record-level operation within a Firehose Commit.
type RepoOp struct {
	Action  RepoOpAction
	Path    string
	CID     string
	Prev    *string
	// Record is the opaque decoded record map resolved from the CAR
	// archive against CID, or nil if the op carries no block (e.g. a
	// delete) or the CID couldn't be resolved.
	Record map[string]any
}

// AccountStatus discriminates the reason an account event carries,
// with an escape hatch for values not in the known set.
type AccountStatus string

const (
	AccountTakendown      AccountStatus = "takendown"
	AccountSuspended      AccountStatus = "suspended"
	AccountDeleted        AccountStatus = "deleted"
	AccountDeactivated    AccountStatus = "deactivated"
	AccountDesynchronized AccountStatus = "desynchronized"
	AccountThrottled      AccountStatus = "throttled"
)

// Commit is dispatched for a Firehose #commit event: an atomic update to
// one repo, containing zero or more RepoOps.
type Commit struct {
	Seq    int64
	Repo   DID
	CommitCID string
	Rev    string
	Since  *string
	Ops    []RepoOp
	Time   time.Time

	// Deprecated fields preserved for wire compatibility (spec: "rebase,
	// too_big, blobs preserved for compatibility").
	Rebase bool
	TooBig bool
	Blobs  []string
}

// Sync is dispatched for a Firehose #sync event.
type Sync struct {
	Seq    int64
	DID    DID
	Blocks []byte
	Rev    string
	Time   time.Time
}

// Identity is dispatched for a Firehose #identity event. Jetstream's
// identity variant is the separate JetstreamIdentity.
type Identity struct {
	Seq    int64
	DID    DID
	Time   time.Time
	Handle *string
}

// Account is dispatched for a Firehose #account event. Jetstream's
// account variant is the separate JetstreamAccount.
type Account struct {
	Seq    int64
	DID    DID
	Time   time.Time
	Active bool
	Status *AccountStatus
}

// Info is dispatched for a Firehose #info event, used by relays to
// communicate operational state rather than repo content.
type Info struct {
	Name    string
	Message *string
}
