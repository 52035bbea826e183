package entities

import "time"

// Domain groups events by the collaborator that produces them.
type Domain string

const (
	DomainTasks      Domain = "tasks"
	DomainLeads      Domain = "leads"
	DomainWorkOrders Domain = "work_orders"
	DomainChat       Domain = "chat"
)

func KnownDomain(domain Domain) bool {
	switch domain {
	case DomainTasks, DomainLeads, DomainWorkOrders, DomainChat:
		return true
	default:
		return false
	}
}

// ResponsibilityKind is the reason a user became a candidate recipient.
type ResponsibilityKind string

const (
	KindMention               ResponsibilityKind = "mention"
	KindReplyTarget           ResponsibilityKind = "reply_target"
	KindOwner                 ResponsibilityKind = "owner"
	KindAssignee              ResponsibilityKind = "assignee"
	KindCreator               ResponsibilityKind = "creator"
	KindObserver              ResponsibilityKind = "observer"
	KindLinkedTaskParticipant ResponsibilityKind = "linked_task_participant"
	KindSectorMember          ResponsibilityKind = "sector_member"
	KindDirect                ResponsibilityKind = "direct"
	KindSystem                ResponsibilityKind = "system"
)

// kindPriority is the fixed total order used to pick one primary kind when a
// recipient qualifies under several. Earlier entries win.
var kindPriority = [...]ResponsibilityKind{
	KindMention,
	KindReplyTarget,
	KindOwner,
	KindAssignee,
	KindCreator,
	KindObserver,
	KindLinkedTaskParticipant,
	KindSectorMember,
	KindDirect,
	KindSystem,
}

func KnownKind(kind ResponsibilityKind) bool {
	for _, candidate := range kindPriority {
		if candidate == kind {
			return true
		}
	}
	return false
}

// KindsByPriority returns the full priority order, highest first.
func KindsByPriority() []ResponsibilityKind {
	out := make([]ResponsibilityKind, len(kindPriority))
	copy(out, kindPriority[:])
	return out
}

// PrimaryKind picks the highest-priority kind from the set. The result does
// not depend on the order kinds were collected in.
func PrimaryKind(kinds []ResponsibilityKind) (ResponsibilityKind, bool) {
	present := make(map[ResponsibilityKind]struct{}, len(kinds))
	for _, kind := range kinds {
		present[kind] = struct{}{}
	}
	for _, candidate := range kindPriority {
		if _, ok := present[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// SortKindsByPriority returns the distinct kinds from the input ordered by
// the fixed priority order. Unknown kinds are dropped.
func SortKindsByPriority(kinds []ResponsibilityKind) []ResponsibilityKind {
	present := make(map[ResponsibilityKind]struct{}, len(kinds))
	for _, kind := range kinds {
		present[kind] = struct{}{}
	}
	out := make([]ResponsibilityKind, 0, len(present))
	for _, candidate := range kindPriority {
		if _, ok := present[candidate]; ok {
			out = append(out, candidate)
		}
	}
	return out
}

// EventDefinition is one catalog row. Sector is empty for events whose sector
// is resolved per occurrence (for example the assignee's department).
type EventDefinition struct {
	Key              string
	Domain           Domain
	Label            string
	Sector           string
	DefaultEnabled   bool
	AllowUserDisable bool
	Mandatory        bool
}

// SectorDefaultRule is organizational policy for one (sector, event, kind).
type SectorDefaultRule struct {
	Sector         string
	EventKey       string
	Responsibility ResponsibilityKind
	Enabled        bool
	UpdatedAt      time.Time
}

// UserRuleOverride is a personal opt-in/opt-out for one (user, event, kind).
// It only takes effect when the event allows user disabling.
type UserRuleOverride struct {
	UserID         string
	EventKey       string
	Responsibility ResponsibilityKind
	Enabled        bool
	UpdatedAt      time.Time
}

// RecipientCandidate is a transient recipient proposal contributed by one or
// more resolvers. Mandatory is true when any contributing resolver requires
// delivery regardless of rules (for example top-role administrators).
type RecipientCandidate struct {
	UserID    string
	Kinds     []ResponsibilityKind
	Mandatory bool
}

// NotificationRecord is the persisted unit of delivery. The pair
// (RecipientID, DedupeKey) is unique; that uniqueness is the idempotence
// contract for repeated dispatch attempts.
type NotificationRecord struct {
	NotificationID string
	RecipientID    string
	ActorID        string
	Domain         Domain
	EventKey       string
	Sector         string
	Responsibility ResponsibilityKind
	EntityType     string
	EntityID       string
	DedupeKey      string
	Mandatory      bool
	Title          string
	Message        string
	Metadata       Metadata
	IsRead         bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}
