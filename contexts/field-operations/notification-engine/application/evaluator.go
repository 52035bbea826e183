package application

import (
	"sort"
	"strings"

	"meridian/contexts/field-operations/notification-engine/domain/entities"
)

// RuleSnapshot is everything the evaluator needs, captured before evaluation
// starts. Evaluation itself is pure: same snapshot, same result, regardless
// of recipient processing order.
type RuleSnapshot struct {
	Event               entities.EventDefinition
	Sector              string
	OccurrenceMandatory bool
	SectorDefaults      map[entities.ResponsibilityKind]bool
	UserOverrides       map[string]map[entities.ResponsibilityKind]bool
}

// EvaluatedRecipient is one recipient that survived rule evaluation with at
// least one enabled responsibility kind.
type EvaluatedRecipient struct {
	UserID    string
	Primary   entities.ResponsibilityKind
	Kinds     []entities.ResponsibilityKind
	Mandatory bool
}

// MergeCandidates collapses duplicate candidates into one entry per recipient,
// unioning responsibility kinds and OR-ing the mandatory flag.
func MergeCandidates(candidates []entities.RecipientCandidate) []entities.RecipientCandidate {
	byUser := make(map[string]*entities.RecipientCandidate, len(candidates))
	for _, candidate := range candidates {
		userID := strings.TrimSpace(candidate.UserID)
		if userID == "" {
			continue
		}
		merged, ok := byUser[userID]
		if !ok {
			byUser[userID] = &entities.RecipientCandidate{
				UserID:    userID,
				Kinds:     append([]entities.ResponsibilityKind(nil), candidate.Kinds...),
				Mandatory: candidate.Mandatory,
			}
			continue
		}
		merged.Kinds = append(merged.Kinds, candidate.Kinds...)
		merged.Mandatory = merged.Mandatory || candidate.Mandatory
	}

	out := make([]entities.RecipientCandidate, 0, len(byUser))
	for _, merged := range byUser {
		merged.Kinds = entities.SortKindsByPriority(merged.Kinds)
		out = append(out, *merged)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// EvaluateRecipients applies the enablement precedence to every merged
// candidate and picks one primary kind per surviving recipient. Recipients
// with no enabled kind are dropped.
func EvaluateRecipients(snapshot RuleSnapshot, candidates []entities.RecipientCandidate) []EvaluatedRecipient {
	out := make([]EvaluatedRecipient, 0, len(candidates))
	for _, candidate := range MergeCandidates(candidates) {
		surviving := make([]entities.ResponsibilityKind, 0, len(candidate.Kinds))
		for _, kind := range candidate.Kinds {
			if kindEnabled(snapshot, candidate, kind) {
				surviving = append(surviving, kind)
			}
		}
		if len(surviving) == 0 {
			continue
		}
		primary, ok := entities.PrimaryKind(surviving)
		if !ok {
			continue
		}
		out = append(out, EvaluatedRecipient{
			UserID:    candidate.UserID,
			Primary:   primary,
			Kinds:     surviving,
			Mandatory: recipientMandatory(snapshot, candidate),
		})
	}
	return out
}

// kindEnabled resolves one (recipient, kind) pair with the fixed precedence:
// mandatory beats everything, then a sector default replaces the catalog
// default, then the user override wins if the catalog allows overriding.
func kindEnabled(snapshot RuleSnapshot, candidate entities.RecipientCandidate, kind entities.ResponsibilityKind) bool {
	if recipientMandatory(snapshot, candidate) {
		return true
	}

	enabled := snapshot.Event.DefaultEnabled
	if sectorDefault, ok := snapshot.SectorDefaults[kind]; ok {
		enabled = sectorDefault
	}
	if !snapshot.Event.AllowUserDisable {
		return enabled
	}
	if overrides, ok := snapshot.UserOverrides[candidate.UserID]; ok {
		if override, ok := overrides[kind]; ok {
			return override
		}
	}
	return enabled
}

func recipientMandatory(snapshot RuleSnapshot, candidate entities.RecipientCandidate) bool {
	return snapshot.OccurrenceMandatory || snapshot.Event.Mandatory || candidate.Mandatory
}

// BuildSectorDefaultIndex keys sector rules by responsibility kind.
func BuildSectorDefaultIndex(rules []entities.SectorDefaultRule) map[entities.ResponsibilityKind]bool {
	out := make(map[entities.ResponsibilityKind]bool, len(rules))
	for _, rule := range rules {
		out[rule.Responsibility] = rule.Enabled
	}
	return out
}

// BuildUserOverrideIndex keys user overrides by user then responsibility kind.
func BuildUserOverrideIndex(rules []entities.UserRuleOverride) map[string]map[entities.ResponsibilityKind]bool {
	out := make(map[string]map[entities.ResponsibilityKind]bool)
	for _, rule := range rules {
		userID := strings.TrimSpace(rule.UserID)
		if userID == "" {
			continue
		}
		if _, ok := out[userID]; !ok {
			out[userID] = make(map[entities.ResponsibilityKind]bool)
		}
		out[userID][rule.Responsibility] = rule.Enabled
	}
	return out
}
