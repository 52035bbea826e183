package entities

import "strings"

// Metadata is the free-form bag stored with each record. The key set is
// closed: consumers read through the typed accessors below, which report
// absence instead of failing on missing keys.
type Metadata map[string]string

const (
	metaTargetPath       = "target_path"
	metaConversationID   = "conversation_id"
	metaResponsibilities = "responsibilities"
	metaSector           = "sector"
	metaPreview          = "preview"
)

func (m Metadata) TargetPath() (string, bool) {
	return m.lookup(metaTargetPath)
}

func (m Metadata) ConversationID() (string, bool) {
	return m.lookup(metaConversationID)
}

func (m Metadata) Sector() (string, bool) {
	return m.lookup(metaSector)
}

func (m Metadata) Preview() (string, bool) {
	return m.lookup(metaPreview)
}

// Responsibilities returns the full surviving responsibility set preserved at
// dispatch time, in priority order.
func (m Metadata) Responsibilities() []ResponsibilityKind {
	raw, ok := m.lookup(metaResponsibilities)
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	kinds := make([]ResponsibilityKind, 0, len(parts))
	for _, part := range parts {
		kind := ResponsibilityKind(strings.TrimSpace(part))
		if KnownKind(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func (m Metadata) WithTargetPath(path string) Metadata {
	return m.with(metaTargetPath, path)
}

func (m Metadata) WithConversationID(conversationID string) Metadata {
	return m.with(metaConversationID, conversationID)
}

func (m Metadata) WithSector(sector string) Metadata {
	return m.with(metaSector, sector)
}

func (m Metadata) WithPreview(preview string) Metadata {
	return m.with(metaPreview, preview)
}

func (m Metadata) WithResponsibilities(kinds []ResponsibilityKind) Metadata {
	values := make([]string, 0, len(kinds))
	for _, kind := range SortKindsByPriority(kinds) {
		values = append(values, string(kind))
	}
	return m.with(metaResponsibilities, strings.Join(values, ","))
}

func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}

func (m Metadata) lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	value, ok := m[key]
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func (m Metadata) with(key string, value string) Metadata {
	out := m.Clone()
	if strings.TrimSpace(value) == "" {
		return out
	}
	out[key] = value
	return out
}
