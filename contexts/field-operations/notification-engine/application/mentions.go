package application

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"meridian/contexts/field-operations/notification-engine/ports"
)

// diacriticFolder strips combining marks so "José" and "jose" index the same.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// MentionIndex maps normalized lookup keys (full name, first name, contact
// local part) to user ids. A key held by more than one user is ambiguous and
// never resolves.
type MentionIndex struct {
	byToken     map[string][]string
	byFullName  map[string][]string
	multiwordOK bool
}

// BuildMentionIndex indexes every active user for mention resolution.
func BuildMentionIndex(users []ports.UserProfile) MentionIndex {
	index := MentionIndex{
		byToken:    make(map[string][]string),
		byFullName: make(map[string][]string),
	}
	for _, user := range users {
		if !user.Active || strings.TrimSpace(user.UserID) == "" {
			continue
		}
		keys := make(map[string]struct{}, 3)
		if full := NormalizeMentionToken(user.FullName); full != "" {
			keys[full] = struct{}{}
		}
		if fields := strings.Fields(user.FullName); len(fields) > 0 {
			if first := NormalizeMentionToken(fields[0]); first != "" {
				keys[first] = struct{}{}
			}
		}
		if local := contactLocalPart(user.Email); local != "" {
			keys[local] = struct{}{}
		}
		for key := range keys {
			index.byToken[key] = appendUnique(index.byToken[key], user.UserID)
		}

		spaced := normalizeDisplayText(user.FullName)
		if strings.Contains(spaced, " ") {
			index.byFullName[spaced] = appendUnique(index.byFullName[spaced], user.UserID)
			index.multiwordOK = true
		}
	}
	return index
}

// Resolve scans the text for @mentions and returns the ids of unambiguously
// matched users, unioned with the explicit ids supplied by the caller.
// Tokens matching zero or several users are dropped.
func (index MentionIndex) Resolve(text string, explicitIDs []string) []string {
	resolved := make(map[string]struct{})

	for _, token := range ScanMentionTokens(text) {
		normalized := NormalizeMentionToken(token)
		if normalized == "" {
			continue
		}
		if ids := index.byToken[normalized]; len(ids) == 1 {
			resolved[ids[0]] = struct{}{}
		}
	}

	// Second pass for "@First Last" display names, which the token scan
	// cuts at the first space.
	if index.multiwordOK {
		display := normalizeDisplayText(text)
		for name, ids := range index.byFullName {
			if len(ids) != 1 {
				continue
			}
			if mentionsFullName(display, name) {
				resolved[ids[0]] = struct{}{}
			}
		}
	}

	for _, id := range explicitIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			resolved[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(resolved))
	for id := range resolved {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ScanMentionTokens finds @token runs. A mention starts at the beginning of
// the text, after whitespace, or after an opening bracket; the token runs to
// the next whitespace with trailing punctuation trimmed.
func ScanMentionTokens(text string) []string {
	out := make([]string, 0)
	chars := []rune(text)
	for i := 0; i < len(chars); i++ {
		if chars[i] != '@' {
			continue
		}
		if i > 0 && !mentionBoundary(chars[i-1]) {
			continue
		}
		j := i + 1
		for j < len(chars) && !unicode.IsSpace(chars[j]) {
			j++
		}
		token := strings.TrimRight(string(chars[i+1:j]), ".,!?;:)]}\"'")
		if token != "" {
			out = append(out, token)
		}
		i = j
	}
	return out
}

// NormalizeMentionToken collapses a token to its identifier-safe form:
// diacritics stripped, lowercased, restricted to letters, digits and ._-.
func NormalizeMentionToken(raw string) string {
	folded, _, err := transform.String(diacriticFolder, raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ToLower(folded)

	var builder strings.Builder
	for _, r := range folded {
		if nameRune(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func nameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-'
}

// mentionsFullName reports whether display contains "@"+name as a whole
// mention. The '@' must sit at the start of the text or after a space, and
// the name must not be followed by further name characters, so "@ana souza"
// never matches inside "sales@ana souza" or "@ana souzax".
func mentionsFullName(display, name string) bool {
	needle := "@" + name
	for offset := 0; offset+len(needle) <= len(display); {
		idx := strings.Index(display[offset:], needle)
		if idx < 0 {
			return false
		}
		idx += offset
		offset = idx + 1
		if idx > 0 && display[idx-1] != ' ' {
			continue
		}
		if rest := display[idx+len(needle):]; rest != "" {
			next, _ := utf8.DecodeRuneInString(rest)
			if nameRune(next) {
				continue
			}
		}
		return true
	}
	return false
}

// normalizeDisplayText folds the whole text like NormalizeMentionToken but
// keeps '@' markers and single spaces so multi-word names stay searchable.
func normalizeDisplayText(raw string) string {
	folded, _, err := transform.String(diacriticFolder, raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ToLower(folded)

	var builder strings.Builder
	lastSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace && builder.Len() > 0 {
				builder.WriteRune(' ')
			}
			lastSpace = true
		case nameRune(r) || r == '@':
			builder.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(builder.String())
}

func mentionBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == '[' || r == '{'
}

func contactLocalPart(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	local, _, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return NormalizeMentionToken(local)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
