// Package memory implements the Memory Context Loader (spec §4.7): it
// integrates with an external semantic key-value memory store to extract
// user preferences and build a persistent-context block prepended to the
// system prompt.
package memory

import (
	"context"
	"regexp"
	"strings"
)

type (
	// Item is a single recalled entry: free text plus structured tags or
	// metadata describing it.
	Item struct {
		Text string
		Tags []string
		Meta map[string]any
	}

	// Store is the only required surface a memory backend must expose.
	// Implementations must be safe for concurrent use; the loader calls
	// them without additional locking (spec §5 "Shared resources").
	Store interface {
		// Recall returns up to topK items relevant to query.
		Recall(ctx context.Context, query string, topK int) ([]Item, error)
		// Remember persists text with associated metadata for later recall.
		Remember(ctx context.Context, text string, metadata map[string]any) error
	}

	// CommunicationStyle enumerates the closed set of recognised styles.
	CommunicationStyle string

	// Preferences is the structured result of preference extraction.
	// Explicit caller-supplied values always win over memory-derived ones;
	// see Merge.
	Preferences struct {
		Name               string
		Language           string
		CommunicationStyle CommunicationStyle
		CodeStyle          string
	}
)

const (
	StyleConcise   CommunicationStyle = "concise"
	StyleDetailed  CommunicationStyle = "detailed"
	StyleTechnical CommunicationStyle = "technical"
	StyleCasual    CommunicationStyle = "casual"
)

// DefaultPreferenceTags is the default tag filter used by ExtractPreferences.
var DefaultPreferenceTags = []string{"preference", "user-preference"}

// preferencesQuery is the text used to query the store for preference
// items.
const preferencesQuery = "user preferences communication style code style name language"

// Merge overlays mem (memory-derived) under explicit (caller-supplied);
// any non-zero field in explicit wins.
func Merge(explicit, mem Preferences) Preferences {
	out := mem
	if explicit.Name != "" {
		out.Name = explicit.Name
	}
	if explicit.Language != "" {
		out.Language = explicit.Language
	}
	if explicit.CommunicationStyle != "" {
		out.CommunicationStyle = explicit.CommunicationStyle
	}
	if explicit.CodeStyle != "" {
		out.CodeStyle = explicit.CodeStyle
	}
	return out
}

// ExtractPreferences queries store for preference-tagged items and merges
// them into a Preferences value. Structured metadata (keys "name",
// "language", "communication_style", "code_style") wins over text
// heuristics; heuristics only fill fields metadata left unset. Items
// without an overlapping tag in tags (DefaultPreferenceTags when tags is
// nil) are ignored.
func ExtractPreferences(ctx context.Context, store Store, tags []string, topK int) (Preferences, error) {
	if tags == nil {
		tags = DefaultPreferenceTags
	}
	items, err := store.Recall(ctx, preferencesQuery, topK)
	if err != nil {
		return Preferences{}, err
	}

	var prefs Preferences
	for _, item := range items {
		if !hasAnyTag(item.Tags, tags) {
			continue
		}
		applyMetadata(&prefs, item.Meta)
		applyHeuristics(&prefs, item.Text)
	}
	return prefs, nil
}

func hasAnyTag(itemTags, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, t := range itemTags {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}

func applyMetadata(prefs *Preferences, meta map[string]any) {
	if meta == nil {
		return
	}
	if prefs.Name == "" {
		if v, ok := meta["name"].(string); ok && v != "" {
			prefs.Name = v
		}
	}
	if prefs.Language == "" {
		if v, ok := meta["language"].(string); ok && v != "" {
			prefs.Language = v
		}
	}
	if prefs.CommunicationStyle == "" {
		if v, ok := meta["communication_style"].(string); ok && v != "" {
			prefs.CommunicationStyle = CommunicationStyle(v)
		}
	}
	if prefs.CodeStyle == "" {
		if v, ok := meta["code_style"].(string); ok && v != "" {
			prefs.CodeStyle = v
		}
	}
}

var (
	conciseRe   = regexp.MustCompile(`(?i)\b(concise|brief|short|to the point)\b`)
	detailedRe  = regexp.MustCompile(`(?i)\b(detailed|thorough|in-depth|comprehensive)\b`)
	technicalRe = regexp.MustCompile(`(?i)\b(technical|precise|jargon)\b`)
	casualRe    = regexp.MustCompile(`(?i)\b(casual|informal|friendly chat)\b`)
)

// applyHeuristics fills CommunicationStyle, when applyMetadata left it
// unset, using regex matches over free text. Metadata always wins, so this
// only touches the field while still zero; the other fields come from
// metadata only.
func applyHeuristics(prefs *Preferences, text string) {
	if prefs.CommunicationStyle == "" {
		switch {
		case conciseRe.MatchString(text):
			prefs.CommunicationStyle = StyleConcise
		case detailedRe.MatchString(text):
			prefs.CommunicationStyle = StyleDetailed
		case technicalRe.MatchString(text):
			prefs.CommunicationStyle = StyleTechnical
		case casualRe.MatchString(text):
			prefs.CommunicationStyle = StyleCasual
		}
	}
}

// BuildContextBlock queries store for general recalls (excluding
// preference-tagged items) and renders them into a text block suitable for
// prepending to a system prompt. Returns "" when there is nothing to show.
func BuildContextBlock(ctx context.Context, store Store, query string, topK int) (string, error) {
	items, err := store.Recall(ctx, query, topK)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, item := range items {
		if hasAnyTag(item.Tags, DefaultPreferenceTags) {
			continue
		}
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		lines = append(lines, "- "+text)
	}
	if len(lines) == 0 {
		return "", nil
	}
	return "Relevant memory:\n" + strings.Join(lines, "\n"), nil
}

// Context is the non-fatal result of a full load: a persistent-context
// block and extracted preferences. On any store error, Load returns an
// empty Context and the error for the caller to log as a warning; it never
// propagates as a hard failure to the agent factory per spec §4.7.
type Context struct {
	Block       string
	Preferences Preferences
}

// Load runs preference extraction and context-block building against
// store, merging explicit over memory-derived preferences. query seeds the
// context-block recall; topK bounds both recalls.
func Load(ctx context.Context, store Store, query string, explicit Preferences, topK int) (Context, error) {
	prefs, err := ExtractPreferences(ctx, store, nil, topK)
	if err != nil {
		return Context{}, err
	}
	block, err := BuildContextBlock(ctx, store, query, topK)
	if err != nil {
		return Context{}, err
	}
	return Context{Block: block, Preferences: Merge(explicit, prefs)}, nil
}
