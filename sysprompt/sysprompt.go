// Package sysprompt implements the System Prompt Builder (spec §4.8) and
// the System Context pipeline (spec §3 SystemContext): deterministic
// composition of an agent's system prompt from its identity, instructions,
// capability stanza, skills, environment, and memory/preferences.
package sysprompt

import (
	"fmt"
	"strings"

	"github.com/agentloom/agentcore/memory"
)

// Skill describes an auto-discovered capability block appended to the
// skills section, when any are present.
type Skill struct {
	Name        string
	Description string
}

// Context captures everything the System Context pipeline resolves
// (spec §3 SystemContext): date/time/timezone/platform/user/workspace
// info plus resolved preferences.
type Context struct {
	Now            string // pre-formatted current time, e.g. RFC3339
	Date           string
	Time           string
	Timezone       string
	Locale         string
	Platform       string
	Hostname       string
	User           string
	WorkspaceRoot  string
	WorkspaceMap   string
	Preferences    memory.Preferences
	HasPreferences bool
}

// Input parameterises Build.
type Input struct {
	// AgentName identifies the agent by name in the base sentence.
	AgentName string
	// Instructions are the caller-supplied natural-language instructions,
	// if any.
	Instructions string
	// Skills is the auto-discovered skill set; empty suppresses the
	// skills block.
	Skills []Skill
	// SystemContext feeds the environment/context block.
	SystemContext Context
	// MemoryBlock is the persistent-context block from the Memory
	// Context Loader (§4.7), prepended on first init. Empty suppresses
	// the block.
	MemoryBlock string
}

const capabilitiesStanza = `You have access to the following broad capabilities: file operations, shell
execution, code search, browser access, step-by-step reasoning, task
planning, persistent memory across sessions, and conversational responses
for greetings and small talk.`

// Build composes the system prompt for in, in the fixed order required by
// spec §4.8: memory block, base identity sentence, instructions,
// capabilities stanza, skills block, environment/context block. Identical
// inputs always produce a byte-identical prompt.
func Build(in Input) string {
	var b strings.Builder

	if in.MemoryBlock != "" {
		b.WriteString(in.MemoryBlock)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "You are %s, an autonomous agent.", in.AgentName)

	if in.Instructions != "" {
		b.WriteString("\n\n")
		b.WriteString(in.Instructions)
	}

	b.WriteString("\n\n")
	b.WriteString(capabilitiesStanza)

	if block := buildSkillsBlock(in.Skills); block != "" {
		b.WriteString("\n\n")
		b.WriteString(block)
	}

	if block := buildContextBlock(in.SystemContext); block != "" {
		b.WriteString("\n\n")
		b.WriteString(block)
	}

	return b.String()
}

func buildSkillsBlock(skills []Skill) string {
	if len(skills) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Available skills:")
	for _, s := range skills {
		fmt.Fprintf(&b, "\n- %s: %s", s.Name, s.Description)
	}
	return b.String()
}

func buildContextBlock(ctx Context) string {
	var lines []string
	if ctx.Date != "" || ctx.Time != "" {
		lines = append(lines, fmt.Sprintf("Current date/time: %s %s (%s)", ctx.Date, ctx.Time, ctx.Timezone))
	}
	if ctx.Platform != "" {
		lines = append(lines, fmt.Sprintf("Platform: %s", ctx.Platform))
	}
	if ctx.User != "" {
		lines = append(lines, fmt.Sprintf("User: %s", ctx.User))
	}
	if ctx.WorkspaceRoot != "" {
		lines = append(lines, fmt.Sprintf("Workspace root: %s", ctx.WorkspaceRoot))
	}
	if ctx.WorkspaceMap != "" {
		lines = append(lines, fmt.Sprintf("Workspace contents:\n%s", ctx.WorkspaceMap))
	}
	if ctx.HasPreferences {
		lines = append(lines, preferencesLine(ctx.Preferences))
	}
	if len(lines) == 0 {
		return ""
	}
	return "Environment:\n" + strings.Join(lines, "\n")
}

func preferencesLine(p memory.Preferences) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("name=%s", p.Name))
	}
	if p.Language != "" {
		parts = append(parts, fmt.Sprintf("language=%s", p.Language))
	}
	if p.CommunicationStyle != "" {
		parts = append(parts, fmt.Sprintf("style=%s", p.CommunicationStyle))
	}
	if p.CodeStyle != "" {
		parts = append(parts, fmt.Sprintf("code-style=%s", p.CodeStyle))
	}
	return "User preferences: " + strings.Join(parts, ", ")
}

// SanitiseName derives the filesystem-safe path segment for an agent's
// persistent state directory (spec §6): any character outside
// [a-z0-9_-] becomes '_', and the result is lowercased.
func SanitiseName(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
