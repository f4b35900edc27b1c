// Package reflection implements the Reflection Composer (spec §4.5): a pure
// function of (strategy, step number, base prompt, template) deciding
// whether to inject a self-reflection fragment into the system prompt
// before the next model call.
package reflection

import "fmt"

// Strategy selects when a reflection fragment is injected.
type Strategy string

const (
	// None never injects a fragment.
	None Strategy = "none"
	// Reflact injects at every step after step 0.
	Reflact Strategy = "reflact"
	// Periodic injects when step > 0 and step mod Frequency == 0.
	Periodic Strategy = "periodic"
)

// DefaultFrequency is used by Periodic when Config.Frequency is zero.
const DefaultFrequency = 3

// Config parameterises the composer. Frequency is only consulted for
// Periodic; zero means DefaultFrequency.
type Config struct {
	Strategy  Strategy
	Frequency int
	// Template overrides the default fragment template. It must contain a
	// "<reflection>" block; Compose does not validate its shape, only
	// substitutes it verbatim when set.
	Template string
}

const defaultTemplate = `<reflection>
Restate the original goal in one sentence. List what has been accomplished
so far. Decide the next concrete action.
</reflection>`

// ShouldInject reports whether step warrants a reflection fragment under
// cfg.Strategy.
func ShouldInject(cfg Config, step int) bool {
	switch cfg.Strategy {
	case Reflact:
		return step > 0
	case Periodic:
		freq := cfg.Frequency
		if freq <= 0 {
			freq = DefaultFrequency
		}
		return step > 0 && step%freq == 0
	case None, "":
		return false
	default:
		return false
	}
}

// Fragment returns the reflection fragment text for cfg: cfg.Template when
// set, otherwise the built-in default template.
func Fragment(cfg Config) string {
	if cfg.Template != "" {
		return cfg.Template
	}
	return defaultTemplate
}

// Compose returns the system prompt to use for step, given basePrompt. When
// ShouldInject(cfg, step) is false, basePrompt is returned unchanged. When
// true, the result is "{basePrompt}\n\n{fragment}"; basePrompt is always
// preserved in full.
func Compose(cfg Config, step int, basePrompt string) string {
	if !ShouldInject(cfg, step) {
		return basePrompt
	}
	return fmt.Sprintf("%s\n\n%s", basePrompt, Fragment(cfg))
}

// EstimateTokens returns an integer approximation of the fragment's token
// cost (character count divided by four), zero when cfg.Strategy is None.
func EstimateTokens(cfg Config) int {
	if cfg.Strategy == None || cfg.Strategy == "" {
		return 0
	}
	return len(Fragment(cfg)) / 4
}
