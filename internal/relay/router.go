// Package relay routes inbound Anthropic model aliases to provider-qualified
// backend model ids.
package relay

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

// Provider prefixes recognized on inbound model strings.
const (
	PrefixAnthropic = "anthropic/"
	PrefixOpenAI    = "openai/"
	PrefixGemini    = "gemini/"
	PrefixGitHub    = "github/"
)

// ProviderGoogle is the preferred-provider value that routes sonnet/haiku
// aliases to Gemini when the configured model is a known Gemini model.
const ProviderGoogle = "google"

// Routing is the read-only routing table established at startup.
type Routing struct {
	// PreferredProvider selects where sonnet/haiku aliases land
	// ("openai" or "google").
	PreferredProvider string
	// BigModel receives "sonnet" aliases, SmallModel receives "haiku".
	BigModel   string
	SmallModel string
	// Known model lists used for bare-name prefixing.
	OpenAIModels []string
	GeminiModels []string
	GitHubModels []string
}

// Decision is the outcome of routing one model string. Original is preserved
// verbatim for echo-back in responses.
type Decision struct {
	Target   string
	Original string
}

// StripProviderPrefix removes a recognized provider prefix, returning the
// bare model name.
func StripProviderPrefix(model string) string {
	for _, prefix := range []string{PrefixAnthropic, PrefixOpenAI, PrefixGemini, PrefixGitHub} {
		if after, ok := strings.CutPrefix(model, prefix); ok {
			return after
		}
	}
	return model
}

// Route maps a client-supplied model string to a provider-qualified backend
// model id. Pure and deterministic for a fixed Routing.
//
// Aliases containing "haiku" map to SmallModel and "sonnet" to BigModel,
// prefixed with the preferred provider; Gemini is chosen only when the
// configured model is in the Gemini list, otherwise OpenAI. Bare names found
// in a known provider list gain that provider's prefix. Anything else passes
// through verbatim with a warning.
func Route(ctx context.Context, model string, routing Routing) Decision {
	bare := StripProviderPrefix(model)
	lower := strings.ToLower(bare)

	switch {
	case strings.Contains(lower, "haiku"):
		return Decision{Target: qualifyAlias(routing.SmallModel, routing), Original: model}

	case strings.Contains(lower, "sonnet"):
		return Decision{Target: qualifyAlias(routing.BigModel, routing), Original: model}

	case slices.Contains(routing.GeminiModels, bare) && !strings.HasPrefix(model, PrefixGemini):
		return Decision{Target: PrefixGemini + bare, Original: model}

	case slices.Contains(routing.GitHubModels, bare) && !strings.HasPrefix(model, PrefixGitHub):
		return Decision{Target: PrefixGitHub + bare, Original: model}

	case slices.Contains(routing.OpenAIModels, bare) && !strings.HasPrefix(model, PrefixOpenAI):
		return Decision{Target: PrefixOpenAI + bare, Original: model}
	}

	if !hasKnownPrefix(model) {
		slog.WarnContext(ctx, "no routing rule for model, passing through", "model", model)
	}
	return Decision{Target: model, Original: model}
}

// qualifyAlias prefixes a configured alias target with the preferred provider.
func qualifyAlias(target string, routing Routing) string {
	if routing.PreferredProvider == ProviderGoogle && slices.Contains(routing.GeminiModels, target) {
		return PrefixGemini + target
	}
	return PrefixOpenAI + target
}

func hasKnownPrefix(model string) bool {
	for _, prefix := range []string{PrefixAnthropic, PrefixOpenAI, PrefixGemini, PrefixGitHub} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// IsAnthropicTarget reports whether a routed target is Anthropic-family:
// either explicitly prefixed or an unprefixed claude model passed through.
func IsAnthropicTarget(target string) bool {
	if strings.HasPrefix(target, PrefixAnthropic) {
		return true
	}
	return !hasKnownPrefix(target) && strings.HasPrefix(StripProviderPrefix(target), "claude-")
}

// IsClaudeModel reports whether the bare model name is Claude-family, which
// determines native tool_use support in responses.
func IsClaudeModel(target string) bool {
	return strings.HasPrefix(StripProviderPrefix(target), "claude-")
}
