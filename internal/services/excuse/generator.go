// Package excuse produces a humorous one-to-three sentence excuse for skipping
// an event. A remote text generator is tried once; the local phrase tables are
// the fallback, so callers always get an excuse.
package excuse

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Generator produces excuse text for an event context such as
// `missing "Team Standup" (a Work event)`.
type Generator interface {
	Generate(ctx context.Context, eventContext string) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, eventContext string) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, eventContext string) (string, error) {
	return f(ctx, eventContext)
}

// DefaultContext is used when no event context is given
const DefaultContext = "why I am late"

// BuildPrompt returns the instruction sent to the remote model
func BuildPrompt(eventContext string) string {
	if strings.TrimSpace(eventContext) == "" {
		eventContext = DefaultContext
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a creative and humorous excuse for %s.\n\n", eventContext)
	b.WriteString("The excuse should be:\n")
	b.WriteString("1. Funny and somewhat believable\n")
	b.WriteString("2. Not too serious\n")
	b.WriteString("3. Specific to the context provided (if it's an event or meeting type, tailor it to that)\n")
	b.WriteString("4. Original and unexpected\n")
	b.WriteString("5. Short and to the point (1-3 sentences maximum)\n\n")
	b.WriteString("If the context includes a specific event (like \"missing a team meeting\" or \"skipping a dentist appointment\"), ")
	b.WriteString("make the excuse specifically relevant to that type of event.\n\n")
	b.WriteString("Just provide the excuse directly without any introductory text or explanation.")
	return b.String()
}

// GeneratorFactory builds a Generator from provider settings
type GeneratorFactory func(settings map[string]string) (Generator, error)

// Registry maps provider names to factories
type Registry struct {
	factories map[string]GeneratorFactory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]GeneratorFactory)}
}

// Register adds a factory under name
func (r *Registry) Register(name string, factory GeneratorFactory) {
	r.factories[name] = factory
}

// Build creates the generator registered under name
func (r *Registry) Build(name string, settings map[string]string) (Generator, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(settings)
}

// RegisterDefaults registers the "openai" and "endpoint" providers.
// openai reads api_key, base_url and model; endpoint reads url.
func RegisterDefaults(r *Registry, logger *zap.Logger, debugMode bool) {
	r.Register("openai", func(settings map[string]string) (Generator, error) {
		if settings["api_key"] == "" {
			return nil, fmt.Errorf("openai: api_key is required")
		}
		return NewOpenAIGenerator(settings["api_key"], settings["base_url"], settings["model"], logger, debugMode), nil
	})
	r.Register("endpoint", func(settings map[string]string) (Generator, error) {
		if settings["url"] == "" {
			return nil, fmt.Errorf("endpoint: url is required")
		}
		return NewEndpointGenerator(settings["url"], nil), nil
	})
}

// ErrProviderNotFound is returned for an unknown provider name
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "excuse provider not found: " + e.Name
}
