// Package llm provides abstractions for LLM provider integration.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*types.Message{
//	    types.NewSystemMessage("You interpret dreams."),
//	    types.NewUserMessage("I flew over water."),
//	})
package llm

import (
	"context"

	"github.com/entrhq/moodjournal/pkg/types"
)

// Provider defines the interface for LLM integrations.
//
// Providers handle API communication only. Prompt construction, retries and
// response parsing belong to callers.
type Provider interface {
	// Complete sends messages to the LLM and returns the assistant's reply.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}
