// Package gateway forwards mode-tagged conversations to an LLM provider and
// relays either a complete text or a live stream of fragments. It holds no
// session state between calls.
package gateway

import (
	"context"
	"fmt"

	"github.com/prdforge/prdforge/internal/gateway/prompt"
	"github.com/prdforge/prdforge/internal/llm"
)

// Request is one generation call: an ordered conversation plus the mode
// selecting the instruction template and optional constraint inputs.
type Request struct {
	Messages  []llm.Message     `json:"messages"`
	Mode      prompt.Mode       `json:"mode"`
	TechStack *prompt.TechStack `json:"techStack,omitempty"`
	PRDMode   prompt.PRDMode    `json:"prdMode,omitempty"`
}

// Fragment is one incremental piece of a streamed response. A non-nil Err
// terminates the stream; Text is empty in that case.
type Fragment struct {
	Text string
	Err  error
}

// Gateway dispatches generation requests to a provider handler.
type Gateway struct {
	handler llm.ApiHandler
}

// New creates a gateway over the given provider handler.
func New(handler llm.ApiHandler) *Gateway {
	return &Gateway{handler: handler}
}

// Complete resolves the request's instruction template, forwards the
// conversation, and waits for the full response text.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	stream, err := g.open(ctx, req)
	if err != nil {
		return "", err
	}
	text, err := llm.CollectText(stream)
	if err != nil {
		return "", fmt.Errorf("provider stream failed: %w", err)
	}
	return text, nil
}

// Stream opens a live fragment stream for the request. Fragments are
// forwarded as the provider emits them; the channel is closed when the
// provider signals completion. A provider-side failure after streaming has
// begun is delivered as a final fragment with Err set.
func (g *Gateway) Stream(ctx context.Context, req Request) (<-chan Fragment, error) {
	stream, err := g.open(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		for chunk := range stream {
			switch c := chunk.(type) {
			case llm.ApiStreamTextChunk:
				select {
				case out <- Fragment{Text: c.Text}:
				case <-ctx.Done():
					return
				}
			case llm.ApiStreamErrorChunk:
				out <- Fragment{Err: c.Err}
				return
			}
		}
	}()
	return out, nil
}

func (g *Gateway) open(ctx context.Context, req Request) (llm.ApiStream, error) {
	system, err := prompt.SystemInstruction(req.Mode, req.TechStack, req.PRDMode)
	if err != nil {
		return nil, err
	}

	stream, err := g.handler.CreateMessage(ctx, system, req.Messages)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	return stream, nil
}
