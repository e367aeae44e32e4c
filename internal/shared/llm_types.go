// Package shared holds types passed between the LLM clients and their callers.
package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	TotalTokens      int    `json:"totalTokens"`
	Model            string `json:"model,omitempty"`
}

// Add returns the sum of u and o. The model of u is kept unless it is empty.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	sum := TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
		Model:            u.Model,
	}
	if sum.Model == "" {
		sum.Model = o.Model
	}
	return sum
}

// AgentMeta holds operational metadata for one LLM-backed operation.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
