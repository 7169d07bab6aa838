package ai

import (
	"context"
	"errors"
	"strings"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindInvalidKey    Kind = "invalid_key"
	KindModelNotFound Kind = "model_not_found"
	KindRegion        Kind = "region"
	KindQuota         Kind = "quota"
	KindTimeout       Kind = "timeout"
	KindUnknown       Kind = "unknown"
)

// ProviderError is a classified AI provider failure. Message is safe to show
// to the user; Detail holds the raw provider error for diagnostics.
type ProviderError struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *ProviderError) Error() string {
	return "ai provider (" + string(e.Kind) + "): " + e.Detail
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

const genericMessage = "AI processing failed. Please check your API key."

type rule struct {
	kind    Kind
	needles []string
	message string
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{
		kind:    KindInvalidKey,
		needles: []string{"API key not valid", "API_KEY_INVALID"},
		message: "Your Gemini API key is invalid. Please update it in your Profile.",
	},
	{
		kind:    KindModelNotFound,
		needles: []string{"is not found", "Error 404", "NOT_FOUND", "404 Not Found"},
		message: "Model error (404). The configured Gemini model is not available for your API key.",
	},
	{
		kind:    KindRegion,
		needles: []string{"User location is not supported"},
		message: "Gemini API is not available in your region.",
	},
	{
		kind:    KindQuota,
		needles: []string{"quota", "limit: 0", "RESOURCE_EXHAUSTED"},
		message: `API Quota Error (Limit 0). Please check your Google AI Studio billing or "Pay-as-you-go" settings. You might need to enable the Free Tier explicitly.`,
	},
}

// Classify maps a provider error onto user-facing guidance. It returns nil for
// a nil error and passes through errors that are already classified.
func Classify(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	detail := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{
			Kind:    KindTimeout,
			Message: "The AI service took too long to respond. Please try again.",
			Detail:  detail,
			Err:     err,
		}
	}
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(detail, needle) {
				return &ProviderError{Kind: r.kind, Message: r.message, Detail: detail, Err: err}
			}
		}
	}
	return &ProviderError{Kind: KindUnknown, Message: genericMessage, Detail: detail, Err: err}
}
