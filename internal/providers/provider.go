package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ModelDescriptor describes one model returned by the models list endpoint.
type ModelDescriptor struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// ModelLister returns the models available to the caller.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelDescriptor, error)
}

// Generator produces text for a prompt using the named model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ErrNoContent is returned when a generation response has no text part.
var ErrNoContent = errors.New("no content in response")

// APIError is a non-success HTTP response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}
