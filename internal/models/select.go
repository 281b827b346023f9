package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dshills/triage/internal/providers"
)

// Fallback is the model used when discovery cannot produce a choice.
const Fallback = "models/gemini-2.5-flash"

const generateMethod = "generateContent"

// preferences are matched as substrings of the model name, highest first.
var preferences = []string{"gemini-2.5-flash", "flash", "pro"}

var errNoCandidates = errors.New("no models support " + generateMethod)

// Pick returns the preferred generation-capable model name from descs.
// It reports false when no named descriptor supports generateContent.
func Pick(descs []providers.ModelDescriptor) (string, bool) {
	names := Candidates(descs)
	if len(names) == 0 {
		return "", false
	}
	for _, pref := range preferences {
		for _, n := range names {
			if strings.Contains(n, pref) {
				return n, true
			}
		}
	}
	return names[0], true
}

// Candidates returns, in source order, the names of descriptors that have a
// name and list a generation method containing "generateContent".
func Candidates(descs []providers.ModelDescriptor) []string {
	var names []string
	for _, d := range descs {
		if d.Name != "" && SupportsGenerate(d) {
			names = append(names, d.Name)
		}
	}
	return names
}

// SupportsGenerate reports whether d lists a generateContent method.
func SupportsGenerate(d providers.ModelDescriptor) bool {
	for _, m := range d.SupportedGenerationMethods {
		if strings.Contains(m, generateMethod) {
			return true
		}
	}
	return false
}

// Selector discovers the model to use for a run.
type Selector struct {
	Lister   providers.ModelLister
	Fallback string
	Logger   *slog.Logger
}

// Select fetches the model list and picks from it. It never fails: any
// fetch, parse or empty-list problem is logged and the fallback returned.
func (s *Selector) Select(ctx context.Context) string {
	name, err := s.discover(ctx)
	if err != nil {
		fallback := s.fallback()
		s.logger().Warn(fmt.Sprintf("model discovery failed, defaulting to %s", fallback),
			"fallback", fallback,
			"error", err)
		return fallback
	}
	return name
}

func (s *Selector) discover(ctx context.Context) (string, error) {
	if s.Lister == nil {
		return "", errors.New("no model lister configured")
	}
	descs, err := s.Lister.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("listing models: %w", err)
	}
	name, ok := Pick(descs)
	if !ok {
		return "", fmt.Errorf("%w (%d listed)", errNoCandidates, len(descs))
	}
	return name, nil
}

func (s *Selector) fallback() string {
	if s.Fallback != "" {
		return s.Fallback
	}
	return Fallback
}

func (s *Selector) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
