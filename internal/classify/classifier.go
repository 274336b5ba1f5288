// Package classify provides the natural-language priority
// classification contract. Classification is inherently probabilistic,
// so it lives behind a narrow interface and its output is always
// treated as an untrusted hint by the caller.
package classify

import (
	"context"
	"strings"

	"github.com/taskchat/taskchat-api/internal/domain"
)

// Classifier maps free text to a task priority. Implementations must
// return one of the three enum values; callers re-validate the result
// regardless.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Priority, error)
}

// KeywordClassifier is the default deterministic implementation: a
// small keyword table over the lowercased text. It exists so priority
// behavior is testable without a model in the loop; deployments can
// substitute a model-backed Classifier behind the same contract.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a KeywordClassifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var _ Classifier = (*KeywordClassifier)(nil)

var (
	highSignals = []string{"urgent", "asap", "critical", "important", "immediately", "emergency"}
	lowSignals  = []string{"later", "someday", "eventually", "whenever", "no rush", "low priority"}
)

// Classify returns high when the text carries urgency signals, low when
// it carries deferral signals, and medium otherwise. High signals win
// when both appear.
func (c *KeywordClassifier) Classify(_ context.Context, text string) (domain.Priority, error) {
	lowered := strings.ToLower(text)

	for _, signal := range highSignals {
		if strings.Contains(lowered, signal) {
			return domain.PriorityHigh, nil
		}
	}

	for _, signal := range lowSignals {
		if strings.Contains(lowered, signal) {
			return domain.PriorityLow, nil
		}
	}

	return domain.PriorityMedium, nil
}
