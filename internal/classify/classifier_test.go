package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchat/taskchat-api/internal/domain"
)

func TestKeywordClassifier(t *testing.T) {
	classifier := NewKeywordClassifier()
	ctx := context.Background()

	cases := []struct {
		name string
		text string
		want domain.Priority
	}{
		{"urgency signal", "urgent fix bug", domain.PriorityHigh},
		{"urgency mid-sentence", "please deploy this ASAP", domain.PriorityHigh},
		{"deferral signal", "read that article later", domain.PriorityLow},
		{"deferral phrase", "no rush on this one", domain.PriorityLow},
		{"neutral text", "buy milk", domain.PriorityMedium},
		{"empty text", "", domain.PriorityMedium},
		{"high beats low", "urgent but also maybe later", domain.PriorityHigh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := classifier.Classify(ctx, tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
