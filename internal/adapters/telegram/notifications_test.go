package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/templates"
)

type recordingSender struct {
	mu    sync.Mutex
	chats []int64
	texts []string
}

func (s *recordingSender) SendMessageWithContext(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, chatID)
	s.texts = append(s.texts, text)
	return nil
}

func TestNotificationService_NotifyCrisis(t *testing.T) {
	sender := &recordingSender{}
	ns := NewNotificationService(sender, templates.Get(), -100123, logger.NewNop())

	err := ns.NotifyCrisis(context.Background(), alert.Escalation{
		RunID: "run-7",
		Brand: "Acme",
		Assessment: risk.Assessment{
			CrisisScore:            0.85,
			CrisisLevel:            risk.LevelSevere,
			NegativeSentimentRatio: 0.9,
			CrisisIndicatorCount:   6,
			TotalAnnotations:       10,
		},
		Actions:    []string{"notify_ceo_immediately", "activate_crisis_team"},
		Reviewers:  []string{"crisis_manager", "brand_director", "ceo"},
		DetectedAt: time.Now().Add(-2 * time.Minute),
	})
	require.NoError(t, err)

	require.Len(t, sender.texts, 1)
	assert.Equal(t, int64(-100123), sender.chats[0])
	text := sender.texts[0]
	assert.Contains(t, text, "*Crisis detected: Acme*")
	assert.Contains(t, text, "*0.85* (severe)")
	assert.Contains(t, text, "2 minutes ago")
	assert.Contains(t, text, "• Activate crisis team")
	assert.Contains(t, text, "crisis\\_manager, brand\\_director, ceo")
}

func TestNotificationService_NotifyReview(t *testing.T) {
	sender := &recordingSender{}
	ns := NewNotificationService(sender, templates.Get(), 42, logger.NewNop())

	err := ns.NotifyReview(context.Background(), approval.ReviewRequest{
		RunID: "run-7",
		Brand: "Acme",
		Response: response.GeneratedResponse{
			ID:   "reply-d1",
			Text: "We are sorry *again*. Please DM us.",
		},
		Decision: approval.Decision{
			Status:             approval.StatusPendingHumanReview,
			RiskScore:          0.74,
			DominantFactor:     approval.FactorContentRisk,
			ReviewerHint:       approval.ReviewerLegal,
			ContentFlags:       []string{"legal"},
			SuggestedReviewers: []string{"legal_team", "compliance_officer"},
		},
	})
	require.NoError(t, err)

	text := sender.texts[0]
	assert.Contains(t, text, "Risk score: *0.74* → legal")
	assert.Contains(t, text, "Main factor: Content risk")
	assert.Contains(t, text, "_We are sorry \\*again\\*. Please DM us._")
	assert.Contains(t, text, "legal\\_team, compliance\\_officer")
	assert.Contains(t, text, "`reply-d1`")
}
