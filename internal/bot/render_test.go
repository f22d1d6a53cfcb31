package bot

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/swearjar/swearjar-bot/internal/domain"
	"github.com/swearjar/swearjar-bot/internal/jar"
)

func TestRenderScoreboardEmpty(t *testing.T) {
	out := RenderScoreboard(jar.Board{ChatID: 1}, "$")
	assert.Equal(t, boardTitle+"\n\n"+emptyBoard, out)
}

func TestRenderScoreboard(t *testing.T) {
	b := jar.Board{ChatID: 1, Rows: []jar.BoardRow{
		{UserID: 2, Name: "Natalie", Amount: decimal.RequireFromString("0.3"), Pending: decimal.RequireFromString("0.25")},
		{UserID: 1, Name: "Jun", Amount: decimal.Zero},
	}}
	out := RenderScoreboard(b, "$")
	assert.Equal(t, boardTitle+"\n\nNatalie: $0.30 (+$0.25 pending)\nJun: $0.00", out)
}

func TestRenderPending(t *testing.T) {
	out := RenderPending([]domain.PendingTransaction{{
		ID: 3, FromUserDisplayName: "Jun", Amount: decimal.RequireFromString("0.25"),
		CreatedAt: time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
	}}, "$")
	assert.Contains(t, out, "#3 Jun added $0.25 (04.03 10:30)")
}

func TestUserFrom(t *testing.T) {
	assert.Equal(t, "Jun", userFrom(&tgbotapi.User{ID: 1, FirstName: " Jun "}).DisplayName)
	assert.Equal(t, "@nat", userFrom(&tgbotapi.User{ID: 2, UserName: "nat"}).DisplayName)
	assert.Equal(t, "user 3", userFrom(&tgbotapi.User{ID: 3}).DisplayName)
}

func TestProposalNoticeSingular(t *testing.T) {
	p := jar.Proposal{Units: 1, TargetName: "Natalie", Tx: domain.PendingTransaction{Amount: decimal.RequireFromString("0.05")}}
	assert.Equal(t,
		"✅ Jun added 1 swear ($0.05) for Natalie. Waiting for Natalie to confirm.",
		renderProposalNotice(domain.User{DisplayName: "Jun"}, p, "$"))
}
