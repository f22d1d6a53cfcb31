package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/swearjar/swearjar-bot/internal/domain"
	"github.com/swearjar/swearjar-bot/internal/jar"
)

const (
	boardTitle = "🫙 Swear Jar"
	emptyBoard = "No swears yet 😇"
)

func formatMoney(sym string, d decimal.Decimal) string {
	return sym + d.StringFixed(2)
}

// RenderScoreboard lists balances in the order given, annotating anyone with
// incoming pending amounts.
func RenderScoreboard(b jar.Board, sym string) string {
	var sb strings.Builder
	sb.WriteString(boardTitle + "\n\n")
	if b.Empty() {
		sb.WriteString(emptyBoard)
		return sb.String()
	}
	for _, r := range b.Rows {
		sb.WriteString(fmt.Sprintf("%s: %s", displayName(r.Name), formatMoney(sym, r.Amount)))
		if r.Pending.IsPositive() {
			sb.WriteString(fmt.Sprintf(" (+%s pending)", formatMoney(sym, r.Pending)))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func RenderPending(list []domain.PendingTransaction, sym string) string {
	var sb strings.Builder
	sb.WriteString("📥 Waiting for your confirmation:\n\n")
	for _, p := range list {
		sb.WriteString(fmt.Sprintf("#%d %s added %s (%s)\n",
			p.ID,
			displayName(p.FromUserDisplayName),
			formatMoney(sym, p.Amount),
			p.CreatedAt.Format("02.01 15:04"),
		))
	}
	sb.WriteString("\nEach one is accepted or rejected on its own.")
	return sb.String()
}

func renderSettlePrompt(u domain.User, amount decimal.Decimal, sym string) string {
	return fmt.Sprintf("💸 %s, settle your balance of %s?\nIt will be reset to %s.",
		displayName(u.DisplayName), formatMoney(sym, amount), formatMoney(sym, decimal.Zero))
}

func renderTargetPrompt(members []domain.Member) string {
	if len(members) == 1 {
		return "👥 Who swore?"
	}
	return fmt.Sprintf("👥 Who swore? (%d people)", len(members))
}

func renderAmountPrompt(target string, unit decimal.Decimal, sym string) string {
	return fmt.Sprintf("🔢 How many swears for %s?\nReply with a number (1 swear = %s).",
		displayName(target), formatMoney(sym, unit))
}

func renderProposalNotice(from domain.User, p jar.Proposal, sym string) string {
	noun := "swears"
	if p.Units == 1 {
		noun = "swear"
	}
	return fmt.Sprintf("✅ %s added %d %s (%s) for %s. Waiting for %s to confirm.",
		displayName(from.DisplayName), p.Units, noun, formatMoney(sym, p.Tx.Amount),
		displayName(p.TargetName), displayName(p.TargetName))
}

func boardKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("➕", Action{Kind: ActIncrement}),
			button("➖", Action{Kind: ActDecrement}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("💸 Settle", Action{Kind: ActSettlePrompt}),
			button("👥 Add for someone", Action{Kind: ActProxyStart}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("📥 Pending", Action{Kind: ActPending}),
		),
	)
}

func settleKeyboard(owner int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("✅ Settle", Action{Kind: ActSettleConfirm, ID: owner}),
			button("✖️ Cancel", Action{Kind: ActSettleCancel, ID: owner}),
		),
	)
}

func targetKeyboard(owner int64, members []domain.Member) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(members)+1)
	for _, m := range members {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(displayName(m.DisplayName), Action{Kind: ActProxySelect, ID: m.UserID}),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("✖️ Cancel", Action{Kind: ActProxyCancel, ID: owner})))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func amountKeyboard(owner int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("✖️ Cancel", Action{Kind: ActProxyCancel, ID: owner})),
	)
}

func pendingKeyboard(list []domain.PendingTransaction) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+1)
	for _, p := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(fmt.Sprintf("✅ #%d", p.ID), Action{Kind: ActConfirm, ID: p.ID}),
			button(fmt.Sprintf("❌ #%d", p.ID), Action{Kind: ActReject, ID: p.ID}),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", Action{Kind: ActBack})))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func button(label string, a Action) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, a.Data())
}

func displayName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

// userFrom picks the name shown on the scoreboard: first name, then
// @username, then the numeric id.
func userFrom(u *tgbotapi.User) domain.User {
	name := strings.TrimSpace(u.FirstName)
	if name == "" && u.UserName != "" {
		name = "@" + u.UserName
	}
	if name == "" {
		name = fmt.Sprintf("user %d", u.ID)
	}
	return domain.User{ID: u.ID, DisplayName: name}
}
