package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/swearjar/swearjar-bot/internal/domain"
)

// answer is the toast shown for a button press. Empty text just stops the
// client spinner.
type answer struct {
	text  string
	alert bool
}

func toast(text string) answer { return answer{text: text} }
func alert(text string) answer { return answer{text: text, alert: true} }

// press is one button press on a message in a chat.
type press struct {
	user   domain.User
	chatID int64
	msgID  int
}

func (h *Handler) HandleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	var a answer
	defer func() {
		cb := tgbotapi.NewCallback(q.ID, a.text)
		cb.ShowAlert = a.alert
		_, _ = h.api.Request(cb)
	}()

	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}
	p := press{user: userFrom(q.From), chatID: q.Message.Chat.ID, msgID: q.Message.MessageID}

	if err := h.jar.Authorize(p.user.ID); err != nil {
		a = alert(msgNotAuthorized)
		return
	}

	act, err := ParseAction(q.Data)
	if err != nil {
		logf(ctx, "callback from %d: %v", p.user.ID, err)
		a = toast("Unknown button")
		return
	}

	if act.Kind.owned() && act.ID != p.user.ID {
		a = alert(msgNotYours)
		return
	}

	a = h.dispatch(ctx, p, act)
}

func (h *Handler) dispatch(ctx context.Context, p press, act Action) answer {
	switch act.Kind {
	case ActIncrement:
		if _, err := h.jar.Increment(ctx, p.user, p.chatID); err != nil {
			return h.failed(ctx, "increment", err)
		}
		return h.redraw(ctx, p, "")

	case ActDecrement:
		if _, err := h.jar.Decrement(ctx, p.user, p.chatID); err != nil {
			return h.failed(ctx, "decrement", err)
		}
		return h.redraw(ctx, p, "")

	case ActSettlePrompt:
		amt, err := h.jar.Balance(ctx, p.user, p.chatID)
		if err != nil {
			return h.failed(ctx, "settle prompt", err)
		}
		if err := h.edit(p.chatID, p.msgID, renderSettlePrompt(p.user, amt, h.cfg.CurrencySymbol), settleKeyboard(p.user.ID)); err != nil {
			return h.failed(ctx, "settle prompt", err)
		}
		return answer{}

	case ActSettleConfirm:
		if err := h.jar.Settle(ctx, p.user, p.chatID); err != nil {
			return h.failed(ctx, "settle", err)
		}
		logf(ctx, "settled %d in %d", p.user.ID, p.chatID)
		return h.redraw(ctx, p, "💸 Settled")

	case ActSettleCancel, ActBack:
		return h.redraw(ctx, p, "")

	case ActProxyStart:
		return h.proxyStart(ctx, p)

	case ActProxySelect:
		return h.proxySelect(ctx, p, act.ID)

	case ActProxyCancel:
		h.jar.CancelProxy(p.user, p.chatID)
		return h.redraw(ctx, p, "Cancelled")

	case ActPending:
		return h.showPending(ctx, p, "")

	case ActConfirm, ActReject:
		return h.resolve(ctx, p, act)
	}
	return answer{}
}

func (h *Handler) proxyStart(ctx context.Context, p press) answer {
	members, err := h.jar.StartProxy(ctx, p.user, p.chatID, p.msgID)
	if errors.Is(err, domain.ErrNoTargets) {
		return alert("Nobody else has used the jar in this chat yet.")
	}
	if err != nil {
		return h.failed(ctx, "proxy start", err)
	}
	if err := h.edit(p.chatID, p.msgID, renderTargetPrompt(members), targetKeyboard(p.user.ID, members)); err != nil {
		h.jar.CancelProxy(p.user, p.chatID)
		return h.failed(ctx, "proxy start", err)
	}
	return answer{}
}

func (h *Handler) proxySelect(ctx context.Context, p press, targetID int64) answer {
	target, err := h.jar.SelectTarget(ctx, p.user, p.chatID, targetID, p.msgID)
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return alert("This menu is not yours or has expired. Press \"Add for someone\" again.")
	case errors.Is(err, domain.ErrNoTargets):
		return h.redraw(ctx, p, "That person can't be picked.")
	case err != nil:
		return h.failed(ctx, "proxy select", err)
	}

	text := renderAmountPrompt(target.DisplayName, h.jar.Unit(), h.cfg.CurrencySymbol)
	if err := h.edit(p.chatID, p.msgID, text, amountKeyboard(p.user.ID)); err != nil {
		h.jar.CancelProxy(p.user, p.chatID)
		return h.failed(ctx, "proxy select", err)
	}
	return answer{}
}

// showPending turns the message into the presser's list of incoming
// proposals, or back into the scoreboard when nothing is left.
func (h *Handler) showPending(ctx context.Context, p press, done string) answer {
	list, err := h.jar.Incoming(ctx, p.user, p.chatID)
	if err != nil {
		return h.failed(ctx, "list pending", err)
	}
	if len(list) == 0 {
		if done == "" {
			done = "Nothing is waiting for you 👍"
		}
		return h.redraw(ctx, p, done)
	}
	if err := h.edit(p.chatID, p.msgID, RenderPending(list, h.cfg.CurrencySymbol), pendingKeyboard(list)); err != nil {
		return h.failed(ctx, "list pending", err)
	}
	return toast(done)
}

func (h *Handler) resolve(ctx context.Context, p press, act Action) answer {
	var (
		tx   domain.PendingTransaction
		err  error
		done string
	)
	if act.Kind == ActConfirm {
		tx, err = h.jar.Accept(ctx, p.user, p.chatID, act.ID)
		done = fmt.Sprintf("✅ Accepted %s", formatMoney(h.cfg.CurrencySymbol, tx.Amount))
	} else {
		tx, err = h.jar.Reject(ctx, p.user, p.chatID, act.ID)
		done = "❌ Rejected"
	}

	if errors.Is(err, domain.ErrNotFound) {
		return h.showPending(ctx, p, "Already processed")
	}
	if err != nil {
		return h.failed(ctx, string(act.Kind), err)
	}

	logf(ctx, "%s #%d by %d in %d (%s)", act.Kind, tx.ID, p.user.ID, p.chatID, tx.Amount)
	return h.showPending(ctx, p, done)
}

// redraw turns the pressed message into the scoreboard.
func (h *Handler) redraw(ctx context.Context, p press, done string) answer {
	if err := h.showBoard(ctx, p.chatID, p.msgID); err != nil {
		// the mutation already committed
		logf(ctx, "redraw board: %v", err)
		if done == "" {
			return toast("Saved, but the scoreboard could not be refreshed.")
		}
		return toast(done)
	}
	return toast(done)
}

// failed logs err and returns the generic failure toast. The message is left
// untouched so nothing looks committed.
func (h *Handler) failed(ctx context.Context, op string, err error) answer {
	logf(ctx, "%s: %v", op, err)
	return alert(msgFailed)
}
