package bot

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/swearjar/swearjar-bot/internal/config"
	"github.com/swearjar/swearjar-bot/internal/domain"
	"github.com/swearjar/swearjar-bot/internal/jar"
)

const (
	msgNotAuthorized = "⛔ Not authorized"
	msgFailed        = "⚠️ Something went wrong, please try again."
	msgNotYours      = "This prompt is not yours"
)

// Sender is the part of *tgbotapi.BotAPI the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	api Sender
	cfg config.Config
	jar *jar.Service

	notices *Expirer

	mu     sync.Mutex
	boards map[int64]int // chat -> last scoreboard message
}

func NewHandler(api Sender, cfg config.Config, svc *jar.Service) *Handler {
	h := &Handler{api: api, cfg: cfg, jar: svc, boards: make(map[int64]int)}
	h.notices = NewExpirer(h.deleteMessage)
	return h
}

type traceKey struct{}

func withTrace(ctx context.Context) context.Context {
	return context.WithValue(ctx, traceKey{}, uuid.NewString()[:8])
}

func logf(ctx context.Context, format string, args ...any) {
	trace, _ := ctx.Value(traceKey{}).(string)
	log.Printf("["+trace+"] "+format, args...)
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	ctx = withTrace(ctx)

	if upd.CallbackQuery != nil {
		h.HandleCallback(ctx, upd.CallbackQuery)
		return
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "jar":
			h.handleStart(ctx, msg)
		}
		return
	}

	h.handleText(ctx, msg)
}

// handleStart posts a fresh scoreboard and pins it. A user with incoming
// proposals sees those first.
func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	u := userFrom(msg.From)
	chatID := msg.Chat.ID

	if err := h.jar.Authorize(u.ID); err != nil {
		h.reply(chatID, msgNotAuthorized)
		return
	}

	incoming, err := h.jar.Incoming(ctx, u, chatID)
	if err != nil {
		h.replyFailure(ctx, chatID, "start: incoming", err)
		return
	}
	if len(incoming) > 0 {
		out := tgbotapi.NewMessage(chatID, RenderPending(incoming, h.cfg.CurrencySymbol))
		out.ReplyMarkup = pendingKeyboard(incoming)
		if _, err := h.api.Send(out); err != nil {
			logf(ctx, "send pending view: %v", err)
		}
		return
	}

	board, err := h.jar.Board(ctx, chatID)
	if err != nil {
		h.replyFailure(ctx, chatID, "start: board", err)
		return
	}
	out := tgbotapi.NewMessage(chatID, RenderScoreboard(board, h.cfg.CurrencySymbol))
	out.ReplyMarkup = boardKeyboard()
	sent, err := h.api.Send(out)
	if err != nil {
		logf(ctx, "send scoreboard: %v", err)
		return
	}
	h.rememberBoard(chatID, sent.MessageID)
	h.pinQuietly(ctx, chatID, sent.MessageID)
}

// handleText only means something while the sender is entering an amount.
// Anything else, including replies to unrelated messages, is ignored.
func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) {
	u := userFrom(msg.From)
	chatID := msg.Chat.ID

	st, ok := h.jar.Awaiting(u, chatID)
	if !ok {
		return
	}
	if msg.ReplyToMessage != nil && st.MessageID != 0 && msg.ReplyToMessage.MessageID != st.MessageID {
		return
	}
	if h.jar.Authorize(u.ID) != nil {
		return
	}

	p, err := h.jar.SubmitAmount(ctx, u, chatID, msg.Text)
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return
	case errors.As(err, &ve):
		h.reply(chatID, "❌ "+ve.Reason+". Try again or press Cancel.")
		return
	case err != nil:
		h.replyFailure(ctx, chatID, "submit amount", err)
		return
	}

	logf(ctx, "pending #%d: %d -> %d in %d, %s", p.Tx.ID, u.ID, p.Tx.ToUserID, chatID, p.Tx.Amount)

	boardMsg := p.MessageID
	if boardMsg == 0 {
		boardMsg = h.boardMessage(chatID)
	}
	if boardMsg != 0 {
		if err := h.showBoard(ctx, chatID, boardMsg); err != nil {
			logf(ctx, "redraw board after proposal: %v", err)
		}
	} else {
		h.sendBoard(ctx, chatID)
	}

	h.notice(ctx, chatID, renderProposalNotice(u, p, h.cfg.CurrencySymbol))
}

// notice sends a message that deletes itself after NoticeTTL.
func (h *Handler) notice(ctx context.Context, chatID int64, text string) {
	sent, err := h.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		logf(ctx, "send notice: %v", err)
		return
	}
	h.notices.Schedule(chatID, sent.MessageID, h.cfg.NoticeTTL)
}

func (h *Handler) deleteMessage(chatID int64, messageID int) {
	if _, err := h.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.Printf("delete notice %d in %d: %v", messageID, chatID, err)
	}
}

// pinQuietly pins the scoreboard if the bot is allowed to. Telegram refusing
// (no admin rights, private chat) is expected and dropped.
func (h *Handler) pinQuietly(ctx context.Context, chatID int64, messageID int) {
	_, err := h.api.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	var apiErr *tgbotapi.Error
	if err != nil && !errors.As(err, &apiErr) {
		logf(ctx, "pin: %v", err)
	}
}

func (h *Handler) rememberBoard(chatID int64, messageID int) {
	h.mu.Lock()
	h.boards[chatID] = messageID
	h.mu.Unlock()
}

func (h *Handler) boardMessage(chatID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.boards[chatID]
}

// showBoard rewrites messageID into the current scoreboard.
func (h *Handler) showBoard(ctx context.Context, chatID int64, messageID int) error {
	board, err := h.jar.Board(ctx, chatID)
	if err != nil {
		return err
	}
	if err := h.edit(chatID, messageID, RenderScoreboard(board, h.cfg.CurrencySymbol), boardKeyboard()); err != nil {
		return err
	}
	h.rememberBoard(chatID, messageID)
	return nil
}

func (h *Handler) sendBoard(ctx context.Context, chatID int64) {
	board, err := h.jar.Board(ctx, chatID)
	if err != nil {
		logf(ctx, "board: %v", err)
		return
	}
	out := tgbotapi.NewMessage(chatID, RenderScoreboard(board, h.cfg.CurrencySymbol))
	out.ReplyMarkup = boardKeyboard()
	sent, err := h.api.Send(out)
	if err != nil {
		logf(ctx, "send scoreboard: %v", err)
		return
	}
	h.rememberBoard(chatID, sent.MessageID)
}

func (h *Handler) edit(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
	_, err := h.api.Send(edit)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (h *Handler) reply(chatID int64, text string) {
	_, _ = h.api.Send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) replyFailure(ctx context.Context, chatID int64, op string, err error) {
	logf(ctx, "%s: %v", op, err)
	h.reply(chatID, msgFailed)
}

// RunSessionJanitor drops abandoned proxy-add sessions until ctx is done.
func (h *Handler) RunSessionJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.jar.SweepSessions(); n > 0 {
				log.Printf("expired %d proxy-add session(s)", n)
			}
		}
	}
}

// Close cancels notices that have not expired yet.
func (h *Handler) Close() {
	h.notices.Stop()
}
