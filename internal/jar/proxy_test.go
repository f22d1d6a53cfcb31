package jar

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swearjar/swearjar-bot/internal/domain"
	"github.com/swearjar/swearjar-bot/internal/session"
)

// seed gives every user a balance row so they can be picked as targets.
func seed(t *testing.T, svc *Service, users ...domain.User) {
	t.Helper()
	for _, u := range users {
		_, err := svc.Decrement(context.Background(), u, chat)
		require.NoError(t, err)
	}
}

func propose(t *testing.T, svc *Service, from, to domain.User, units string) Proposal {
	t.Helper()
	ctx := context.Background()
	_, err := svc.StartProxy(ctx, from, chat, 42)
	require.NoError(t, err)
	_, err = svc.SelectTarget(ctx, from, chat, to.ID, 42)
	require.NoError(t, err)
	p, err := svc.SubmitAmount(ctx, from, chat, units)
	require.NoError(t, err)
	return p
}

func TestStartProxyWithoutOthers(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc, jun)

	_, err := svc.StartProxy(context.Background(), jun, chat, 1)
	assert.ErrorIs(t, err, domain.ErrNoTargets)
	_, ok := svc.CancelProxy(jun, chat)
	assert.False(t, ok, "proposer should stay idle")
}

func TestStartProxyListsOthersOnly(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc, jun, natalie, third)

	members, err := svc.StartProxy(context.Background(), jun, chat, 1)
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, m := range members {
		assert.NotEqual(t, jun.ID, m.UserID)
	}
}

func TestProposeThenAccept(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)

	p := propose(t, svc, jun, natalie, " 5 ")
	assert.Equal(t, int64(5), p.Units)
	assert.Equal(t, "Natalie", p.TargetName)
	assert.Equal(t, 42, p.MessageID)
	assert.Equal(t, jun.ID, p.Tx.FromUserID)
	assert.Equal(t, "Jun", p.Tx.FromUserDisplayName)
	assert.True(t, p.Tx.Amount.Equal(dec("0.25")))

	// session is gone after completion
	_, ok := svc.Awaiting(jun, chat)
	assert.False(t, ok)

	incoming, err := svc.Incoming(ctx, natalie, chat)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.True(t, st.Amount(natalie.ID, chat).IsZero())

	_, err = svc.Accept(ctx, natalie, chat, p.Tx.ID)
	require.NoError(t, err)
	assert.True(t, st.Amount(natalie.ID, chat).Equal(dec("0.25")))

	incoming, err = svc.Incoming(ctx, natalie, chat)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

func TestDoubleResolutionIsNoop(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)

	p := propose(t, svc, jun, natalie, "2")

	_, err := svc.Accept(ctx, natalie, chat, p.Tx.ID)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, natalie, chat, p.Tx.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Reject(ctx, natalie, chat, p.Tx.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.True(t, st.Amount(natalie.ID, chat).Equal(dec("0.1")))
}

func TestRejectLeavesBalance(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)
	_, _ = svc.Increment(ctx, natalie, chat)

	p := propose(t, svc, jun, natalie, "3")
	_, err := svc.Reject(ctx, natalie, chat, p.Tx.ID)
	require.NoError(t, err)
	assert.True(t, st.Amount(natalie.ID, chat).Equal(dec("0.05")))

	incoming, _ := svc.Incoming(ctx, natalie, chat)
	assert.Empty(t, incoming)
}

func TestUnrelatedRejectDoesNotTouchOthers(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie, third)

	mine := propose(t, svc, jun, natalie, "5")

	// Sam tries to reject an id that is not addressed to him
	_, err := svc.Reject(ctx, third, chat, mine.Tx.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Reject(ctx, third, chat, mine.Tx.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	incoming, err := svc.Incoming(ctx, natalie, chat)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, mine.Tx.ID, incoming[0].ID)
}

func TestPendingAreResolvedIndividually(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie, third)

	a := propose(t, svc, jun, natalie, "1")
	b := propose(t, svc, third, natalie, "4")

	incoming, _ := svc.Incoming(ctx, natalie, chat)
	require.Len(t, incoming, 2)
	assert.Equal(t, a.Tx.ID, incoming[0].ID, "oldest first")

	_, err := svc.Accept(ctx, natalie, chat, b.Tx.ID)
	require.NoError(t, err)
	assert.True(t, st.Amount(natalie.ID, chat).Equal(dec("0.2")))

	incoming, _ = svc.Incoming(ctx, natalie, chat)
	require.Len(t, incoming, 1)
	assert.Equal(t, a.Tx.ID, incoming[0].ID)
}

func TestSubmitAmountValidationKeepsSession(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)

	_, err := svc.StartProxy(ctx, jun, chat, 7)
	require.NoError(t, err)
	_, err = svc.SelectTarget(ctx, jun, chat, natalie.ID, 7)
	require.NoError(t, err)

	for _, bad := range []string{"five", "0", "-3", "2.5", "", "1001"} {
		_, err = svc.SubmitAmount(ctx, jun, chat, bad)
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve, "input %q", bad)
		_, ok := svc.Awaiting(jun, chat)
		assert.True(t, ok, "session kept after %q", bad)
	}

	p, err := svc.SubmitAmount(ctx, jun, chat, "1")
	require.NoError(t, err)
	assert.True(t, p.Tx.Amount.Equal(dec("0.05")))
}

func TestSubmitAmountWithoutSession(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.SubmitAmount(context.Background(), jun, chat, "5")
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSubmitAmountStoreErrorKeepsSession(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)

	_, err := svc.StartProxy(ctx, jun, chat, 7)
	require.NoError(t, err)
	_, err = svc.SelectTarget(ctx, jun, chat, natalie.ID, 7)
	require.NoError(t, err)

	st.Fail(&domain.StoreError{Op: "create pending", Err: errors.New("down")})
	_, err = svc.SubmitAmount(ctx, jun, chat, "5")
	assert.True(t, domain.IsStoreError(err))
	_, ok := svc.Awaiting(jun, chat)
	assert.True(t, ok)
}

func TestParallelRepliesCreateOnePending(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)

	_, err := svc.StartProxy(ctx, jun, chat, 7)
	require.NoError(t, err)
	_, err = svc.SelectTarget(ctx, jun, chat, natalie.ID, 7)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitAmount(ctx, jun, chat, "3")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrNoSession)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, st.PendingCount())
}

func TestSelectTargetRequiresSelectingStage(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)

	_, err := svc.SelectTarget(ctx, jun, chat, natalie.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = svc.StartProxy(ctx, jun, chat, 1)
	require.NoError(t, err)
	_, err = svc.SelectTarget(ctx, jun, chat, jun.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNoTargets, "cannot pick yourself")
	_, ok := svc.CancelProxy(jun, chat)
	assert.False(t, ok)
}

func TestCancelProxy(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)

	_, err := svc.StartProxy(ctx, jun, chat, 9)
	require.NoError(t, err)
	st, ok := svc.CancelProxy(jun, chat)
	require.True(t, ok)
	assert.Equal(t, session.SelectingTarget, st.Stage)
	assert.Equal(t, 9, st.MessageID)

	_, err = svc.SubmitAmount(ctx, jun, chat, "5")
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSessionsAreScopedToProposer(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	seed(t, svc, jun, natalie)

	_, err := svc.StartProxy(ctx, jun, chat, 1)
	require.NoError(t, err)
	_, err = svc.SelectTarget(ctx, jun, chat, natalie.ID, 1)
	require.NoError(t, err)

	_, err = svc.SubmitAmount(ctx, natalie, chat, "5")
	assert.ErrorIs(t, err, domain.ErrNoSession)
	_, ok := svc.Awaiting(jun, chat)
	assert.True(t, ok)
}

func TestParseUnits(t *testing.T) {
	n, err := ParseUnits("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	_, err = ParseUnits("abc")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "abc", ve.Input)
}
