package invitesvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/K-i-Q/credit-chat-companion/model"
	inviterepo "github.com/K-i-Q/credit-chat-companion/repository/invite"
	walletrepo "github.com/K-i-Q/credit-chat-companion/repository/wallet"
	"github.com/stretchr/testify/require"
)

type redemptionKey struct {
	inviteID int64
	userID   string
}

type fakeInviteRepo struct {
	mu          sync.Mutex
	invites     map[int64]*model.Invite
	redemptions map[redemptionKey]bool
	nextID      int64
}

var _ inviterepo.Repo = (*fakeInviteRepo)(nil)

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{
		invites:     map[int64]*model.Invite{},
		redemptions: map[redemptionKey]bool{},
	}
}

func (f *fakeInviteRepo) seed(code string, credits int64, active bool) *model.Invite {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	inv := &model.Invite{
		ID: f.nextID, Code: code, Credits: credits, Active: active,
		CreatedBy: "admin-1", CreatedAt: time.Now(),
	}
	f.invites[inv.ID] = inv
	return inv
}

func (f *fakeInviteRepo) ByCode(ctx context.Context, code string) (*model.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invites {
		if inv.Code == code {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeInviteRepo) InsertRedemption(ctx context.Context, inviteID int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := redemptionKey{inviteID, userID}
	if f.redemptions[key] {
		return inviterepo.ErrAlreadyRedeemed
	}
	f.redemptions[key] = true
	return nil
}

func (f *fakeInviteRepo) DeleteRedemption(ctx context.Context, inviteID int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.redemptions, redemptionKey{inviteID, userID})
	return nil
}

func (f *fakeInviteRepo) BumpUsage(ctx context.Context, inviteID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.invites[inviteID]; ok {
		inv.UsesCount++
		now := time.Now()
		inv.LastUsedAt = &now
	}
	return nil
}

func (f *fakeInviteRepo) Insert(ctx context.Context, inv *model.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.invites {
		if existing.Code == inv.Code {
			return inviterepo.ErrCodeTaken
		}
	}
	f.nextID++
	inv.ID = f.nextID
	inv.Active = true
	inv.CreatedAt = time.Now()
	cp := *inv
	f.invites[inv.ID] = &cp
	return nil
}

func (f *fakeInviteRepo) List(ctx context.Context) ([]model.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Invite
	for _, inv := range f.invites {
		out = append(out, *inv)
	}
	return out, nil
}

func (f *fakeInviteRepo) Delete(ctx context.Context, inviteID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invites[inviteID]; !ok {
		return false, nil
	}
	delete(f.invites, inviteID)
	return true, nil
}

type fakeWalletRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	topups   int
	failNext error
}

var _ walletrepo.Repo = (*fakeWalletRepo)(nil)

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{balances: map[string]int64{}}
}

func (f *fakeWalletRepo) Bootstrap(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.balances[userID]; !ok {
		f.balances[userID] = 0
	}
	return nil
}

func (f *fakeWalletRepo) Balance(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[userID]
	if !ok {
		return 0, walletrepo.ErrWalletNotFound
	}
	return b, nil
}

func (f *fakeWalletRepo) Topup(ctx context.Context, userID string, amount int64, meta model.Meta) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return 0, err
	}
	b, ok := f.balances[userID]
	if !ok {
		return 0, walletrepo.ErrWalletNotFound
	}
	f.balances[userID] = b + amount
	f.topups++
	return f.balances[userID], nil
}

func (f *fakeWalletRepo) Ledger(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	return nil, nil
}

func TestRedeem(t *testing.T) {
	ir := newFakeInviteRepo()
	wr := newFakeWalletRepo()
	svc := New(ir, wr)
	inv := ir.seed("bemvindo", 15, true)

	res, err := svc.Redeem(context.Background(), "user-1", "  BemVindo ")
	require.NoError(t, err)
	require.False(t, res.AlreadyRedeemed)
	require.EqualValues(t, 15, *res.NewBalance)

	got, err := ir.ByCode(context.Background(), "bemvindo")
	require.NoError(t, err)
	require.EqualValues(t, 1, got.UsesCount)
	require.NotNil(t, got.LastUsedAt)
	_ = inv
}

func TestRedeemTwiceIsIdempotent(t *testing.T) {
	ir := newFakeInviteRepo()
	wr := newFakeWalletRepo()
	svc := New(ir, wr)
	ir.seed("bemvindo", 15, true)

	_, err := svc.Redeem(context.Background(), "user-1", "bemvindo")
	require.NoError(t, err)

	res, err := svc.Redeem(context.Background(), "user-1", "bemvindo")
	require.NoError(t, err)
	require.True(t, res.AlreadyRedeemed)
	require.Nil(t, res.NewBalance)

	// No second grant.
	require.Equal(t, 1, wr.topups)
	bal, err := wr.Balance(context.Background(), "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 15, bal)
}

func TestRedeemInactiveOrUnknown(t *testing.T) {
	ir := newFakeInviteRepo()
	svc := New(ir, newFakeWalletRepo())
	ir.seed("desativado", 15, false)

	_, err := svc.Redeem(context.Background(), "user-1", "desativado")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Redeem(context.Background(), "user-1", "naoexiste")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Redeem(context.Background(), "user-1", "   ")
	require.ErrorIs(t, err, ErrBadCode)
}

func TestRedeemCompensatesFailedGrant(t *testing.T) {
	ir := newFakeInviteRepo()
	wr := newFakeWalletRepo()
	svc := New(ir, wr)
	inv := ir.seed("bemvindo", 15, true)
	wr.failNext = errors.New("db down")

	_, err := svc.Redeem(context.Background(), "user-1", "bemvindo")
	require.Error(t, err)

	// The redemption row was rolled back, so a retry succeeds and
	// grants exactly once.
	require.False(t, ir.redemptions[redemptionKey{inv.ID, "user-1"}])

	res, err := svc.Redeem(context.Background(), "user-1", "bemvindo")
	require.NoError(t, err)
	require.EqualValues(t, 15, *res.NewBalance)
	require.Equal(t, 1, wr.topups)
}

func TestCreateValidatesCode(t *testing.T) {
	ir := newFakeInviteRepo()
	svc := New(ir, newFakeWalletRepo())

	inv, err := svc.Create(context.Background(), "admin-1", "Promo-2026", 10)
	require.NoError(t, err)
	require.Equal(t, "promo-2026", inv.Code)
	require.True(t, inv.Active)

	for _, bad := range []string{"ab", "has space", "acentuação", "UPPER!", ""} {
		_, err := svc.Create(context.Background(), "admin-1", bad, 10)
		require.ErrorIs(t, err, ErrBadCode, "code %q", bad)
	}

	_, err = svc.Create(context.Background(), "admin-1", "promo-2026", 10)
	require.ErrorIs(t, err, ErrCodeTaken)
}

func TestDeleteInvite(t *testing.T) {
	ir := newFakeInviteRepo()
	svc := New(ir, newFakeWalletRepo())
	inv := ir.seed("bemvindo", 15, true)

	require.NoError(t, svc.Delete(context.Background(), inv.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), inv.ID), ErrNotFound)
}
