package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/portale-hq/portale/internal/idgen"
	"github.com/portale-hq/portale/internal/metrics"
	"github.com/portale-hq/portale/internal/traces"
	"github.com/portale-hq/portale/internal/users"
)

// ActivityRecorder appends entries to the activity feed.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, kind, message string)
}

// Service owns wallet mutations. All balance changes go through the
// per-user lock so concurrent credits and stakes never lose updates.
type Service struct {
	store    Store
	profiles users.Store
	activity ActivityRecorder
	logger   *slog.Logger
	locks    sync.Map // per-user mutex
}

// NewService creates a token service. activity may be nil.
func NewService(store Store, profiles users.Store, activity ActivityRecorder, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		activity: activity,
		logger:   logger,
	}
}

func (s *Service) lockUser(userID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// walletOrNew loads the user's wallet, returning a fresh zero wallet when
// none exists yet.
func (s *Service) walletOrNew(ctx context.Context, userID string) (*Wallet, error) {
	w, err := s.store.GetWallet(ctx, userID)
	if err == ErrWalletNotFound {
		return &Wallet{UserID: userID}, nil
	}
	return w, err
}

// Credit adds earned tokens to a user's wallet and writes a ledger entry.
func (s *Service) Credit(ctx context.Context, userID string, amount int, source string) error {
	ctx, span := traces.StartSpan(ctx, "tokens.Credit", traces.UserID(userID))
	defer span.End()

	if amount <= 0 {
		return ErrInvalidAmount
	}

	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.walletOrNew(ctx, userID)
	if err != nil {
		return err
	}
	w.Balance += amount
	w.TotalEarned += amount
	if err := s.store.UpsertWallet(ctx, w); err != nil {
		return err
	}

	if err := s.store.RecordTransaction(ctx, &Transaction{
		ID:          idgen.WithPrefix("txn_"),
		UserID:      userID,
		Amount:      amount,
		Type:        TxReward,
		Description: source,
	}); err != nil {
		s.logger.Error("WARNING: wallet credited but ledger write failed",
			"user_id", userID, "amount", amount, "error", err)
	}
	return nil
}

// Spend debits tokens from a user's wallet. The balance never goes
// negative.
func (s *Service) Spend(ctx context.Context, userID string, amount int, description string) error {
	ctx, span := traces.StartSpan(ctx, "tokens.Spend", traces.UserID(userID))
	defer span.End()

	if amount <= 0 {
		return ErrInvalidAmount
	}

	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.walletOrNew(ctx, userID)
	if err != nil {
		return err
	}
	if amount > w.Balance {
		return ErrInsufficientBalance
	}
	w.Balance -= amount
	w.TotalSpent += amount
	if err := s.store.UpsertWallet(ctx, w); err != nil {
		return err
	}

	if err := s.store.RecordTransaction(ctx, &Transaction{
		ID:          idgen.WithPrefix("txn_"),
		UserID:      userID,
		Amount:      amount,
		Type:        TxSpend,
		Description: description,
	}); err != nil {
		s.logger.Error("WARNING: wallet debited but ledger write failed",
			"user_id", userID, "amount", amount, "error", err)
	}
	return nil
}

// Holdings reports a user's liquid and staked balances. Users without a
// wallet hold zero.
func (s *Service) Holdings(ctx context.Context, userID string) (balance, staked int, err error) {
	w, err := s.store.GetWallet(ctx, userID)
	if err == ErrWalletNotFound {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return w.Balance, w.Staked, nil
}

// Wallet returns the user's wallet, materializing an empty one for users
// who have never earned.
func (s *Service) Wallet(ctx context.Context, userID string) (*Wallet, error) {
	return s.walletOrNew(ctx, userID)
}

// Transactions lists the user's ledger entries, newest first.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	return s.store.ListTransactions(ctx, userID, limit)
}

// Stake moves liquid tokens into the staked position and restarts the lock
// clock.
func (s *Service) Stake(ctx context.Context, userID string, amount int) (*Wallet, error) {
	ctx, span := traces.StartSpan(ctx, "tokens.Stake", traces.UserID(userID))
	defer span.End()

	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.walletOrNew(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := ValidateStake(amount, w.Balance); err != nil {
		return nil, err
	}

	now := time.Now()
	w.Balance -= amount
	w.Staked += amount
	w.StakedAt = &now
	if err := s.store.UpsertWallet(ctx, w); err != nil {
		return nil, err
	}

	if err := s.store.RecordTransaction(ctx, &Transaction{
		ID:          idgen.WithPrefix("txn_"),
		UserID:      userID,
		Amount:      amount,
		Type:        TxStake,
		Description: "tokens staked",
	}); err != nil {
		s.logger.Error("WARNING: stake applied but ledger write failed",
			"user_id", userID, "amount", amount, "error", err)
	}

	if s.activity != nil {
		s.activity.Record(ctx, userID, "tokens_staked",
			fmt.Sprintf("Staked %d tokens", amount))
	}
	return w, nil
}

// UnstakeResult is the outcome of an unstake, including any early
// withdrawal penalty burned.
type UnstakeResult struct {
	Wallet  *Wallet         `json:"wallet"`
	Quote   WithdrawalQuote `json:"quote"`
	Matured bool            `json:"matured"`
}

// Unstake returns staked tokens to the liquid balance. Unstaking before
// the lock period matures burns the penalty share.
func (s *Service) Unstake(ctx context.Context, userID string, amount int) (*UnstakeResult, error) {
	ctx, span := traces.StartSpan(ctx, "tokens.Unstake", traces.UserID(userID))
	defer span.End()

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.walletOrNew(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount > w.Staked {
		return nil, ErrInsufficientStake
	}

	daysStaked := 0
	if w.StakedAt != nil {
		daysStaked = int(time.Since(*w.StakedAt).Hours() / 24)
	}
	quote := EarlyWithdrawalPenalty(amount, daysStaked)

	w.Staked -= amount
	w.Balance += quote.NetAmount
	if w.Staked == 0 {
		w.StakedAt = nil
	}
	if err := s.store.UpsertWallet(ctx, w); err != nil {
		return nil, err
	}

	if err := s.store.RecordTransaction(ctx, &Transaction{
		ID:          idgen.WithPrefix("txn_"),
		UserID:      userID,
		Amount:      quote.NetAmount,
		Type:        TxUnstake,
		Description: fmt.Sprintf("tokens unstaked after %d days (penalty %d)", daysStaked, quote.Penalty),
	}); err != nil {
		s.logger.Error("WARNING: unstake applied but ledger write failed",
			"user_id", userID, "amount", amount, "error", err)
	}

	return &UnstakeResult{
		Wallet:  w,
		Quote:   quote,
		Matured: daysStaked >= LockPeriodDays,
	}, nil
}

// AwardRankBonus credits the periodic leaderboard bonus for a rank.
// Out-of-range ranks earn nothing and no ledger entry is written.
func (s *Service) AwardRankBonus(ctx context.Context, userID string, rank int) (int, error) {
	bonus := RankBonus(rank)
	if bonus == 0 {
		return 0, nil
	}
	if err := s.Credit(ctx, userID, bonus, fmt.Sprintf("rank bonus (top %d)", rank)); err != nil {
		return 0, err
	}
	metrics.TokensDistributedTotal.WithLabelValues("rank_bonus").Add(float64(bonus))
	return bonus, nil
}

// VotingPower computes the user's blended governance weight from their
// reputation and wallet.
func (s *Service) VotingPower(ctx context.Context, userID string) (GovernanceWeight, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return GovernanceWeight{}, err
	}
	balance, staked, err := s.Holdings(ctx, userID)
	if err != nil {
		return GovernanceWeight{}, err
	}
	return ComputeGovernanceWeight(profile.Reputation, balance, staked), nil
}

// CirculationStats estimates the token supply from store aggregates.
func (s *Service) CirculationStats(ctx context.Context) (Circulation, error) {
	distributed, err := s.store.TotalDistributed(ctx)
	if err != nil {
		return Circulation{}, err
	}
	userCount, err := s.profiles.Count(ctx)
	if err != nil {
		return Circulation{}, err
	}
	stats, err := s.profiles.ListStats(ctx, 0)
	if err != nil {
		return Circulation{}, err
	}
	missionsCompleted := 0
	for _, st := range stats {
		missionsCompleted += st.MissionsCompleted
	}
	avg := 0
	if userCount > 0 {
		avg = distributed / userCount
	}
	return EstimateCirculation(missionsCompleted, userCount, avg), nil
}
