package service

import (
	"context"
	"testing"
	"time"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/notifier"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// memStore backs the in-memory repository fakes. All fakes share one store so
// balance mutations and ledger entries stay consistent across repositories,
// mirroring the transactional guarantees of the real ones.
type memStore struct {
	accounts    map[string]*model.Account
	plans       map[string]*model.Plan
	videos      map[string]*model.Video
	watches     []model.WatchRecord
	entries     []*model.LedgerEntry
	deposits    map[string]*model.DepositRequest
	withdrawals map[string]*model.WithdrawalRequest
}

func newMemStore() *memStore {
	return &memStore{
		accounts:    map[string]*model.Account{},
		plans:       map[string]*model.Plan{},
		videos:      map[string]*model.Video{},
		deposits:    map[string]*model.DepositRequest{},
		withdrawals: map[string]*model.WithdrawalRequest{},
	}
}

func (s *memStore) appendEntry(accountID string, kind model.EntryKind, amount decimal.Decimal, description string, relatedID *string, status model.EntryStatus) *model.LedgerEntry {
	e := &model.LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		RelatedID:   relatedID,
		Status:      status,
		CreatedAt:   time.Now(),
	}
	s.entries = append(s.entries, e)
	return e
}

func copyAccount(a *model.Account) *model.Account { c := *a; return &c }

// --- account repository fake ---

type fakeAccountRepo struct{ s *memStore }

func (r *fakeAccountRepo) Create(_ context.Context, a *model.Account) error {
	for _, other := range r.s.accounts {
		if other.Email == a.Email || other.Username == a.Username || other.ReferralCode == a.ReferralCode {
			return repository.ErrConflict
		}
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.s.accounts[a.ID] = copyAccount(a)
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyAccount(a), nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, a := range r.s.accounts {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	for _, a := range r.s.accounts {
		if a.Username == username {
			return copyAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAccountRepo) GetByReferralCode(_ context.Context, code string) (*model.Account, error) {
	for _, a := range r.s.accounts {
		if a.ReferralCode == code {
			return copyAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAccountRepo) List(_ context.Context) ([]model.Account, error) {
	var out []model.Account
	for _, a := range r.s.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeAccountRepo) ListReferred(_ context.Context, referrerID string) ([]model.Account, error) {
	var out []model.Account
	for _, a := range r.s.accounts {
		if a.ReferredBy != nil && *a.ReferredBy == referrerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) SetVerified(_ context.Context, id string) error {
	a, ok := r.s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsVerified = true
	return nil
}

func (r *fakeAccountRepo) SetBlocked(_ context.Context, id string, blocked bool) error {
	a, ok := r.s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsBlocked = blocked
	return nil
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	a, ok := r.s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (r *fakeAccountRepo) ResetDailyCount(_ context.Context, id string) error {
	a, ok := r.s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.VideosWatchedToday = 0
	return nil
}

func (r *fakeAccountRepo) ActivatePlan(_ context.Context, accountID string, plan *model.Plan, activatedAt time.Time, expiresAt *time.Time) (*model.LedgerEntry, error) {
	a, ok := r.s.accounts[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Balance.LessThan(plan.Cost) {
		return nil, repository.ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(plan.Cost)
	a.CurrentPlanID = &plan.ID
	a.PlanActivatedAt = &activatedAt
	a.PlanExpiresAt = expiresAt
	a.VideosWatchedToday = 0
	a.LastVideoWatchAt = nil
	return r.s.appendEntry(accountID, model.KindPlanPurchase, plan.Cost.Neg(), "plan purchase", &plan.ID, model.EntryCompleted), nil
}

// --- plan repository fake ---

type fakePlanRepo struct{ s *memStore }

func (r *fakePlanRepo) Create(_ context.Context, p *model.Plan) error {
	if _, ok := r.s.plans[p.ID]; ok {
		return repository.ErrConflict
	}
	c := *p
	r.s.plans[p.ID] = &c
	return nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id string) (*model.Plan, error) {
	p, ok := r.s.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakePlanRepo) List(_ context.Context) ([]model.Plan, error) {
	var out []model.Plan
	for _, p := range r.s.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePlanRepo) Update(_ context.Context, p *model.Plan) error {
	if _, ok := r.s.plans[p.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *p
	r.s.plans[p.ID] = &c
	return nil
}

func (r *fakePlanRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.plans, id)
	return nil
}

// --- video repository fake ---

type fakeVideoRepo struct{ s *memStore }

func (r *fakeVideoRepo) Create(_ context.Context, v *model.Video) error {
	c := *v
	r.s.videos[v.ID] = &c
	return nil
}

func (r *fakeVideoRepo) GetByID(_ context.Context, id string) (*model.Video, error) {
	v, ok := r.s.videos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *v
	return &c, nil
}

func (r *fakeVideoRepo) List(_ context.Context, activeOnly bool) ([]model.Video, error) {
	var out []model.Video
	for _, v := range r.s.videos {
		if activeOnly && !v.IsActive {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (r *fakeVideoRepo) Update(_ context.Context, v *model.Video) error {
	if _, ok := r.s.videos[v.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *v
	r.s.videos[v.ID] = &c
	return nil
}

func (r *fakeVideoRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.videos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.videos, id)
	return nil
}

// --- watch repository fake ---

type fakeWatchRepo struct{ s *memStore }

func (r *fakeWatchRepo) HasWatchedOn(_ context.Context, accountID, videoID string, day time.Time) (bool, error) {
	for _, w := range r.s.watches {
		if w.AccountID == accountID && w.VideoID == videoID && w.WatchDay.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeWatchRepo) RecordWatch(_ context.Context, rec *model.WatchRecord, quota int, description string) (*model.LedgerEntry, int, error) {
	for _, w := range r.s.watches {
		if w.AccountID == rec.AccountID && w.VideoID == rec.VideoID && w.WatchDay.Equal(rec.WatchDay) {
			return nil, 0, repository.ErrDuplicateWatch
		}
	}
	a, ok := r.s.accounts[rec.AccountID]
	if !ok {
		return nil, 0, repository.ErrNotFound
	}
	if a.VideosWatchedToday >= quota {
		return nil, 0, repository.ErrQuotaExhausted
	}
	r.s.watches = append(r.s.watches, *rec)
	a.Balance = a.Balance.Add(rec.RewardEarned)
	a.VideosWatchedToday++
	at := rec.WatchedAt
	a.LastVideoWatchAt = &at
	videoID := rec.VideoID
	entry := r.s.appendEntry(rec.AccountID, model.KindVideoReward, rec.RewardEarned, description, &videoID, model.EntryCompleted)
	return entry, a.VideosWatchedToday, nil
}

func (r *fakeWatchRepo) CountOn(_ context.Context, accountID string, day time.Time) (int, error) {
	count := 0
	for _, w := range r.s.watches {
		if w.AccountID == accountID && w.WatchDay.Equal(day) {
			count++
		}
	}
	return count, nil
}

// --- ledger repository fake ---

type fakeLedgerRepo struct{ s *memStore }

func (r *fakeLedgerRepo) Credit(_ context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string) (*model.LedgerEntry, error) {
	a, ok := r.s.accounts[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a.Balance = a.Balance.Add(amount)
	return r.s.appendEntry(accountID, kind, amount, description, relatedID, model.EntryCompleted), nil
}

func (r *fakeLedgerRepo) CreditOnce(_ context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID string, description string) (*model.LedgerEntry, error) {
	for _, e := range r.s.entries {
		if e.AccountID == accountID && e.Kind == kind && e.RelatedID != nil && *e.RelatedID == relatedID {
			return nil, repository.ErrDuplicateEntry
		}
	}
	a, ok := r.s.accounts[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a.Balance = a.Balance.Add(amount)
	return r.s.appendEntry(accountID, kind, amount, description, &relatedID, model.EntryCompleted), nil
}

func (r *fakeLedgerRepo) Debit(_ context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string, allowNegative bool) (*model.LedgerEntry, error) {
	a, ok := r.s.accounts[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !allowNegative && a.Balance.LessThan(amount) {
		return nil, repository.ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return r.s.appendEntry(accountID, kind, amount.Neg(), description, relatedID, model.EntryCompleted), nil
}

func (r *fakeLedgerRepo) RecordPending(_ context.Context, accountID string, amount decimal.Decimal, kind model.EntryKind, relatedID *string, description string) (*model.LedgerEntry, error) {
	return r.s.appendEntry(accountID, kind, amount, description, relatedID, model.EntryPending), nil
}

func (r *fakeLedgerRepo) ResolvePendingByRelated(_ context.Context, relatedID string, kind model.EntryKind, status model.EntryStatus) error {
	for _, e := range r.s.entries {
		if e.Kind == kind && e.RelatedID != nil && *e.RelatedID == relatedID && e.Status == model.EntryPending {
			e.Status = status
			return nil
		}
	}
	return repository.ErrAlreadyProcessed
}

func (r *fakeLedgerRepo) ListByAccount(_ context.Context, accountID string) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].AccountID == accountID {
			out = append(out, *r.s.entries[i])
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) SumByKinds(_ context.Context, accountID string, kinds ...model.EntryKind) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range r.s.entries {
		if e.AccountID != accountID || e.Status != model.EntryCompleted {
			continue
		}
		for _, k := range kinds {
			if e.Kind == k {
				sum = sum.Add(e.Amount)
				break
			}
		}
	}
	return sum, nil
}

func (r *fakeLedgerRepo) ReconcileBalance(_ context.Context, accountID string, includeHolds bool) (decimal.Decimal, decimal.Decimal, error) {
	a, ok := r.s.accounts[accountID]
	if !ok {
		return decimal.Zero, decimal.Zero, repository.ErrNotFound
	}
	sum := decimal.Zero
	for _, e := range r.s.entries {
		if e.AccountID != accountID {
			continue
		}
		if e.Status == model.EntryCompleted || (includeHolds && e.Status == model.EntryPending && e.Kind == model.KindWithdrawal) {
			sum = sum.Add(e.Amount)
		}
	}
	return a.Balance, sum, nil
}

// --- payout repository fake ---

type fakePayoutRepo struct{ s *memStore }

func (r *fakePayoutRepo) CreateDeposit(_ context.Context, d *model.DepositRequest) (*model.LedgerEntry, error) {
	d.CreatedAt = time.Now()
	c := *d
	r.s.deposits[d.ID] = &c
	id := d.ID
	return r.s.appendEntry(d.AccountID, model.KindDeposit, d.Amount, "deposit request", &id, model.EntryPending), nil
}

func (r *fakePayoutRepo) CreateWithdrawal(_ context.Context, w *model.WithdrawalRequest, hold bool) (*model.LedgerEntry, error) {
	a, ok := r.s.accounts[w.AccountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if hold {
		if a.Balance.LessThan(w.Amount) {
			return nil, repository.ErrInsufficientBalance
		}
		a.Balance = a.Balance.Sub(w.Amount)
	}
	w.CreatedAt = time.Now()
	c := *w
	r.s.withdrawals[w.ID] = &c
	id := w.ID
	return r.s.appendEntry(w.AccountID, model.KindWithdrawal, w.Amount.Neg(), "withdrawal request", &id, model.EntryPending), nil
}

func (r *fakePayoutRepo) GetDeposit(_ context.Context, id string) (*model.DepositRequest, error) {
	d, ok := r.s.deposits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (r *fakePayoutRepo) GetWithdrawal(_ context.Context, id string) (*model.WithdrawalRequest, error) {
	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *w
	return &c, nil
}

func (r *fakePayoutRepo) ListPendingDeposits(_ context.Context) ([]model.DepositRequest, error) {
	var out []model.DepositRequest
	for _, d := range r.s.deposits {
		if d.Status == model.PayoutPending {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakePayoutRepo) ListPendingWithdrawals(_ context.Context) ([]model.WithdrawalRequest, error) {
	var out []model.WithdrawalRequest
	for _, w := range r.s.withdrawals {
		if w.Status == model.PayoutPending {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *fakePayoutRepo) resolveEntry(relatedID string, kind model.EntryKind, status model.EntryStatus) {
	for _, e := range r.s.entries {
		if e.Kind == kind && e.RelatedID != nil && *e.RelatedID == relatedID && e.Status == model.EntryPending {
			e.Status = status
			return
		}
	}
}

func (r *fakePayoutRepo) ApproveDeposit(_ context.Context, id, adminID string, at time.Time) (*model.DepositRequest, error) {
	d, ok := r.s.deposits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if d.Status != model.PayoutPending {
		return nil, repository.ErrAlreadyProcessed
	}
	a := r.s.accounts[d.AccountID]
	a.Balance = a.Balance.Add(d.Amount)
	d.Status = model.PayoutApproved
	d.ProcessedBy = &adminID
	d.ProcessedAt = &at
	r.resolveEntry(id, model.KindDeposit, model.EntryCompleted)
	c := *d
	return &c, nil
}

func (r *fakePayoutRepo) RejectDeposit(_ context.Context, id, adminID string, at time.Time) (*model.DepositRequest, error) {
	d, ok := r.s.deposits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if d.Status != model.PayoutPending {
		return nil, repository.ErrAlreadyProcessed
	}
	d.Status = model.PayoutRejected
	d.ProcessedBy = &adminID
	d.ProcessedAt = &at
	r.resolveEntry(id, model.KindDeposit, model.EntryFailed)
	c := *d
	return &c, nil
}

func (r *fakePayoutRepo) ApproveWithdrawal(_ context.Context, id, adminID string, at time.Time, debitNow bool) (*model.WithdrawalRequest, error) {
	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if w.Status != model.PayoutPending {
		return nil, repository.ErrAlreadyProcessed
	}
	if debitNow {
		a := r.s.accounts[w.AccountID]
		if a.Balance.LessThan(w.Amount) {
			return nil, repository.ErrInsufficientBalance
		}
		a.Balance = a.Balance.Sub(w.Amount)
	}
	w.Status = model.PayoutApproved
	w.ProcessedBy = &adminID
	w.ProcessedAt = &at
	r.resolveEntry(id, model.KindWithdrawal, model.EntryCompleted)
	c := *w
	return &c, nil
}

func (r *fakePayoutRepo) RejectWithdrawal(_ context.Context, id, adminID string, at time.Time, refund bool) (*model.WithdrawalRequest, error) {
	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if w.Status != model.PayoutPending {
		return nil, repository.ErrAlreadyProcessed
	}
	if refund {
		a := r.s.accounts[w.AccountID]
		a.Balance = a.Balance.Add(w.Amount)
	}
	w.Status = model.PayoutRejected
	w.ProcessedBy = &adminID
	w.ProcessedAt = &at
	r.resolveEntry(id, model.KindWithdrawal, model.EntryFailed)
	c := *w
	return &c, nil
}

// --- notification fake ---

type fakeEnqueuer struct{ sent []notifier.Email }

func (f *fakeEnqueuer) Enqueue(_ context.Context, e notifier.Email) error {
	f.sent = append(f.sent, e)
	return nil
}

// stepClock is a mutable fixed clock for rollover tests.
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time          { return c.t }
func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// testEnv wires all services against the shared in-memory store.
type testEnv struct {
	store     *memStore
	clock     *stepClock
	days      *clock.DayPolicy
	mail      *fakeEnqueuer
	accounts  AccountService
	plans     PlanService
	rewards   RewardService
	payouts   PayoutService
	wallet    LedgerService
	referrals ReferralService
}

const testJWTSecret = "test-secret"

func testPolicy() Policy {
	return Policy{
		RewardModel:       RewardFromPlan,
		ExpiryModel:       ExpiryPerpetual,
		CascadeTrigger:    CascadePerVideo,
		WithdrawalDebit:   DebitOnRequest,
		PlanReferralRate:  decimal.NewFromFloat(0.10),
		VideoReferralRate: decimal.NewFromFloat(0.05),
		WatchTolerance:    1,
	}
}

func newTestEnv(t *testing.T, policy Policy) *testEnv {
	t.Helper()
	s := newMemStore()
	// 08:00 UTC is mid-morning in Maputo, well clear of the day boundary.
	ck := &stepClock{t: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
	days, err := clock.NewDayPolicy("Africa/Maputo", ck)
	if err != nil {
		t.Fatalf("NewDayPolicy: %v", err)
	}
	log := zerolog.Nop()
	mail := &fakeEnqueuer{}
	pub := pubsub.NoopPublisher{}

	accRepo := &fakeAccountRepo{s}
	planRepo := &fakePlanRepo{s}
	videoRepo := &fakeVideoRepo{s}
	watchRepo := &fakeWatchRepo{s}
	ledgerRepo := &fakeLedgerRepo{s}
	payoutRepo := &fakePayoutRepo{s}

	referrals := NewReferralService(accRepo, ledgerRepo, policy, "http://localhost:8080", log)
	return &testEnv{
		store:     s,
		clock:     ck,
		days:      days,
		mail:      mail,
		accounts:  NewAccountService(accRepo, mail, testJWTSecret, "http://localhost:8080", log),
		plans:     NewPlanService(planRepo, accRepo, referrals, pub, "ledger-events", policy, days, log),
		rewards:   NewRewardService(accRepo, planRepo, videoRepo, watchRepo, referrals, pub, "ledger-events", policy, days, log),
		payouts:   NewPayoutService(payoutRepo, accRepo, mail, policy, days, log),
		wallet:    NewLedgerService(ledgerRepo, accRepo, policy, log),
		referrals: referrals,
	}
}

// seedAccount inserts a verified account directly into the store. The balance
// is not ledger-backed; reconciliation tests build balances through the
// ledger instead.
func (e *testEnv) seedAccount(username string, balance decimal.Decimal, referredBy *string) *model.Account {
	a := &model.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsVerified:   true,
		Balance:      balance,
		ReferralCode: username + "-code",
		ReferredBy:   referredBy,
	}
	e.store.accounts[a.ID] = a
	return a
}

func (e *testEnv) seedPlan(name string, cost, dailyReward int64, videosPerDay, durationDays int) *model.Plan {
	p := &model.Plan{
		ID:           uuid.NewString(),
		Name:         name,
		Cost:         decimal.NewFromInt(cost),
		DailyReward:  decimal.NewFromInt(dailyReward),
		VideosPerDay: videosPerDay,
		DurationDays: durationDays,
		TotalReward:  decimal.NewFromInt(dailyReward * int64(durationDays)),
	}
	e.store.plans[p.ID] = p
	return p
}

func (e *testEnv) seedVideo(title string, durationSeconds int, rewardAmount int64, active bool) *model.Video {
	v := &model.Video{
		ID:              uuid.NewString(),
		Title:           title,
		VideoURL:        "https://videos.example/" + title,
		DurationSeconds: durationSeconds,
		RewardAmount:    decimal.NewFromInt(rewardAmount),
		IsActive:        active,
	}
	e.store.videos[v.ID] = v
	return v
}

func (e *testEnv) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	a, ok := e.store.accounts[accountID]
	if !ok {
		t.Fatalf("account %s not in store", accountID)
	}
	return a.Balance
}

func assertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
