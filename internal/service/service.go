package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/engine"
	"github.com/Dan9191/gigfin-service/internal/models"
	"github.com/Dan9191/gigfin-service/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Service handles business logic. Every mutating ledger operation runs under
// that user's mutex: one writer per ledger at a time, full parallelism
// across users. Reads take the same mutex only long enough to capture a
// consistent snapshot; forecast and eligibility math runs outside it.
type Service struct {
	repo   *repository.Repository
	log    *logrus.Logger
	config *config.Config
	now    func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:   repo,
		log:    log,
		config: cfg,
		now:    func() time.Time { return time.Now().UTC() },
		locks:  make(map[int64]*sync.Mutex),
	}
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ledgerLock returns the mutex serializing one user's ledger.
func (s *Service) ledgerLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Register creates a new user with hashed password
func (s *Service) Register(username, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// GetUser returns one user by id.
func (s *Service) GetUser(userID int64) (*models.User, error) {
	return s.repo.FindUserByID(userID)
}

// ListUserIDs returns all user ids, for the proactive sweep.
func (s *Service) ListUserIDs() ([]int64, error) {
	return s.repo.ListUserIDs()
}

// CreateDefaultBuckets seeds the standard bucket set for a new user: rent,
// EMI, tax (reserved), fuel, emergency, savings, and the discretionary
// safe-to-spend bucket that absorbs remainders. Base percents sum to 100.
func (s *Service) CreateDefaultBuckets(userID int64, monthlyRent int64, hasEMI bool) ([]*models.Bucket, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.GetBuckets(userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &engine.ValidationError{Msg: "buckets already configured"}
	}

	discretionaryPercent := 25.0
	buckets := []*models.Bucket{
		{UserID: userID, Name: "rent", DisplayName: "Kiraya (Rent)", Priority: 1, BasePercent: 25, TargetAmount: monthlyRent, IsReserved: true},
	}
	if hasEMI {
		buckets = append(buckets, &models.Bucket{UserID: userID, Name: "emi", DisplayName: "Bike EMI", Priority: 2, BasePercent: 15, TargetAmount: 450000, IsReserved: true})
	} else {
		discretionaryPercent += 15
	}
	buckets = append(buckets,
		&models.Bucket{UserID: userID, Name: "tax", DisplayName: "Tax Savings", Priority: 3, BasePercent: 5, TargetAmount: 500000, IsReserved: true},
		&models.Bucket{UserID: userID, Name: "fuel", DisplayName: "Fuel/Petrol", Priority: 4, BasePercent: 10},
		&models.Bucket{UserID: userID, Name: "emergency", DisplayName: "Emergency Fund", Priority: 5, BasePercent: 10, TargetAmount: 1500000},
		&models.Bucket{UserID: userID, Name: "savings", DisplayName: "Bachat (Savings)", Priority: 6, BasePercent: 10},
		&models.Bucket{UserID: userID, Name: s.config.Engine.DiscretionaryBucket, DisplayName: "Safe to Spend", Priority: 7, BasePercent: discretionaryPercent},
	)

	if err := s.repo.CreateBuckets(buckets); err != nil {
		return nil, err
	}
	s.log.Infof("Default buckets created for user %d", userID)
	return buckets, nil
}

// GetBuckets returns one user's buckets under the ledger lock.
func (s *Service) GetBuckets(userID int64) ([]*models.Bucket, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.repo.GetBuckets(userID)
}

// SafeToSpend returns the discretionary bucket balance in paise.
func (s *Service) SafeToSpend(userID int64) (int64, error) {
	buckets, err := s.GetBuckets(userID)
	if err != nil {
		return 0, err
	}
	for _, b := range buckets {
		if b.Name == s.config.Engine.DiscretionaryBucket {
			return b.CurrentBalance, nil
		}
	}
	return 0, nil
}

// AllocateIncome records an income event and distributes it across buckets
// atomically. A zero amount is a no-op with an empty delta set.
func (s *Service) AllocateIncome(userID int64, amount int64, source string, earnedAt time.Time) (*models.AllocationResult, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.allocateLocked(userID, amount, source, earnedAt)
}

func (s *Service) allocateLocked(userID int64, amount int64, source string, earnedAt time.Time) (*models.AllocationResult, error) {
	buckets, err := s.repo.GetBuckets(userID)
	if err != nil {
		return nil, err
	}
	obligations, err := s.repo.GetObligations(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result, err := engine.Allocate(s.config.Engine, amount, buckets, obligations, now)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return result, nil
	}

	if earnedAt.IsZero() {
		earnedAt = now
	}
	event := &models.IncomeEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Amount:     amount,
		Source:     source,
		EarnedAt:   earnedAt,
		RecordedAt: now,
	}
	if err := s.repo.ApplyAllocation(event, result.Deltas); err != nil {
		return nil, err
	}
	s.log.Infof("Allocated income %d for user %d across %d buckets (remainder %d)",
		amount, userID, len(result.Deltas), result.Remainder)
	return result, nil
}

// ImportIncome allocates a batch of statement entries one by one, in order.
// Each entry commits atomically, but the batch does not: a failure on entry k
// leaves entries 1..k-1 committed and returns how many went through, so the
// caller can resubmit a statement trimmed to the remainder. Re-running the
// full cascade per entry is what makes per-entry boost/taper decisions
// correct, which is why the batch is not folded into one transaction.
func (s *Service) ImportIncome(userID int64, entries []models.IncomeEvent) (int, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	imported := 0
	for _, e := range entries {
		if _, err := s.allocateLocked(userID, e.Amount, e.Source, e.EarnedAt); err != nil {
			return imported, fmt.Errorf("entry %d/%d: %w", imported+1, len(entries), err)
		}
		imported++
	}
	return imported, nil
}

// RecordExpense deducts an expense across buckets in cascade order. With
// force=false and insufficient funds it returns an InsufficientFundsError
// and no balances change.
func (s *Service) RecordExpense(userID int64, amount int64, category, primaryBucket string, force bool) (*models.DeductionResult, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	buckets, err := s.repo.GetBuckets(userID)
	if err != nil {
		return nil, err
	}
	result, err := engine.Deduct(s.config.Engine, amount, buckets, primaryBucket, force)
	if err != nil {
		return nil, err
	}

	now := s.now()
	event := &models.ExpenseEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Amount:     amount,
		Category:   category,
		Deductions: result.Deductions,
		Uncovered:  result.Uncovered,
		SpentAt:    now,
		RecordedAt: now,
	}
	if err := s.repo.ApplyDeduction(event); err != nil {
		return nil, err
	}
	if result.TouchedReserved {
		s.log.Warnf("Expense %d for user %d drew on reserved buckets", amount, userID)
	}
	if result.Uncovered > 0 {
		s.log.Warnf("Expense %d for user %d left %d uncovered", amount, userID, result.Uncovered)
	}
	return result, nil
}

// ledgerSnapshot is a read-consistent copy of one user's ledger state.
type ledgerSnapshot struct {
	buckets     []*models.Bucket
	obligations []*models.Obligation
	income      []*models.IncomeEvent
	expenses    []*models.ExpenseEvent
	advances    []*models.Advance
}

// snapshot reads the ledger under its lock. The heavier forecast and
// eligibility math then runs on the copy, outside the lock.
func (s *Service) snapshot(userID int64) (*ledgerSnapshot, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	window := s.config.Engine.IncomeWindowDays
	if w := s.config.Engine.AdvanceIncomeWindowDays; w > window {
		window = w
	}
	if w := s.config.Engine.ExpenseWindowDays; w > window {
		window = w
	}
	cutoff := now.AddDate(0, 0, -window)

	snap := &ledgerSnapshot{}
	var err error
	if snap.buckets, err = s.repo.GetBuckets(userID); err != nil {
		return nil, err
	}
	if snap.obligations, err = s.repo.GetObligations(userID); err != nil {
		return nil, err
	}
	if snap.income, err = s.repo.GetIncomeSince(userID, cutoff); err != nil {
		return nil, err
	}
	if snap.expenses, err = s.repo.GetExpensesSince(userID, cutoff); err != nil {
		return nil, err
	}
	if snap.advances, err = s.repo.GetAdvances(userID); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetForecast projects the rolling balance/obligation timeline.
func (s *Service) GetForecast(userID int64, horizonDays int) (*models.ForecastResult, error) {
	snap, err := s.snapshot(userID)
	if err != nil {
		return nil, err
	}
	return engine.Forecast(s.config.Engine, horizonDays, snap.buckets, snap.obligations,
		snap.income, snap.expenses, s.now())
}

// GetRisk computes the composite risk score with its factor breakdown.
func (s *Service) GetRisk(userID int64) (*models.RiskResult, error) {
	snap, err := s.snapshot(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	forecast, err := engine.Forecast(s.config.Engine, s.config.Engine.DefaultHorizonDays,
		snap.buckets, snap.obligations, snap.income, snap.expenses, now)
	if err != nil {
		return nil, err
	}
	risk := engine.Score(s.config.Engine, forecast.Daily, snap.buckets, snap.obligations, forecast.Stats, now)
	return &risk, nil
}

// AdvanceEligibility reports how much advance the guardrails allow.
func (s *Service) AdvanceEligibility(userID int64) (*models.Eligibility, error) {
	snap, err := s.snapshot(userID)
	if err != nil {
		return nil, err
	}
	elig := engine.Evaluate(s.config.Engine, snap.advances, snap.income, s.now())
	return &elig, nil
}

// RequestAdvance issues an advance under guardrails and credits the
// principal straight into the discretionary bucket so it is immediately
// spendable. Rejections carry a typed reason and create no record.
func (s *Service) RequestAdvance(userID int64, amount int64, reason string) (*models.Advance, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	advances, err := s.repo.GetAdvances(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	cutoff := now.AddDate(0, 0, -s.config.Engine.AdvanceIncomeWindowDays)
	income, err := s.repo.GetIncomeSince(userID, cutoff)
	if err != nil {
		return nil, err
	}

	elig := engine.Evaluate(s.config.Engine, advances, income, now)
	if err := engine.ValidateRequest(s.config.Engine, amount, elig); err != nil {
		s.log.Infof("Advance request %d for user %d rejected: %v", amount, userID, err)
		return nil, err
	}

	fee, total := engine.PriceAdvance(s.config.Engine, amount)
	adv := &models.Advance{
		ID:             uuid.NewString(),
		UserID:         userID,
		Principal:      amount,
		Fee:            fee,
		TotalRepayment: total,
		Reason:         reason,
		Status:         models.AdvanceApproved,
		DueDate:        now.AddDate(0, 0, s.config.Engine.AdvanceDueInDays),
		CreatedAt:      now,
		ApprovedAt:     now,
	}
	if err := s.repo.CreateAdvance(adv, s.config.Engine.DiscretionaryBucket); err != nil {
		return nil, err
	}
	s.log.Infof("Advance %s issued for user %d: principal %d, fee %d, due %s",
		adv.ID, userID, adv.Principal, adv.Fee, adv.DueDate.Format("2006-01-02"))
	return adv, nil
}

// RepayAdvance settles an outstanding advance by deducting the total
// repayment through the normal expense cascade. If the buckets cannot cover
// it, the call fails with InsufficientFundsError and the advance stays
// outstanding.
func (s *Service) RepayAdvance(userID int64, advanceID string) (*models.Advance, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	adv, err := s.repo.FindAdvance(userID, advanceID)
	if err != nil {
		return nil, err
	}
	if adv.Status != models.AdvanceApproved {
		return nil, &engine.ValidationError{Msg: fmt.Sprintf("advance %s is not outstanding", advanceID)}
	}

	buckets, err := s.repo.GetBuckets(userID)
	if err != nil {
		return nil, err
	}
	result, err := engine.Deduct(s.config.Engine, adv.TotalRepayment, buckets, "", false)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expense := &models.ExpenseEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Amount:     adv.TotalRepayment,
		Category:   "advance_repayment",
		Deductions: result.Deductions,
		SpentAt:    now,
		RecordedAt: now,
	}
	adv.Status = models.AdvanceRepaid
	adv.RepaidAt = &now
	if err := s.repo.SettleAdvance(adv, expense); err != nil {
		return nil, err
	}
	s.log.Infof("Advance %s repaid by user %d (%d)", adv.ID, userID, adv.TotalRepayment)
	return adv, nil
}

// ListAdvances returns the user's advances with derived statuses.
func (s *Service) ListAdvances(userID int64) ([]*models.Advance, error) {
	advances, err := s.repo.GetAdvances(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, a := range advances {
		a.Status = engine.DeriveStatus(a, now)
	}
	return advances, nil
}

// CreateObligation registers a scheduled outflow.
func (s *Service) CreateObligation(o *models.Obligation) (*models.Obligation, error) {
	if o.Amount <= 0 {
		return nil, &engine.ValidationError{Msg: "obligation amount must be positive"}
	}
	switch o.Recurrence {
	case models.RecurrenceOneTime, models.RecurrenceWeekly, models.RecurrenceMonthly:
	default:
		return nil, &engine.ValidationError{Msg: fmt.Sprintf("unknown recurrence %q", o.Recurrence)}
	}
	o.IsActive = true
	if err := s.repo.CreateObligation(o); err != nil {
		return nil, err
	}
	s.log.Infof("Obligation %q created for user %d, due %s", o.Name, o.UserID, o.DueDate.Format("2006-01-02"))
	return o, nil
}

// ListObligations returns the user's active obligations.
func (s *Service) ListObligations(userID int64) ([]*models.Obligation, error) {
	return s.repo.GetObligations(userID)
}

// DeleteObligation removes an obligation on user request.
func (s *Service) DeleteObligation(userID, obligationID int64) error {
	return s.repo.DeleteObligation(userID, obligationID)
}

// MarkObligationPaid advances the due date by the recurrence rule. One-time
// obligations deactivate. The payment itself is recorded separately as an
// expense by the caller.
func (s *Service) MarkObligationPaid(userID, obligationID int64) (*models.Obligation, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	o, err := s.repo.FindObligation(userID, obligationID)
	if err != nil {
		return nil, err
	}
	if !o.IsActive {
		return nil, &engine.ValidationError{Msg: "obligation is not active"}
	}

	now := s.now()
	o.LastPaidAt = &now
	if o.Recurrence == models.RecurrenceOneTime {
		o.IsActive = false
	} else {
		o.DueDate = o.NextDueDate()
	}
	if err := s.repo.UpdateObligationSchedule(o); err != nil {
		return nil, err
	}
	s.log.Infof("Obligation %q marked paid for user %d, next due %s", o.Name, userID, o.DueDate.Format("2006-01-02"))
	return o, nil
}

// Digest is what the proactive sweep needs to nudge one user: their risk
// and the nearest obligation whose bucket cannot cover it yet.
type Digest struct {
	User       *models.User
	Risk       *models.RiskResult
	Obligation *models.Obligation
	Funded     int64 // linked bucket balance, paise
}

// ProactiveDigest builds the reminder payload for one user, or returns nil
// when their risk level does not warrant a nudge.
func (s *Service) ProactiveDigest(userID int64) (*Digest, error) {
	risk, err := s.GetRisk(userID)
	if err != nil {
		return nil, err
	}
	if risk.Level != engine.RiskHigh && risk.Level != engine.RiskCritical {
		return nil, nil
	}

	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(userID)
	if err != nil {
		return nil, err
	}

	digest := &Digest{User: user, Risk: risk}
	for _, o := range snap.obligations {
		var balance int64
		for _, b := range snap.buckets {
			if b.Name == o.LinkedBucket {
				balance = b.CurrentBalance
				break
			}
		}
		if balance >= o.Amount {
			continue
		}
		if digest.Obligation == nil || o.DueDate.Before(digest.Obligation.DueDate) {
			digest.Obligation = o
			digest.Funded = balance
		}
	}
	return digest, nil
}
