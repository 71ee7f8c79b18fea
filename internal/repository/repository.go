package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dan9191/gigfin-service/internal/models"
)

// Repository provides database operations over one shared *sql.DB. It holds
// no business rules: callers hand it fully computed deltas and it commits
// them atomically.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash, now).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = now.Format(time.RFC3339)
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash
		FROM users
		WHERE email = $1`
	err := r.db.QueryRow(query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash
		FROM users
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListUserIDs returns all user ids, for the proactive sweep.
func (r *Repository) ListUserIDs() ([]int64, error) {
	rows, err := r.db.Query(`SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateBuckets inserts a set of buckets for one user in a single
// transaction, used at onboarding.
func (r *Repository) CreateBuckets(buckets []*models.Bucket) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO buckets (user_id, name, display_name, priority, target_amount,
			current_balance, base_percent, is_reserved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id`
	now := time.Now().UTC()
	for _, b := range buckets {
		err := tx.QueryRow(query, b.UserID, b.Name, b.DisplayName, b.Priority,
			b.TargetAmount, b.CurrentBalance, b.BasePercent, b.IsReserved, now).Scan(&b.ID)
		if err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", b.Name, err)
		}
		b.CreatedAt = now
		b.UpdatedAt = now
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit buckets: %w", err)
	}
	return nil
}

// GetBuckets returns all buckets of one user ordered by priority.
func (r *Repository) GetBuckets(userID int64) ([]*models.Bucket, error) {
	query := `
		SELECT id, user_id, name, display_name, priority, target_amount,
			current_balance, base_percent, is_reserved, created_at, updated_at
		FROM buckets
		WHERE user_id = $1
		ORDER BY priority`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*models.Bucket
	for rows.Next() {
		b := &models.Bucket{}
		err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.DisplayName, &b.Priority,
			&b.TargetAmount, &b.CurrentBalance, &b.BasePercent, &b.IsReserved,
			&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// CreateObligation creates a new obligation
func (r *Repository) CreateObligation(o *models.Obligation) error {
	query := `
		INSERT INTO obligations (user_id, name, amount, due_date, recurrence,
			linked_bucket, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(query, o.UserID, o.Name, o.Amount, o.DueDate,
		o.Recurrence, o.LinkedBucket, o.IsActive, now).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to create obligation: %w", err)
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

// GetObligations returns all active obligations of one user.
func (r *Repository) GetObligations(userID int64) ([]*models.Obligation, error) {
	query := `
		SELECT id, user_id, name, amount, due_date, recurrence, linked_bucket,
			is_active, created_at, updated_at, last_paid_at
		FROM obligations
		WHERE user_id = $1 AND is_active
		ORDER BY due_date`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get obligations: %w", err)
	}
	defer rows.Close()

	var obligations []*models.Obligation
	for rows.Next() {
		o := &models.Obligation{}
		err := rows.Scan(&o.ID, &o.UserID, &o.Name, &o.Amount, &o.DueDate,
			&o.Recurrence, &o.LinkedBucket, &o.IsActive, &o.CreatedAt,
			&o.UpdatedAt, &o.LastPaidAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

// FindObligation retrieves one obligation scoped to its owner.
func (r *Repository) FindObligation(userID, obligationID int64) (*models.Obligation, error) {
	o := &models.Obligation{}
	query := `
		SELECT id, user_id, name, amount, due_date, recurrence, linked_bucket,
			is_active, created_at, updated_at, last_paid_at
		FROM obligations
		WHERE id = $1 AND user_id = $2`
	err := r.db.QueryRow(query, obligationID, userID).
		Scan(&o.ID, &o.UserID, &o.Name, &o.Amount, &o.DueDate, &o.Recurrence,
			&o.LinkedBucket, &o.IsActive, &o.CreatedAt, &o.UpdatedAt, &o.LastPaidAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("obligation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find obligation: %w", err)
	}
	return o, nil
}

// UpdateObligationSchedule persists a due-date advance after a payment.
func (r *Repository) UpdateObligationSchedule(o *models.Obligation) error {
	query := `
		UPDATE obligations
		SET due_date = $1, is_active = $2, last_paid_at = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6`
	_, err := r.db.Exec(query, o.DueDate, o.IsActive, o.LastPaidAt, time.Now().UTC(), o.ID, o.UserID)
	if err != nil {
		return fmt.Errorf("failed to update obligation: %w", err)
	}
	return nil
}

// DeleteObligation removes an obligation on user request.
func (r *Repository) DeleteObligation(userID, obligationID int64) error {
	res, err := r.db.Exec(`DELETE FROM obligations WHERE id = $1 AND user_id = $2`, obligationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete obligation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("obligation not found")
	}
	return nil
}

// GetIncomeSince returns income events earned at or after the cutoff.
func (r *Repository) GetIncomeSince(userID int64, since time.Time) ([]*models.IncomeEvent, error) {
	query := `
		SELECT id, user_id, amount, source, earned_at, recorded_at
		FROM income_events
		WHERE user_id = $1 AND earned_at >= $2
		ORDER BY earned_at`
	rows, err := r.db.Query(query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get income events: %w", err)
	}
	defer rows.Close()

	var events []*models.IncomeEvent
	for rows.Next() {
		e := &models.IncomeEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Source, &e.EarnedAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan income event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetExpensesSince returns expense events spent at or after the cutoff.
func (r *Repository) GetExpensesSince(userID int64, since time.Time) ([]*models.ExpenseEvent, error) {
	query := `
		SELECT id, user_id, amount, category, deductions, uncovered_amount, spent_at, recorded_at
		FROM expense_events
		WHERE user_id = $1 AND spent_at >= $2
		ORDER BY spent_at`
	rows, err := r.db.Query(query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense events: %w", err)
	}
	defer rows.Close()

	var events []*models.ExpenseEvent
	for rows.Next() {
		e := &models.ExpenseEvent{}
		var deductions []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &deductions, &e.Uncovered, &e.SpentAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense event: %w", err)
		}
		if len(deductions) > 0 {
			if err := json.Unmarshal(deductions, &e.Deductions); err != nil {
				return nil, fmt.Errorf("failed to decode deductions: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ApplyAllocation commits an income event and its bucket credits in one
// transaction. A failure leaves the ledger unchanged.
func (r *Repository) ApplyAllocation(event *models.IncomeEvent, deltas []models.BucketDelta) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, d := range deltas {
		res, err := tx.Exec(`
			UPDATE buckets
			SET current_balance = current_balance + $1, updated_at = $2, last_allocation_at = $2
			WHERE user_id = $3 AND name = $4`,
			d.Amount, now, event.UserID, d.BucketName)
		if err != nil {
			return fmt.Errorf("failed to credit bucket %q: %w", d.BucketName, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("bucket %q not found", d.BucketName)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO income_events (id, user_id, amount, source, earned_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.UserID, event.Amount, event.Source, event.EarnedAt, event.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to record income event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit allocation: %w", err)
	}
	return nil
}

// ApplyDeduction commits an expense event and its bucket withdrawals in one
// transaction. The balance guard in the UPDATE keeps a racing write from
// ever producing a negative balance.
func (r *Repository) ApplyDeduction(event *models.ExpenseEvent) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyWithdrawals(tx, event.UserID, event.Deductions); err != nil {
		return err
	}
	if err := insertExpense(tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deduction: %w", err)
	}
	return nil
}

// CreateAdvance inserts an approved advance and credits its principal into
// the named bucket, atomically.
func (r *Repository) CreateAdvance(adv *models.Advance, creditBucket string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO advances (id, user_id, principal, fee, total_repayment,
			reason, status, due_date, created_at, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		adv.ID, adv.UserID, adv.Principal, adv.Fee, adv.TotalRepayment,
		adv.Reason, adv.Status, adv.DueDate, adv.CreatedAt, adv.ApprovedAt)
	if err != nil {
		return fmt.Errorf("failed to create advance: %w", err)
	}

	res, err := tx.Exec(`
		UPDATE buckets
		SET current_balance = current_balance + $1, updated_at = $2
		WHERE user_id = $3 AND name = $4`,
		adv.Principal, time.Now().UTC(), adv.UserID, creditBucket)
	if err != nil {
		return fmt.Errorf("failed to credit bucket %q: %w", creditBucket, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bucket %q not found", creditBucket)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit advance: %w", err)
	}
	return nil
}

// GetAdvances returns all advances of one user, newest first.
func (r *Repository) GetAdvances(userID int64) ([]*models.Advance, error) {
	query := `
		SELECT id, user_id, principal, fee, total_repayment, reason, status,
			due_date, created_at, approved_at, repaid_at
		FROM advances
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get advances: %w", err)
	}
	defer rows.Close()

	var advances []*models.Advance
	for rows.Next() {
		a := &models.Advance{}
		err := rows.Scan(&a.ID, &a.UserID, &a.Principal, &a.Fee, &a.TotalRepayment,
			&a.Reason, &a.Status, &a.DueDate, &a.CreatedAt, &a.ApprovedAt, &a.RepaidAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advance: %w", err)
		}
		advances = append(advances, a)
	}
	return advances, rows.Err()
}

// FindAdvance retrieves one advance scoped to its owner.
func (r *Repository) FindAdvance(userID int64, advanceID string) (*models.Advance, error) {
	a := &models.Advance{}
	query := `
		SELECT id, user_id, principal, fee, total_repayment, reason, status,
			due_date, created_at, approved_at, repaid_at
		FROM advances
		WHERE id = $1 AND user_id = $2`
	err := r.db.QueryRow(query, advanceID, userID).
		Scan(&a.ID, &a.UserID, &a.Principal, &a.Fee, &a.TotalRepayment,
			&a.Reason, &a.Status, &a.DueDate, &a.CreatedAt, &a.ApprovedAt, &a.RepaidAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("advance not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find advance: %w", err)
	}
	return a, nil
}

// SettleAdvance commits a repayment: the cascade withdrawals, the repayment
// expense record, and the status flip to repaid, all in one transaction.
func (r *Repository) SettleAdvance(adv *models.Advance, expense *models.ExpenseEvent) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyWithdrawals(tx, expense.UserID, expense.Deductions); err != nil {
		return err
	}
	if err := insertExpense(tx, expense); err != nil {
		return err
	}

	res, err := tx.Exec(`
		UPDATE advances
		SET status = $1, repaid_at = $2
		WHERE id = $3 AND user_id = $4 AND status = $5`,
		adv.Status, adv.RepaidAt, adv.ID, adv.UserID, models.AdvanceApproved)
	if err != nil {
		return fmt.Errorf("failed to settle advance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("advance %s is not outstanding", adv.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit repayment: %w", err)
	}
	return nil
}

// CreateGoal inserts a savings goal.
func (r *Repository) CreateGoal(g *models.Goal) error {
	query := `
		INSERT INTO goals (id, user_id, name, target_amount, current_amount,
			target_date, monthly_contribution, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	now := time.Now().UTC()
	_, err := r.db.Exec(query, g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount,
		g.TargetDate, g.MonthlyContribution, g.Priority, g.Status, now)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	return nil
}

// GetGoals returns all goals of one user, highest priority first.
func (r *Repository) GetGoals(userID int64) ([]*models.Goal, error) {
	query := `
		SELECT id, user_id, name, target_amount, current_amount, target_date,
			monthly_contribution, priority, status, created_at, updated_at
		FROM goals
		WHERE user_id = $1
		ORDER BY priority DESC, created_at`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		g := &models.Goal{}
		err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
			&g.TargetDate, &g.MonthlyContribution, &g.Priority, &g.Status,
			&g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// FindGoal retrieves one goal scoped to its owner.
func (r *Repository) FindGoal(userID int64, goalID string) (*models.Goal, error) {
	g := &models.Goal{}
	query := `
		SELECT id, user_id, name, target_amount, current_amount, target_date,
			monthly_contribution, priority, status, created_at, updated_at
		FROM goals
		WHERE id = $1 AND user_id = $2`
	err := r.db.QueryRow(query, goalID, userID).
		Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
			&g.TargetDate, &g.MonthlyContribution, &g.Priority, &g.Status,
			&g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("goal not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find goal: %w", err)
	}
	return g, nil
}

// UpdateGoal persists a goal's mutable fields.
func (r *Repository) UpdateGoal(g *models.Goal) error {
	query := `
		UPDATE goals
		SET name = $1, target_amount = $2, current_amount = $3, target_date = $4,
			monthly_contribution = $5, priority = $6, status = $7, updated_at = $8
		WHERE id = $9 AND user_id = $10`
	res, err := r.db.Exec(query, g.Name, g.TargetAmount, g.CurrentAmount, g.TargetDate,
		g.MonthlyContribution, g.Priority, g.Status, time.Now().UTC(), g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal not found")
	}
	return nil
}

// DeleteGoal removes a goal on user request.
func (r *Repository) DeleteGoal(userID int64, goalID string) error {
	res, err := r.db.Exec(`DELETE FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal not found")
	}
	return nil
}

func applyWithdrawals(tx *sql.Tx, userID int64, deductions []models.BucketDeduction) error {
	now := time.Now().UTC()
	for _, d := range deductions {
		res, err := tx.Exec(`
			UPDATE buckets
			SET current_balance = current_balance - $1, updated_at = $2
			WHERE user_id = $3 AND name = $4 AND current_balance >= $1`,
			d.Amount, now, userID, d.BucketName)
		if err != nil {
			return fmt.Errorf("failed to debit bucket %q: %w", d.BucketName, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("bucket %q has insufficient balance for %d", d.BucketName, d.Amount)
		}
	}
	return nil
}

func insertExpense(tx *sql.Tx, event *models.ExpenseEvent) error {
	deductions, err := json.Marshal(event.Deductions)
	if err != nil {
		return fmt.Errorf("failed to encode deductions: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO expense_events (id, user_id, amount, category, deductions,
			uncovered_amount, spent_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.UserID, event.Amount, event.Category, deductions,
		event.Uncovered, event.SpentAt, event.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to record expense event: %w", err)
	}
	return nil
}
