package scheduler

import (
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/models"
	"github.com/Dan9191/gigfin-service/internal/service"
	"github.com/Dan9191/gigfin-service/internal/utils/email"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the daily proactive sweep: recompute every user's risk and
// email a reminder when an obligation is at risk of going unfunded. It never
// mutates the ledger; overdue advances are derived on read, not here.
type Scheduler struct {
	svc    *service.Service
	sender *email.Sender
	cfg    *config.Config
	log    *logrus.Logger
	cron   *cron.Cron
}

// NewScheduler creates the sweep scheduler
func NewScheduler(svc *service.Service, sender *email.Sender, cfg *config.Config, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		svc:    svc,
		sender: sender,
		cfg:    cfg,
		log:    log,
		cron:   cron.New(),
	}
}

// Start registers the sweep on the configured cron schedule.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("Risk sweep scheduled: %s", s.cfg.SweepSchedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep walks all users once. Failures for one user are logged and do not
// stop the sweep.
func (s *Scheduler) Sweep() {
	started := time.Now()
	userIDs, err := s.svc.ListUserIDs()
	if err != nil {
		s.log.Errorf("Risk sweep aborted: %v", err)
		return
	}

	notified := 0
	for _, userID := range userIDs {
		notified += s.sweepAdvances(userID)

		digest, err := s.svc.ProactiveDigest(userID)
		if err != nil {
			s.log.Errorf("Risk sweep failed for user %d: %v", userID, err)
			continue
		}
		if digest == nil || digest.Obligation == nil {
			continue
		}
		err = s.sender.SendObligationReminder(
			digest.User.Email, digest.User.Username,
			digest.Obligation.Name, digest.Obligation.DueDate,
			digest.Obligation.Amount, digest.Funded, digest.Risk.Level,
		)
		if err != nil {
			s.log.Errorf("Reminder for user %d not sent: %v", userID, err)
			continue
		}
		notified++
	}
	s.log.Infof("Risk sweep done: %d users, %d notified, took %s",
		len(userIDs), notified, time.Since(started).Round(time.Millisecond))
}

// sweepAdvances notices a user about advances that are overdue or due within
// a day, and returns how many notices went out.
func (s *Scheduler) sweepAdvances(userID int64) int {
	advances, err := s.svc.ListAdvances(userID)
	if err != nil {
		s.log.Errorf("Advance sweep failed for user %d: %v", userID, err)
		return 0
	}

	sent := 0
	var user *models.User
	for _, a := range advances {
		overdue := a.Status == models.AdvanceOverdue
		dueSoon := a.Status == models.AdvanceApproved && time.Until(a.DueDate) <= 24*time.Hour
		if !overdue && !dueSoon {
			continue
		}
		if user == nil {
			if user, err = s.svc.GetUser(userID); err != nil {
				s.log.Errorf("Advance sweep failed for user %d: %v", userID, err)
				return sent
			}
		}
		err := s.sender.SendAdvanceDueNotice(user.Email, user.Username, a.DueDate, a.TotalRepayment, overdue)
		if err != nil {
			s.log.Errorf("Advance notice for user %d not sent: %v", userID, err)
			continue
		}
		sent++
	}
	return sent
}
