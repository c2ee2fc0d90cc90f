package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	reminderWindowDays   = 5
	activationWindowDays = 7
	overdueGraceDays     = 1
)

// LifecycleOptions tunes notification dispatch during batch passes.
type LifecycleOptions struct {
	Concurrency int
	RatePerSec  float64
	FrontendURL string
}

// LifecycleService drives tracking records through the status machine and
// keeps the overdue ledger in step with closed instances.
type LifecycleService struct {
	db          *gorm.DB
	notifier    INotifier
	now         func() time.Time
	concurrency int
	limiter     *rate.Limiter
	frontendURL string
}

func NewLifecycleService(db *gorm.DB, notifier INotifier, opts LifecycleOptions) *LifecycleService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	return &LifecycleService{
		db:          db,
		notifier:    notifier,
		now:         utcNow,
		concurrency: opts.Concurrency,
		limiter:     rate.NewLimiter(limit, opts.Concurrency),
		frontendURL: opts.FrontendURL,
	}
}

// WithClock replaces the time source used to compute day windows.
func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// RunDailyTasks runs the reminder, activation and overdue passes in that
// order. A pass that cannot load its working set is reported and the next
// pass still runs.
func (s *LifecycleService) RunDailyTasks(ctx context.Context) (*JobResult, error) {
	result := newJobResult("daily_tasks", s.now())
	today := models.DateOnly(s.now())

	var errs []error
	if err := s.sendUpcomingReminders(ctx, today, result); err != nil {
		errs = append(errs, fmt.Errorf("reminder pass: %w", err))
	}
	if err := s.activatePending(ctx, today, result); err != nil {
		errs = append(errs, fmt.Errorf("activation pass: %w", err))
	}
	if err := s.markOverdue(ctx, today, result); err != nil {
		errs = append(errs, fmt.Errorf("overdue pass: %w", err))
	}

	result.finish(s.now())
	return result, errors.Join(errs...)
}

// sendUpcomingReminders emails users whose active records fall due within the reminder window.
func (s *LifecycleService) sendUpcomingReminders(ctx context.Context, today time.Time, result *JobResult) error {
	var records []models.UserFeedbackForm
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_date >= ? AND due_date < ?",
			models.TrackingStatusActive, today, models.AddDays(today, reminderWindowDays)).
		Order("due_date ASC").
		Find(&records).Error
	if err != nil {
		return fmt.Errorf("failed to find upcoming records: %w", err)
	}
	result.add(&result.Processed, len(records))

	users, err := s.recipients(ctx, records)
	if err != nil {
		return err
	}

	s.dispatch(ctx, records, func(ctx context.Context, rec *models.UserFeedbackForm) {
		user, ok := users[rec.UserID]
		if !ok || user.Email == "" {
			result.skip("reminder for record %s: user %s has no email", rec.ID, rec.UserID)
			return
		}
		if err := s.notifier.SendTemplatedEmail(ctx, user.Email, TemplateUpcomingReminder, s.emailFields(&user, rec)); err != nil {
			result.fail("reminder for record %s to %s failed: %v", rec.ID, user.Email, err)
			return
		}
		result.add(&result.Notified, 1)
	})
	return nil
}

// activatePending moves pending records due within the activation window to active.
func (s *LifecycleService) activatePending(ctx context.Context, today time.Time, result *JobResult) error {
	next, err := models.TrackingStatusPending.Transition(models.EventActivate)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Model(&models.UserFeedbackForm{}).
		Where("status = ? AND due_date >= ? AND due_date < ?",
			models.TrackingStatusPending, today, models.AddDays(today, activationWindowDays)).
		Updates(map[string]interface{}{"status": next, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("failed to activate pending records: %w", res.Error)
	}
	result.add(&result.Updated, int(res.RowsAffected))
	log.Printf("[daily_tasks] activated %d tracking records", res.RowsAffected)
	return nil
}

// markOverdue moves active records past the grace day to overdue and notifies
// each user whose record changed in this run.
func (s *LifecycleService) markOverdue(ctx context.Context, today time.Time, result *JobResult) error {
	var candidates []models.UserFeedbackForm
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", models.TrackingStatusActive, models.AddDays(today, -overdueGraceDays)).
		Order("due_date ASC").
		Find(&candidates).Error
	if err != nil {
		return fmt.Errorf("failed to find overdue records: %w", err)
	}
	result.add(&result.Processed, len(candidates))

	newlyOverdue := make([]models.UserFeedbackForm, 0, len(candidates))
	for i := range candidates {
		rec := candidates[i]
		next, err := rec.Status.Transition(models.EventMarkOverdue)
		if err != nil {
			result.fail("record %s: %v", rec.ID, err)
			continue
		}
		res := s.db.WithContext(ctx).
			Model(&models.UserFeedbackForm{}).
			Where("id = ? AND status = ?", rec.ID, rec.Status).
			Updates(map[string]interface{}{"status": next, "updated_at": s.now()})
		if res.Error != nil {
			result.fail("record %s: failed to mark overdue: %v", rec.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		rec.Status = next
		newlyOverdue = append(newlyOverdue, rec)
	}
	result.add(&result.Updated, len(newlyOverdue))

	users, err := s.recipients(ctx, newlyOverdue)
	if err != nil {
		return err
	}

	s.dispatch(ctx, newlyOverdue, func(ctx context.Context, rec *models.UserFeedbackForm) {
		user, ok := users[rec.UserID]
		if !ok || user.Email == "" {
			result.skip("overdue notice for record %s: user %s has no email", rec.ID, rec.UserID)
			return
		}
		if err := s.notifier.SendTemplatedEmail(ctx, user.Email, TemplateOverdueNotice, s.emailFields(&user, rec)); err != nil {
			result.fail("overdue notice for record %s to %s failed: %v", rec.ID, user.Email, err)
		} else {
			result.add(&result.Notified, 1)
		}

		if user.ChatKey == "" {
			return
		}
		text := fmt.Sprintf("Your %s feedback for %s was due %s and is now overdue.",
			rec.TemplateName, rec.ClientName, rec.DueDate.Format("2006-01-02"))
		sent, err := s.notifier.SendChatMessage(ctx, user.ChatKey, text)
		switch {
		case err != nil:
			result.fail("overdue chat for record %s failed: %v", rec.ID, err)
		case !sent:
			log.Printf("[daily_tasks] overdue chat for record %s not delivered", rec.ID)
		default:
			result.add(&result.Notified, 1)
		}
	})
	return nil
}

// dispatch runs send for every record with bounded concurrency and the shared
// rate limit. It returns once every send has finished.
func (s *LifecycleService) dispatch(ctx context.Context, records []models.UserFeedbackForm, send func(context.Context, *models.UserFeedbackForm)) {
	if len(records) == 0 || s.notifier == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range records {
		rec := &records[i]
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				log.Printf("[daily_tasks] notification for record %s dropped: %v", rec.ID, err)
				return nil
			}
			send(gctx, rec)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *LifecycleService) recipients(ctx context.Context, records []models.UserFeedbackForm) (map[uuid.UUID]models.User, error) {
	ids := make([]uuid.UUID, 0, len(records))
	seen := make(map[uuid.UUID]bool, len(records))
	for _, rec := range records {
		if !seen[rec.UserID] {
			seen[rec.UserID] = true
			ids = append(ids, rec.UserID)
		}
	}
	return usersByID(s.db.WithContext(ctx), ids)
}

func (s *LifecycleService) emailFields(user *models.User, rec *models.UserFeedbackForm) map[string]interface{} {
	return map[string]interface{}{
		"Name":         user.Name,
		"TemplateName": rec.TemplateName,
		"ClientName":   rec.ClientName,
		"DueDate":      rec.DueDate.Format("2006-01-02"),
		"Link":         fmt.Sprintf("%s/forms/%s", s.frontendURL, rec.ID),
	}
}

// UpdateOverdueFeedbackAssignments reconciles the overdue ledger against every
// assignment: a pair with a closed instance due before now loses its row, any
// other pair gets one (created, or its updated_at bumped). Rows whose
// assignment no longer exists are removed.
func (s *LifecycleService) UpdateOverdueFeedbackAssignments(ctx context.Context) (*JobResult, error) {
	now := s.now()
	result := newJobResult("overdue_assignments", now)
	db := s.db.WithContext(ctx)

	var assignments []models.UserTemplateAssignment
	if err := db.Find(&assignments).Error; err != nil {
		return result.finish(s.now()), fmt.Errorf("failed to list assignments: %w", err)
	}

	type pair struct{ user, template uuid.UUID }
	live := make(map[pair]bool, len(assignments))

	for _, a := range assignments {
		result.Processed++
		live[pair{a.UserID, a.TemplateID}] = true

		var closed int64
		err := db.Model(&models.FeedbackForm{}).
			Where("template_id = ? AND status = ? AND due_date < ?", a.TemplateID, models.FormStatusClosed, now).
			Count(&closed).Error
		if err != nil {
			result.fail("assignment %s: failed to count closed instances: %v", a.ID, err)
			continue
		}

		if closed > 0 {
			res := db.Where("user_id = ? AND template_id = ?", a.UserID, a.TemplateID).Delete(&models.OverdueFeedbackAssignment{})
			if res.Error != nil {
				result.fail("assignment %s: failed to clear ledger row: %v", a.ID, res.Error)
				continue
			}
			result.Deleted += int(res.RowsAffected)
			continue
		}

		if err := upsertOverdueRow(db, a.UserID, a.TemplateID, now, result); err != nil {
			result.fail("assignment %s: %v", a.ID, err)
		}
	}

	var rows []models.OverdueFeedbackAssignment
	if err := db.Find(&rows).Error; err != nil {
		return result.finish(s.now()), fmt.Errorf("failed to list ledger rows: %w", err)
	}
	for _, row := range rows {
		if live[pair{row.UserID, row.TemplateID}] {
			continue
		}
		if err := db.Delete(&models.OverdueFeedbackAssignment{}, "id = ?", row.ID).Error; err != nil {
			result.fail("ledger row %s: failed to delete orphan: %v", row.ID, err)
			continue
		}
		result.Deleted++
	}

	return result.finish(s.now()), nil
}

func upsertOverdueRow(db *gorm.DB, userID, templateID uuid.UUID, now time.Time, result *JobResult) error {
	var row models.OverdueFeedbackAssignment
	err := db.Where("user_id = ? AND template_id = ?", userID, templateID).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.OverdueFeedbackAssignment{UserID: userID, TemplateID: templateID}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create ledger row: %w", err)
		}
		result.Created++
	case err != nil:
		return fmt.Errorf("failed to load ledger row: %w", err)
	default:
		if err := db.Model(&row).Update("updated_at", now).Error; err != nil {
			return fmt.Errorf("failed to touch ledger row: %w", err)
		}
		result.Updated++
	}
	return nil
}

func (s *LifecycleService) ListOverdueAssignments(ctx context.Context) ([]*models.OverdueFeedbackAssignment, error) {
	var rows []*models.OverdueFeedbackAssignment
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list overdue assignments: %w", err)
	}
	return rows, nil
}

// UpdateFeedbackFormStatus changes the status of a feedback form instance.
func (s *LifecycleService) UpdateFeedbackFormStatus(ctx context.Context, formID uuid.UUID, status models.FormStatus) (*models.FeedbackForm, error) {
	if !status.Valid() {
		return nil, validationErrorf("unknown form status %q", status)
	}

	var form models.FeedbackForm
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&form, "id = ?", formID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFeedbackFormNotFound
			}
			return fmt.Errorf("failed to get feedback form: %w", err)
		}
		if err := form.Status.CanTransitionTo(status); err != nil {
			if errors.Is(err, models.ErrTerminalStatus) {
				return ErrAlreadyClosed
			}
			return validationErrorf("%v", err)
		}
		res := tx.Model(&models.FeedbackForm{}).
			Where("id = ? AND status = ?", form.ID, form.Status).
			Updates(map[string]interface{}{"status": status, "updated_at": s.now()})
		if res.Error != nil {
			return fmt.Errorf("failed to update feedback form: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		form.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &form, nil
}
