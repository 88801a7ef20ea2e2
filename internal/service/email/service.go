// Package email owns the outgoing-email lifecycle: validation, trigger
// registration with the external scheduler, and the PENDING/COMPLETED row
// state. No call here is retried automatically; every failure is returned
// to the caller for an explicit user-initiated re-attempt.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/google/uuid"

	"sonic/internal/model"
	"sonic/internal/mq"
	"sonic/internal/scheduler"
	"sonic/internal/template"
	"sonic/pkg/metrics"
)

const (
	// MinScheduleLead is the minimum gap between submit time and the
	// requested delivery time.
	MinScheduleLead = 2 * time.Minute
	// MaxPendingEmails caps the number of concurrently scheduled emails.
	// The count is read once when a schedule session opens and is not
	// revalidated at submit time.
	MaxPendingEmails = 25

	// unresolvedSubjectToken marks a subject whose lab field was never
	// filled in. Checked textually.
	unresolvedSubjectToken = "{LAB}"
)

// Validation errors, surfaced before any network call is made.
var (
	ErrMissingField          = errors.New("required field is missing")
	ErrDeliveryTooSoon       = errors.New("delivery time must be more than 2 minutes from now")
	ErrUnresolvedPlaceholder = errors.New("subject still contains the {LAB} placeholder")
	ErrPendingQuotaExceeded  = errors.New("scheduled email limit reached")
	ErrSetupIncomplete       = errors.New("template or resume missing")
	ErrNotMutable            = errors.New("email is no longer pending")
)

// Store is the relational email table.
type Store interface {
	Create(ctx context.Context, e *model.Email) (int, error)
	FindByTriggerID(ctx context.Context, triggerID string) (*model.Email, error)
	CountByStatus(ctx context.Context, status model.EmailStatus) (int, error)
	UpdateContent(ctx context.Context, triggerID, recipient, subject, content string) error
	DeleteByTriggerID(ctx context.Context, triggerID string) error
}

// Trigger is the external scheduler holding the dispatch jobs.
type Trigger interface {
	Register(ctx context.Context, job scheduler.Job) (string, error)
	DispatchNow(ctx context.Context, job scheduler.Job) error
	Update(ctx context.Context, triggerID, recipient, subject, body string) error
	Cancel(ctx context.Context, triggerID string) error
}

// Publisher emits lifecycle events onto the bus.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	store     Store
	trigger   Trigger
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store Store, trigger Trigger, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		trigger:   trigger,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ScheduleRequest carries every field of a CREATE or SEND action.
type ScheduleRequest struct {
	Name          string
	Recipient     string
	Subject       string
	Body          string
	SendAt        *time.Time
	AttachmentURL string
	University    model.University
	LabURL        string
}

// Session is the snapshot handed to a schedule form when it opens: the
// template split at the custom marker, the stored subject, the resume URL
// and the pending count the quota was checked against.
type Session struct {
	TemplateBefore string `json:"template_before"`
	TemplateAfter  string `json:"template_after"`
	Subject        string `json:"subject"`
	AttachmentURL  string `json:"attachment_url"`
	PendingCount   int    `json:"pending_count"`
}

// OpenSession gates a new schedule form. Both the template and the resume
// must exist, and the pending count, read once here, must not exceed
// the cap. This is the only place the cap is enforced.
func (s *Service) OpenSession(ctx context.Context, settings *model.Settings, resumeURL string) (*Session, error) {
	if settings == nil || settings.Template == "" || resumeURL == "" {
		return nil, ErrSetupIncomplete
	}

	pending, err := s.store.CountByStatus(ctx, model.EmailStatusPending)
	if err != nil {
		return nil, err
	}
	if pending > MaxPendingEmails {
		return nil, ErrPendingQuotaExceeded
	}

	before, after := template.SplitCustom(settings.Template)
	return &Session{
		TemplateBefore: before,
		TemplateAfter:  after,
		Subject:        settings.Subject,
		AttachmentURL:  resumeURL,
		PendingCount:   pending,
	}, nil
}

// Preview renders the full body for the preview stage from the stored
// template, the contact and the custom paragraph.
func (s *Service) Preview(settings *model.Settings, name string, university model.University, custom string) (string, error) {
	return template.Render(settings.Template, name, university, custom)
}

// Schedule validates a CREATE action, registers the dispatch trigger and
// inserts the PENDING row.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (*model.Email, error) {
	if err := s.validate(req, true); err != nil {
		metrics.IncrementEmailLifecycle("CREATE", "rejected")
		return nil, err
	}

	triggerID, err := s.trigger.Register(ctx, scheduler.Job{
		Recipient:     req.Recipient,
		Subject:       req.Subject,
		Body:          req.Body,
		AttachmentURL: req.AttachmentURL,
		SendAt:        req.SendAt,
	})
	if err != nil {
		metrics.IncrementEmailLifecycle("CREATE", "failed")
		return nil, fmt.Errorf("failed to register trigger: %w", err)
	}

	e := &model.Email{
		Name:       req.Name,
		Email:      req.Recipient,
		Subject:    req.Subject,
		Content:    req.Body,
		Status:     model.EmailStatusPending,
		TriggerID:  triggerID,
		SendAt:     req.SendAt,
		LabURL:     req.LabURL,
		University: req.University,
	}

	id, err := s.store.Create(ctx, e)
	if err != nil {
		metrics.IncrementEmailLifecycle("CREATE", "failed")
		return nil, err
	}
	e.ID = id

	// The trigger and the row already exist; the event is informational.
	// Failing the operation here would tell the caller to retry and
	// schedule a duplicate.
	if err := s.publisher.Publish(mq.RoutingKeyEmailScheduled, mq.EmailScheduledPayload{
		EventID:   uuid.NewString(),
		EmailID:   id,
		TriggerID: triggerID,
		Recipient: req.Recipient,
		SendAt:    *req.SendAt,
	}); err != nil {
		s.logger.Warn("Failed to publish scheduled event",
			zap.Int("email_id", id),
			zap.String("trigger_id", triggerID),
			zap.Error(err),
		)
	}

	s.logger.Info("Email scheduled",
		zap.Int("email_id", id),
		zap.String("trigger_id", triggerID),
		zap.Time("send_at", *req.SendAt),
	)
	metrics.IncrementEmailLifecycle("CREATE", "success")
	return e, nil
}

// SendNow validates a SEND action and dispatches immediately, inserting a
// COMPLETED-track row with no trigger. The confirmation gate lives in the
// form flow; by the time this runs the user has confirmed twice.
func (s *Service) SendNow(ctx context.Context, req ScheduleRequest) (*model.Email, error) {
	if err := s.validate(req, false); err != nil {
		metrics.IncrementEmailLifecycle("SEND", "rejected")
		return nil, err
	}

	if err := s.trigger.DispatchNow(ctx, scheduler.Job{
		Recipient:     req.Recipient,
		Subject:       req.Subject,
		Body:          req.Body,
		AttachmentURL: req.AttachmentURL,
	}); err != nil {
		metrics.IncrementEmailLifecycle("SEND", "failed")
		return nil, fmt.Errorf("failed to dispatch: %w", err)
	}

	sentAt := s.now()
	e := &model.Email{
		Name:       req.Name,
		Email:      req.Recipient,
		Subject:    req.Subject,
		Content:    req.Body,
		Status:     model.EmailStatusCompleted,
		SentAt:     &sentAt,
		LabURL:     req.LabURL,
		University: req.University,
	}

	id, err := s.store.Create(ctx, e)
	if err != nil {
		metrics.IncrementEmailLifecycle("SEND", "failed")
		return nil, err
	}
	e.ID = id

	s.logger.Info("Email sent immediately", zap.Int("email_id", id))
	metrics.IncrementEmailLifecycle("SEND", "success")
	return e, nil
}

// Update rewrites recipient, subject and body of a PENDING email, both in
// the scheduler's job and in the row. send_at is never touched.
func (s *Service) Update(ctx context.Context, triggerID, recipient, subject, body string) error {
	if triggerID == "" || recipient == "" || subject == "" || body == "" {
		metrics.IncrementEmailLifecycle("UPDATE", "rejected")
		return ErrMissingField
	}

	e, err := s.store.FindByTriggerID(ctx, triggerID)
	if err != nil {
		metrics.IncrementEmailLifecycle("UPDATE", "failed")
		return err
	}
	if !e.Status.Mutable() {
		metrics.IncrementEmailLifecycle("UPDATE", "rejected")
		return fmt.Errorf("cannot update email in status %s: %w", e.Status, ErrNotMutable)
	}

	if err := s.trigger.Update(ctx, triggerID, recipient, subject, body); err != nil {
		metrics.IncrementEmailLifecycle("UPDATE", "failed")
		return fmt.Errorf("failed to update trigger: %w", err)
	}

	if err := s.store.UpdateContent(ctx, triggerID, recipient, subject, body); err != nil {
		metrics.IncrementEmailLifecycle("UPDATE", "failed")
		return err
	}

	s.logger.Info("Email updated", zap.String("trigger_id", triggerID))
	metrics.IncrementEmailLifecycle("UPDATE", "success")
	return nil
}

// Cancel releases the external trigger of a PENDING email and removes the
// row.
func (s *Service) Cancel(ctx context.Context, triggerID string) error {
	if triggerID == "" {
		metrics.IncrementEmailLifecycle("DELETE", "rejected")
		return ErrMissingField
	}

	e, err := s.store.FindByTriggerID(ctx, triggerID)
	if err != nil {
		metrics.IncrementEmailLifecycle("DELETE", "failed")
		return err
	}
	if !e.Status.Mutable() {
		metrics.IncrementEmailLifecycle("DELETE", "rejected")
		return fmt.Errorf("cannot cancel email in status %s: %w", e.Status, ErrNotMutable)
	}

	if err := s.trigger.Cancel(ctx, triggerID); err != nil {
		metrics.IncrementEmailLifecycle("DELETE", "failed")
		return fmt.Errorf("failed to cancel trigger: %w", err)
	}

	if err := s.store.DeleteByTriggerID(ctx, triggerID); err != nil {
		metrics.IncrementEmailLifecycle("DELETE", "failed")
		return err
	}

	// Trigger released and row removed; the cancel has already happened.
	if err := s.publisher.Publish(mq.RoutingKeyEmailCancelled, mq.EmailCancelledPayload{
		EventID:   uuid.NewString(),
		EmailID:   e.ID,
		TriggerID: triggerID,
	}); err != nil {
		s.logger.Warn("Failed to publish cancelled event",
			zap.String("trigger_id", triggerID),
			zap.Error(err),
		)
	}

	s.logger.Info("Email cancelled", zap.String("trigger_id", triggerID))
	metrics.IncrementEmailLifecycle("DELETE", "success")
	return nil
}

func (s *Service) validate(req ScheduleRequest, scheduled bool) error {
	if req.Recipient == "" || req.Subject == "" || req.Body == "" || req.Name == "" {
		return ErrMissingField
	}

	if strings.Contains(req.Subject, unresolvedSubjectToken) {
		return ErrUnresolvedPlaceholder
	}

	if scheduled {
		if req.SendAt == nil {
			return ErrMissingField
		}
		// Accepted iff strictly after now+2m; exactly now+2m is rejected.
		if !req.SendAt.After(s.now().Add(MinScheduleLead)) {
			return ErrDeliveryTooSoon
		}
	}

	return nil
}
