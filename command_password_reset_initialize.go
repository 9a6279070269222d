package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// PasswordResetStep step on password reset
type PasswordResetStep = string

const (
	// ResetUnknown is the unknown status
	ResetUnknown PasswordResetStep = "unknown"
	// ResetInit is the initial step
	ResetInit PasswordResetStep = "show-reset"
	// AccountVerification notification sent
	AccountVerification PasswordResetStep = "email-sent"
	// ChangingPassword user will change password
	ChangingPassword PasswordResetStep = "change-password"
	// ChangeFinalized processing change
	ChangeFinalized PasswordResetStep = "password-changed"
)

type InitializePasswordResetMessage struct {
	Stage      string `json:"stage" doc:"Password reset stage."`
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Customer email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Issue   *ResetIssue
	Stage   string
	Success bool
}

type InitializePasswordResetHandler struct {
	service  PasswordResetService
	activity ActivitySink
	logger   Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(service PasswordResetService) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		service:  service,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit reset request events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if event.Stage != ResetInit {
		return goerrors.New("unknown or invalid stage for password reset initialization", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"stage": event.Stage})
	}

	issue, err := h.service.Initialize(ctx, event.Email)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	// requests for unknown emails still report success; the response
	// shape must not reveal whether the address exists
	h.recordActivity(ctx, event.Email, issue)

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			Issue:   issue,
			Stage:   AccountVerification,
			Success: true,
		})
	}

	return nil
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, email string, issue *ResetIssue) {
	event := ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		Actor:     ActorRef{Type: "user"},
		Metadata: map[string]any{
			"email":  NormalizeEmail(email),
			"issued": issue != nil && issue.Issued,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during password reset request: %v", err)
	}
}
