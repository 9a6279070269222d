package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Identifier string `json:"identifier" doc:"Account email or encoded user id, depending on the reset variant"`
	Token      string `json:"token" doc:"Reset token"`
	Password   string `json:"password" doc:"New password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

type FinalizePasswordResetHandler struct {
	service  PasswordResetService
	activity ActivitySink
	logger   Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(service PasswordResetService) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		service:  service,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	credential := ResetCredential{
		Identifier: event.Identifier,
		Token:      event.Token,
	}

	if err := h.service.Finalize(ctx, credential, event.Password); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.recordActivity(ctx, event.Identifier)

	return nil
}

func (h *FinalizePasswordResetHandler) recordActivity(ctx context.Context, identifier string) {
	event := ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     ActorRef{Type: "user"},
		Metadata: map[string]any{
			"identifier": identifier,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during password reset: %v", err)
	}
}
