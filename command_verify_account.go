package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyAccountMessage struct {
	UserID     string `json:"user_id"`
	Code       string `json:"code"`
	OnResponse func(resp *VerifyAccountResponse)
}

func (e VerifyAccountMessage) Type() string { return "user.verify_account" }

// VerifyAccountResponse reports the outcome plus a session token so the
// freshly verified user is logged in without a second round trip.
type VerifyAccountResponse struct {
	User         *User
	SessionToken string
}

// VerifyAccountHandler checks an entered code against both stored OTPs.
// One correct code from either channel verifies both flags at once and
// clears both codes; which channel was actually proven is not recorded.
type VerifyAccountHandler struct {
	repo     RepositoryManager
	tokens   TokenService
	activity ActivitySink
	logger   Logger
}

// NewVerifyAccountHandler creates a handler with sane defaults. The
// TokenService is optional; without one no session token is issued.
func NewVerifyAccountHandler(repo RepositoryManager) *VerifyAccountHandler {
	return &VerifyAccountHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithTokenService sets the service used to mint the session token.
func (h *VerifyAccountHandler) WithTokenService(tokens TokenService) *VerifyAccountHandler {
	h.tokens = tokens
	return h
}

// WithActivitySink sets the sink used to emit verification events.
func (h *VerifyAccountHandler) WithActivitySink(sink ActivitySink) *VerifyAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *VerifyAccountHandler) WithLogger(logger Logger) *VerifyAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyAccountHandler) Execute(ctx context.Context, event VerifyAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyAccountHandler) execute(ctx context.Context, event VerifyAccountMessage) error {
	resp := &VerifyAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Code == "" {
		return ErrMissingCode
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for verification")
		}

		if !user.MatchesOTP(event.Code) {
			return ErrInvalidCode
		}

		if err := h.repo.Users().MarkVerifiedTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark user verified")
		}

		user.EmailVerified = true
		user.MobileVerified = true
		user.EmailOTP = nil
		user.MobileOTP = nil
		resp.User = user

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account verification failed")
	}

	if h.tokens != nil {
		token, err := h.tokens.Generate(NewIdentityFromUser(resp.User))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to begin session for verified user")
		}
		resp.SessionToken = token
	}

	h.recordActivity(ctx, resp.User)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *VerifyAccountHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventAccountVerified,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during verification: %v", err)
	}
}
