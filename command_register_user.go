package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// VerificationEmailTemplate is the mail template reference for the
// registration OTP notification.
var VerificationEmailTemplate = "emails/email_verification_otp.html"

type RegisterUserMessage struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
	Password     string `json:"password"`
	UseHashid    bool
	OnResponse   func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserResponse carries the new account identifier the caller
// needs for the verification step.
type RegisterUserResponse struct {
	User      *User
	EmailOTP  string
	MobileOTP string
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	activity ActivitySink
	logger   Logger
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		mailer:   noopMailer{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithMailer sets the transport used to dispatch the email OTP.
func (h *RegisterUserHandler) WithMailer(mailer Mailer) *RegisterUserHandler {
	h.mailer = normalizeMailer(mailer)
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	resp := &RegisterUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// mobile before email, matching the original flow: the mobile
		// collision is reported even when the email collides too
		if exists, err := h.repo.Users().MobileExistsTx(ctx, tx, event.MobileNumber); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for duplicate mobile number")
		} else if exists {
			return ErrDuplicateMobile
		}

		if exists, err := h.repo.Users().EmailExistsTx(ctx, tx, event.Email); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for duplicate email")
		} else if exists {
			return ErrDuplicateEmail
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.MobileNumber = event.MobileNumber
		user.Username = getUsername(event.Username, event.Email)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		emailOTP, err := GenerateOTP()
		if err != nil {
			return err
		}

		mobileOTP, err := GenerateOTP()
		if err != nil {
			return err
		}

		if err := h.repo.Users().StoreOTPsTx(ctx, tx, user.ID, emailOTP, mobileOTP); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification codes")
		}

		user.EmailOTP = &emailOTP
		user.MobileOTP = &mobileOTP

		resp.User = user
		resp.EmailOTP = emailOTP
		resp.MobileOTP = mobileOTP

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.dispatchOTPs(ctx, resp)
	h.recordActivity(ctx, resp.User)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RegisterUserHandler) dispatchOTPs(ctx context.Context, resp *RegisterUserResponse) {
	job := MailJob{
		Subject:    "Email Verification OTP",
		Recipients: []string{resp.User.Email},
		Template:   VerificationEmailTemplate,
		Data: map[string]any{
			"otp": resp.EmailOTP,
		},
	}

	go func() {
		if err := h.mailer.Enqueue(context.WithoutCancel(ctx), job); err != nil {
			h.logger.Error("verification mail dispatch error: %v", err)
		}
	}()

	// SMS delivery is a collaborator we do not have; the code goes to
	// the log so development flows can complete verification.
	h.logger.Info("Mobile OTP for %s: %s", resp.User.MobileNumber, resp.MobileOTP)
}

func (h *RegisterUserHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during registration: %v", err)
	}
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
