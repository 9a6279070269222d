package accounts

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// GetRouterSession recovers the session stored by the protected route
// middleware under the given context key.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	cookie := c.Locals(key)
	if cookie == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := cookie.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromAuthClaims(claims)
}

func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {

	controller := NewAccountController(opts...)

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Post(controller.Routes.Verify, controller.VerifyAccount).
		SetName("verify.post")

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Post(fmt.Sprintf("%s/confirm", controller.Routes.PasswordReset), controller.PasswordResetExecute).
		SetName("pwd-reset-do.post")
}

type AccountControllerRoutes struct {
	Login         string
	Logout        string
	Register      string
	Verify        string
	PasswordReset string
}

type AccountController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Reset        PasswordResetService
	Mailer       Mailer
	Activity     ActivitySink
	Tokens       TokenService
	Routes       *AccountControllerRoutes
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AccountControllerRoutes{
			Login:         "/login",
			Logout:        "/logout",
			Register:      "/register",
			Verify:        "/verify",
			PasswordReset: "/password-reset",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in account controller...")
	}

	if c.Reset == nil {
		panic("Missing PasswordResetService in account controller...")
	}

	return c
}

// WithControllerRepo sets the repository manager.
func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

// WithControllerAuther sets the HTTP authenticator.
func WithControllerAuther(auther HTTPAuthenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

// WithControllerReset sets the password reset service.
func WithControllerReset(reset PasswordResetService) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Reset = reset
		return c
	}
}

// WithControllerMailer sets the mail transport used by handlers.
func WithControllerMailer(mailer Mailer) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Mailer = normalizeMailer(mailer)
		return c
	}
}

// WithControllerActivitySink sets the activity sink used by handlers.
func WithControllerActivitySink(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

// WithControllerTokens sets the token service used to mint session
// tokens after verification.
func WithControllerTokens(tokens TokenService) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Tokens = tokens
		return c
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug toggles payload dumps.
func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the session should outlive the default
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AccountController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "Authentication Error",
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *AccountController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

// RegistrationCreatePayload is the registration payload
type RegistrationCreatePayload struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	MobileNumber    string `form:"mobile_number" json:"mobile_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.MobileNumber, validation.Required, validation.Length(3, 20)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	var res *RegisterUserResponse

	req := RegisterUserMessage{
		Username:     payload.Username,
		Email:        payload.Email,
		MobileNumber: payload.MobileNumber,
		Password:     payload.Password,
		OnResponse: func(resp *RegisterUserResponse) {
			res = resp
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo).
		WithMailer(a.Mailer).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: %v", err)
		return a.renderRichError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("=======================")
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"user_id": res.User.ID.String(),
		"message": "User registered. Check your email and mobile for verification codes.",
	})
}

// VerifyAccountPayload carries the verification code
type VerifyAccountPayload struct {
	UserID string `form:"user_id" json:"user_id"`
	Code   string `form:"code" json:"code"`
}

// Validate will validate the payload
func (r VerifyAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, is.UUID),
		validation.Field(&r.Code, validation.Required, validation.Length(OTPLength, OTPLength), is.Digit),
	)
}

func (a *AccountController) VerifyAccount(ctx router.Context) error {
	payload := new(VerifyAccountPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("verify account parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	var res *VerifyAccountResponse

	req := VerifyAccountMessage{
		UserID: payload.UserID,
		Code:   payload.Code,
		OnResponse: func(resp *VerifyAccountResponse) {
			res = resp
		},
	}

	verifyAccount := NewVerifyAccountHandler(a.Repo).
		WithTokenService(a.Tokens).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := verifyAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("verify account error: %v", err)
		return a.renderRichError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Account verified.",
		"token":   res.SessionToken,
	})
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
	Stage string `form:"stage" json:"stage"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Stage,
			validation.Required,
			validation.In(
				ResetInit,
			),
		),
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AccountController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	var res *InitializePasswordResetResponse

	req := InitializePasswordResetMessage{
		Stage: payload.Stage,
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Reset).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset error: %v", err)
		return a.renderRichError(ctx, err)
	}

	if a.Debug {
		fmt.Println("================")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("================")
	}

	// identical body for known and unknown emails
	return ctx.JSON(router.StatusOK, map[string]any{
		"stage":   res.Stage,
		"message": "If the account exists, a reset notification was sent.",
	})
}

// PasswordResetVerifyPayload holds values for password reset
type PasswordResetVerifyPayload struct {
	Stage           string `form:"stage" json:"stage"`
	Identifier      string `form:"identifier" json:"identifier"`
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetVerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Stage,
			validation.Required,
			validation.In(
				ChangingPassword,
			),
		),
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Token, validation.Required),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountController) PasswordResetExecute(ctx router.Context) error {
	payload := new(PasswordResetVerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset finalize parse payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset finalize validate payload: %v", err)
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	input := FinalizePasswordResetMessage{
		Identifier: payload.Identifier,
		Token:      payload.Token,
		Password:   payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Reset).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		return a.renderRichError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"stage":   ChangeFinalized,
		"message": "Password updated.",
	})
}

// renderRichError maps domain error categories onto HTTP statuses.
func (a *AccountController) renderRichError(ctx router.Context, err error) error {
	status, message := richErrorStatus(err)
	return ctx.JSON(status, map[string]string{
		"error": message,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verr validation.Errors
	if errors.As(err, &verr) {
		for field, ferr := range verr {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	status, message := richErrorStatus(err)
	return c.JSON(status, map[string]string{
		"error": message,
	})
}
