// Package accounts implements the user-account lifecycle for a web
// application: registration with email and mobile OTP verification,
// login/logout on signed session tokens, and password recovery.
//
// Password recovery:
//   - Two interchangeable PasswordResetService implementations exist. The
//     database variant persists an opaque single-use Token per
//     (user, token type) pair with a fixed 20 minute validity window. The
//     signed variant issues stateless tokens whose signing key is derived
//     from the user's credential state, so an outstanding token dies as
//     soon as the password changes, without a stored record. Select one
//     through Config.GetPasswordResetVariant.
//
// Verification:
//   - Registration stores independent email and mobile OTPs on the user
//     record. VerifyAccount accepts a code matching either channel and
//     marks both channels verified in one step; the OTP fields are
//     cleared on success so codes are single use.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     command handlers to describe login, verification, and password
//     reset events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
package accounts
