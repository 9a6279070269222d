package accounts

// Role labels derived from the user record. Staff accounts exist so
// back-office tooling can tell them apart; there is no wider hierarchy.
const (
	RoleStaff  = "staff"
	RoleMember = "member"
)

// UserIdentity adapts a User into the Identity interface for token generation.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Username returns the user's username.
func (u UserIdentity) Username() string {
	if u.user == nil {
		return ""
	}
	return u.user.Username
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// Role returns the user's role as a string.
func (u UserIdentity) Role() string {
	if u.user == nil {
		return ""
	}
	if u.user.IsStaff {
		return RoleStaff
	}
	return RoleMember
}

// Active reports whether the underlying account may authenticate.
func (u UserIdentity) Active() bool {
	if u.user == nil {
		return false
	}
	return u.user.IsActive
}
