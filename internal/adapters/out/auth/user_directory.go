package auth

import (
	"context"
	"errors"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"

	sessiondom "ayyooya/internal/domain/session"
)

var ErrUserNotFound = errors.New("auth: user not found")

type userAdmin interface {
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, claims map[string]interface{}) error
}

// UserDirectory reads and updates accounts through the Admin SDK.
type UserDirectory struct {
	client userAdmin
}

func NewUserDirectory(client *fbauth.Client) *UserDirectory {
	if client == nil {
		return &UserDirectory{}
	}
	return &UserDirectory{client: client}
}

// EmailOf returns the account email for uid.
func (d *UserDirectory) EmailOf(ctx context.Context, uid string) (string, error) {
	if d == nil || d.client == nil {
		return "", errors.New("auth: user directory not configured")
	}
	u, err := d.client.GetUser(ctx, strings.TrimSpace(uid))
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if u == nil || u.UserInfo == nil {
		return "", ErrUserNotFound
	}
	return strings.TrimSpace(u.Email), nil
}

// SetRole writes the role claim. It takes effect on the user's next
// token refresh.
func (d *UserDirectory) SetRole(ctx context.Context, uid string, role sessiondom.Role) error {
	if d == nil || d.client == nil {
		return errors.New("auth: user directory not configured")
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return ErrUserNotFound
	}
	if role != sessiondom.RoleAdmin {
		role = sessiondom.RoleUser
	}
	err := d.client.SetCustomUserClaims(ctx, uid, map[string]interface{}{RoleClaim: string(role)})
	if fbauth.IsUserNotFound(err) {
		return ErrUserNotFound
	}
	return err
}
