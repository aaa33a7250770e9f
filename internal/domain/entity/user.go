package entity

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts exactly the two known role names.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(s)) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// RoleOrDefault maps a stored role value to a Role, treating anything unknown as user.
func RoleOrDefault(s string) Role {
	if r, ok := ParseRole(s); ok {
		return r
	}
	return RoleUser
}

// User is the profile document at users/{uid}.
type User struct {
	ID          string    `json:"uid" firestore:"uid"`
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	Role        Role      `json:"role" firestore:"role"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	Active      bool      `json:"active" firestore:"active"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserInfo is the low-latency mirror of a profile kept in the realtime store.
type UserInfo struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

// Identity is the authenticated caller as reported by the identity provider.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

func (i *Identity) Authenticated() bool {
	return i != nil && i.UID != ""
}
