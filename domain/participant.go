// Package domain contains core concepts of the chat system.
// This file defines user identities as handed over by the auth collaborator.
// No runtime, network, or UI logic should be added here.
package domain

// UserID is the opaque identity assigned by the auth collaborator.
// The core never generates one, it only uses it as a registry key.
type UserID string

func (u UserID) String() string { return string(u) }

// AuthUser is what the auth collaborator supplies about the local user.
type AuthUser struct {
	ID          UserID `json:"id" validate:"required"`
	DisplayName string `json:"fullName"`
	ProfilePic  string `json:"profilePic,omitempty"`
}
