// Package domain contains core concepts of the chat system.
// This file defines User entities. No runtime, network, or UI logic
// should be added here.
package domain

import "time"

// User is an account known to the relay. PasswordHash is the encoded
// argon2id string and never leaves the service layer.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Bio          string
	ProfilePic   string
	CreatedAt    time.Time
}
