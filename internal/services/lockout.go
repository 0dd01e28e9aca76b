package services

import "github.com/roadwatch/backend/internal/models"

// LockoutThreshold is the number of consecutive failed logins that blocks
// an account. There is no time decay: only a successful login or an
// administrative unblock resets the window.
const LockoutThreshold = 3

// BlockedReason is recorded in the state version opened by an automatic
// lockout.
const BlockedReason = "too many failed login attempts"

// ConsecutiveFailures counts failed attempts from the newest backwards,
// stopping at the first success. The slice must be ordered newest first.
func ConsecutiveFailures(attempts []models.LoginAttempt) int {
	count := 0
	for _, a := range attempts {
		if a.Succeeded {
			break
		}
		count++
	}
	return count
}
