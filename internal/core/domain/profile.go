package domain

import (
	"strings"
	"time"
)

// PIN length bounds.
const (
	MinPINLength = 4
	MaxPINLength = 8
)

// Profile is the identity scope for all recorded answers.
type Profile struct {
	// ID is the stable numeric identifier.
	ID int64 `json:"id"`

	// Name is the unique display name.
	Name string `json:"name"`

	// PIN is an optional numeric code used as a low-security ownership proof.
	PIN string `json:"-"`

	// CreatedAt is when the profile was registered.
	CreatedAt time.Time `json:"created_at"`
}

// HasPIN reports whether the profile is protected by a PIN.
func (p *Profile) HasPIN() bool {
	return p.PIN != ""
}

// MatchPIN reports whether pin unlocks the profile.
// Profiles without a PIN accept any input.
func (p *Profile) MatchPIN(pin string) bool {
	if !p.HasPIN() {
		return true
	}
	return p.PIN == strings.TrimSpace(pin)
}

// ValidPIN reports whether pin is empty or a numeric code of acceptable length.
func ValidPIN(pin string) bool {
	if pin == "" {
		return true
	}
	if len(pin) < MinPINLength || len(pin) > MaxPINLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
