// Package model defines domain models and data structures.
package model

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 256

// Characters that must not appear in a subscriber name.
const forbiddenNameCharacters = `/()"<>\{}`

// SubscriberEmail is a validated subscriber email address. The zero value is
// not valid; instances are only obtained through ParseSubscriberEmail.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail validates a raw email address.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberEmail{}, fmt.Errorf("%w: empty address", ErrInvalidEmail)
	}

	if !strings.Contains(raw, "@") {
		return SubscriberEmail{}, fmt.Errorf("%w: missing @", ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return SubscriberEmail{}, fmt.Errorf("%w: malformed address", ErrInvalidEmail)
	}

	return SubscriberEmail{value: raw}, nil
}

// String returns the underlying address.
func (e SubscriberEmail) String() string {
	return e.value
}

// SubscriberName is a validated subscriber display name. The zero value is
// not valid; instances are only obtained through ParseSubscriberName.
type SubscriberName struct {
	value string
}

// ParseSubscriberName validates a raw subscriber name. The stored value keeps
// the original spelling; trimming only applies to the emptiness check.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, fmt.Errorf("%w: empty name", ErrInvalidName)
	}

	if utf8.RuneCountInString(raw) > maxNameLength {
		return SubscriberName{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxNameLength)
	}

	if strings.ContainsAny(raw, forbiddenNameCharacters) {
		return SubscriberName{}, fmt.Errorf("%w: contains a forbidden character", ErrInvalidName)
	}

	return SubscriberName{value: raw}, nil
}

// String returns the underlying name.
func (n SubscriberName) String() string {
	return n.value
}

// NewSubscriber pairs a validated email and name for a registration attempt.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// ParseNewSubscriber builds a NewSubscriber from raw request input. The email
// is checked before the name, so callers see email errors first when both
// fields are invalid.
func ParseNewSubscriber(rawEmail, rawName string) (NewSubscriber, error) {
	email, err := ParseSubscriberEmail(rawEmail)
	if err != nil {
		return NewSubscriber{}, err
	}

	name, err := ParseSubscriberName(rawName)
	if err != nil {
		return NewSubscriber{}, err
	}

	return NewSubscriber{Email: email, Name: name}, nil
}
