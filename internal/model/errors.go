package model

import "errors"

var (
	// ErrInvalidEmail is returned when a subscriber email fails validation.
	ErrInvalidEmail = errors.New("subscriber email is not valid")
	// ErrInvalidName is returned when a subscriber name fails validation.
	ErrInvalidName = errors.New("subscriber name is not valid")
	// ErrMissingTitle is returned when a newsletter issue has no title.
	ErrMissingTitle = errors.New("newsletter title is required")
	// ErrMissingContent is returned when a newsletter issue lacks a text or html body.
	ErrMissingContent = errors.New("newsletter content is required")
	// ErrTokenNotFound is returned when a confirmation token resolves to no subscriber.
	ErrTokenNotFound = errors.New("subscription token not found")
)
