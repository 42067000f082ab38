package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested record was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNameRequired indicates the user name is missing or blank
	ErrNameRequired = errors.New("name is required")

	// ErrEmailInvalid indicates the email does not parse as an address
	ErrEmailInvalid = errors.New("email is not a valid address")

	// ErrEmptySearchTerm indicates a search was attempted with a blank term
	ErrEmptySearchTerm = errors.New("search term is required")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the caller exceeded its request quota
	ErrRateLimited = errors.New("rate limit exceeded")
)
