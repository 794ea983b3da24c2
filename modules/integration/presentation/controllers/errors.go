package controllers

import "errors"

var (
	errPlatformMismatch = errors.New("state was issued for another platform")
	errNotConfigured    = errors.New("oauth is not configured")
)

type providerError struct {
	code        string
	description string
}

func (e *providerError) Error() string {
	if e.description == "" {
		return "provider returned " + e.code
	}
	return "provider returned " + e.code + ": " + e.description
}
