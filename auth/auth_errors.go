package auth

import "errors"

var (
	CsrfMissingErr = errors.New("csrf token missing")
	CsrfInvalidErr = errors.New("csrf token invalid")
)
