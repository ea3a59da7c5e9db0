package identity

import "errors"

var (
	MissingCredentialErr = errors.New("missing bearer credential")
	InvalidCredentialErr = errors.New("invalid credential")
	TimeoutErr           = errors.New("identity provider timeout")
)
