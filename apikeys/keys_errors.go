package apikeys

import "errors"

var (
	KeyNotFoundErr    = errors.New("api key not found")
	KeyInactiveErr    = errors.New("api key inactive")
	KeyExpiredErr     = errors.New("api key expired")
	InvalidKeyNameErr = errors.New("invalid api key name")
)
