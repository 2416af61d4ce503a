package service

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
