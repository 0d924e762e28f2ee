// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized indicates the caller is not a privileged staff account.
var ErrUnauthorized = errors.New("unauthorized")
