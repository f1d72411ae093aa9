package profile

import "github.com/go-faster/errors"

var ErrNotFound = errors.New("profile not found")
