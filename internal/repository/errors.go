package repository

import "errors"

var ErrAccountNotFound = errors.New("account not found")
