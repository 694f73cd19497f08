package domain

import "errors"

var ErrNotExist = errors.New("does not exist")
