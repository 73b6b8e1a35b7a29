package repo

import "errors"

var errNoDirectory = errors.New("store does not support user directory operations")
