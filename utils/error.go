package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var ErrLockNotObtained = errors.New("resource is locked by another request")
