package repository

import (
	"errors"
	"fmt"
)

// Storage error taxonomy. Callers classify with errors.Is; the wrapped driver
// error stays available for logging.
var (
	ErrStorageRead  = errors.New("storage read failed")
	ErrStorageWrite = errors.New("storage write failed")

	ErrRemoteFetch   = errors.New("remote fetch failed")
	ErrRemoteTimeout = errors.New("remote fetch timed out")
)

func storageRead(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageRead, op, err)
}

func storageWrite(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageWrite, op, err)
}
