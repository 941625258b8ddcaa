package journal

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels classifying journal storage failures. Use errors.Is.
var (
	// ErrNotFound means the target path or object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermission means the backend refused access.
	ErrPermission = errors.New("permission denied")
	// ErrDiskFull means the backend is out of space.
	ErrDiskFull = errors.New("no space left on device")
	// ErrTimeout means the operation timed out.
	ErrTimeout = errors.New("operation timed out")
	// ErrAuth means credentials are missing or rejected.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork means the backend was unreachable.
	ErrNetwork = errors.New("network error")
)

// StorageError wraps a backend failure with its classification, keeping
// the original error in the chain for errors.As.
type StorageError struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("journal %s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is matches the classification sentinel.
func (e *StorageError) Is(target error) bool { return errors.Is(e.Kind, target) }

// WrapWriteError classifies a write failure. Nil passes through.
func WrapWriteError(err error, path string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classify(err), Op: "write", Path: path, Err: err}
}

// WrapReadError classifies a read failure. Nil passes through.
func WrapReadError(err error, path string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classify(err), Op: "read", Path: path, Err: err}
}

// WrapInitError classifies a dataset initialization failure. Nil passes
// through.
func WrapInitError(err error, dataset string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classify(err), Op: "init", Path: dataset, Err: err}
}

// classify maps an error onto a sentinel, by type where the backend
// provides one and by message pattern where it does not (the AWS SDK
// surfaces most S3 failures as coded strings).
func classify(err error) error {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "no such file", "does not exist", "not found", "nosuchkey", "404"):
		return ErrNotFound
	case containsAny(msg, "permission denied", "access denied", "forbidden", "403"):
		return ErrPermission
	case containsAny(msg, "no space left", "disk full", "quota exceeded"):
		return ErrDiskFull
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ErrTimeout
	case containsAny(msg, "credential", "invalidaccesskeyid", "signaturedoesnotmatch", "expiredtoken", "401", "unauthorized"):
		return ErrAuth
	case containsAny(msg, "connection refused", "no route to host", "network unreachable", "dial tcp", "i/o timeout"):
		return ErrNetwork
	default:
		return errors.New("storage error")
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
