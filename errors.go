package uploadkit

import "errors"

// Sentinels matched with errors.Is. Drivers return them wrapped in a
// *PathError so callers also learn the operation and path involved.
var (
	ErrNotExist     = errors.New("file does not exist")
	ErrExist        = errors.New("file already exists")
	ErrPermission   = errors.New("permission denied")
	ErrNotDir       = errors.New("not a directory")
	ErrIsDir        = errors.New("is a directory")
	ErrInvalidName  = errors.New("invalid name")
	ErrNotSupported = errors.New("operation not supported")
	ErrInvalidSize  = errors.New("invalid file size")
	ErrNoSpace      = errors.New("no space left on device")
)

// PathError carries the failed operation, the path it was applied to,
// and the underlying cause, in the manner of fs.PathError.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether err says a file or directory is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether err says a file or directory already exists.
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsPermission reports whether err says access was denied.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

// IsNotSupported reports whether err says the backend does not
// implement the requested operation.
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}
