// Package storage keeps uploaded images on local disk or in S3
package storage

import (
	"io"
	"time"
)

// Object is a stored image opened for reading. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}
