// Package storage is the object-store capability for candidate resumes.
// Files are encrypted before upload, so the bucket only holds ciphertext.
package storage

import (
	"context"
	"time"
)

// Object describes a stored resume.
type Object struct {
	Key string
	URL string
}

// ResumeStore is the store/delete capability consumed by the application
// service.
type ResumeStore interface {
	Store(ctx context.Context, data []byte, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// presignTTL bounds how long a resume download link stays valid.
const presignTTL = 15 * time.Minute
