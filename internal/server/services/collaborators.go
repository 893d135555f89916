package services

import "context"

// Notifier delivers the verification link for a freshly issued token.
// Delivery failures are logged by the caller and never fail the triggering
// operation.
type Notifier interface {
	SendVerificationLink(ctx context.Context, email, token string) error
}

// AvatarPipeline normalizes an uploaded image to the fixed avatar dimension.
// The call is synchronous and blocking; codec details stay behind it.
type AvatarPipeline interface {
	Normalize(data []byte) ([]byte, error)
}

// ObjectStore persists a binary asset under a key and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
