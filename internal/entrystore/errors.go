package entrystore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"guestbookAPI/internal/guestbook"
)

// translate maps Firestore gRPC status codes onto the guestbook error taxonomy.
// The original error stays in the message for logs.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var sentinel error
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		sentinel = guestbook.ErrAccessDenied
	case codes.FailedPrecondition:
		sentinel = guestbook.ErrIndexBuilding
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		sentinel = guestbook.ErrUnavailable
	case codes.InvalidArgument:
		sentinel = guestbook.ErrInvalidArgument
	case codes.NotFound:
		sentinel = guestbook.ErrNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, sentinel, err)
}
