package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hotelops/console/internal/core/domain"
)

// Server error codes the classifier recognises.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
	codeNamespaceNotFound    = 26
	codeAtlasUnauthorized    = 8000
)

// classify wraps a driver error into the domain failure taxonomy, keeping the
// original error in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		switch {
		case se.HasErrorCode(codeUnauthorized),
			se.HasErrorCode(codeAuthenticationFailed),
			se.HasErrorCode(codeAtlasUnauthorized):
			return fmt.Errorf("%s: %w: %w", op, domain.ErrPermissionDenied, err)
		case se.HasErrorCode(codeNamespaceNotFound):
			return fmt.Errorf("%s: %w: %w", op, domain.ErrSchemaMissing, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrTransport, err)
}
