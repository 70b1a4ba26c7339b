package driven

import (
	"context"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

// TokenIssuer defines the driven port that turns one organization's app
// credentials into an installation access token.
type TokenIssuer interface {
	// IssueInstallationToken signs a short-lived assertion and exchanges it.
	// Errors: model.ErrInvalidConfig, *model.KeyMaterialError,
	// *model.SigningError, *model.RemoteAuthError, *model.NetworkError.
	IssueInstallationToken(ctx context.Context, org model.OrganizationRecord) (model.AccessToken, error)
}
