package adplatform

import (
	"context"
	"fmt"
	"strings"

	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
)

// StaticCredentials resolves every owner and account to one configured
// token. Per-account tokens override the default.
type StaticCredentials struct {
	Token    string
	Accounts map[string]string
}

func (s StaticCredentials) ResolveCredential(_ context.Context, ownerID string, adAccountID string) (string, error) {
	account := strings.TrimPrefix(strings.TrimSpace(adAccountID), "act_")
	if token := strings.TrimSpace(s.Accounts[account]); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(s.Token); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("%w: no token for account %s (owner %s)", domainerrors.ErrCredentialUnavailable, account, ownerID)
}
