// Package provider defines the adapter contract every mailbox backend
// implements, so the sync orchestrator never branches on provider type
// except to pick an adapter from the registry.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/unimail/unimail/pkg/models"
)

// Credentials are the already-decrypted secrets for one account. OAuth
// providers use the token pair, the IMAP/SMTP provider uses username and
// password. Decryption happens in the caller; adapters never see ciphertext.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Username     string
	Password     string
}

// OutgoingMessage is a provider-independent message to send.
type OutgoingMessage struct {
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	BodyText string
	BodyHTML string
	// InReplyTo is the Message-ID being replied to, if any.
	InReplyTo string
}

// Adapter is the common contract per provider.
type Adapter interface {
	// Type returns the provider this adapter serves.
	Type() models.Provider

	// FetchEmails retrieves up to maxResults most-recent inbox messages and
	// maps them onto the normalized shape. Individual unparseable messages
	// are skipped, not fatal.
	FetchEmails(ctx context.Context, creds Credentials, account *models.Account, maxResults int) ([]models.Email, error)

	// SendEmail composes and sends a provider-native request. It returns the
	// provider's message id when the API echoes one back, or a locally
	// generated placeholder when it does not (Microsoft Graph sendMail).
	SendEmail(ctx context.Context, creds Credentials, account *models.Account, msg *OutgoingMessage) (string, error)
}

// AuthError indicates missing, invalid or expired credentials for an account.
type AuthError struct {
	Provider models.Provider
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Provider, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Registry maps provider enum values to adapters. Adding a provider means
// registering one more adapter, not touching the orchestrator.
type Registry struct {
	adapters map[models.Provider]Adapter
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Type()] = a
	}
	return r
}

// Get returns the adapter for a provider.
func (r *Registry) Get(p models.Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", p)
	}
	return a, nil
}
