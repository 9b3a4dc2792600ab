package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/auth"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/tenant"
	userrepo "github.com/bharatsonwane/team-orbit-sub001/internal/repository/port"
)

// TokenVerifier decodes a bearer credential into claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// BundleResolver hands out partition handles for an identity, platform
// partition first.
type BundleResolver interface {
	PlatformBundle(ctx context.Context) (*tenant.Bundle, error)
	AttachTenant(ctx context.Context, b *tenant.Bundle, tenantID int64) error
}

// UserRepositoryFactory binds the platform user repository to a handle.
type UserRepositoryFactory func(h *tenant.Handle) userrepo.UserRepository

// Identity is the verified caller.
type Identity struct {
	UserID   int64
	TenantID *int64
}

// Session is an authenticated identity plus its partition handles. The owner
// must call Bundle.Release when done.
type Session struct {
	Identity
	Bundle *tenant.Bundle
}

// TenantHandle returns the tenant partition, or ErrAuthorization for
// platform-only identities.
func (s *Session) TenantHandle() (*tenant.Handle, int64, error) {
	if s == nil || s.Bundle == nil || s.Bundle.Tenant == nil || s.TenantID == nil {
		return nil, 0, fmt.Errorf("%w: no tenant context", ErrAuthorization)
	}
	return s.Bundle.Tenant, *s.TenantID, nil
}

// AuthenticateUseCase turns a raw credential into a Session.
type AuthenticateUseCase struct {
	Verifier TokenVerifier
	Resolver BundleResolver
	// Users is optional; when nil the token alone establishes identity.
	Users UserRepositoryFactory
}

func NewAuthenticateUseCase(verifier TokenVerifier, resolver BundleResolver, users UserRepositoryFactory) *AuthenticateUseCase {
	return &AuthenticateUseCase{Verifier: verifier, Resolver: resolver, Users: users}
}

// Execute verifies credential, confirms the identity in the platform
// partition and only then resolves the tenant partition.
func (uc *AuthenticateUseCase) Execute(ctx context.Context, credential string) (*Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrMissingCredential
	}

	claims, err := uc.Verifier.Verify(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	bundle, err := uc.Resolver.PlatformBundle(ctx)
	if err != nil {
		return nil, err
	}

	if uc.Users != nil {
		if err := uc.confirm(ctx, bundle, claims); err != nil {
			bundle.Release()
			return nil, err
		}
	}
	if claims.TenantID != nil {
		if err := uc.Resolver.AttachTenant(ctx, bundle, *claims.TenantID); err != nil {
			bundle.Release()
			return nil, err
		}
	}

	return &Session{
		Identity: Identity{UserID: claims.UserID, TenantID: bundle.TenantID},
		Bundle:   bundle,
	}, nil
}

func (uc *AuthenticateUseCase) confirm(ctx context.Context, bundle *tenant.Bundle, claims *auth.Claims) error {
	user, err := uc.Users(bundle.Platform).FindByID(ctx, claims.UserID)
	if errors.Is(err, userrepo.ErrUserNotFound) {
		return fmt.Errorf("%w: unknown user %d", ErrInvalidCredential, claims.UserID)
	}
	if err != nil {
		return persistence(err)
	}
	if !user.IsActive {
		return fmt.Errorf("%w: user %d is inactive", ErrInvalidCredential, claims.UserID)
	}
	if !sameTenant(user.TenantID, claims.TenantID) {
		return fmt.Errorf("%w: tenant mismatch for user %d", ErrInvalidCredential, claims.UserID)
	}
	return nil
}

func sameTenant(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
