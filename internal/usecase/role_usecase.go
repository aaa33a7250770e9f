package usecase

import (
	"context"
	"strings"
	"time"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/stream"
)

// RoleUseCase is the only path that reads or changes a user's role. The document store
// is authoritative; the realtime mirror is written best-effort and never downgraded.
type RoleUseCase struct {
	userRepo         repository.UserRepository
	mirrorRepo       repository.UserMirrorRepository
	identity         IdentityResolver
	bootstrapAdmin   string
	resubscribeDelay time.Duration
}

// NewRoleUseCase builds the role model. bootstrapAdmin, when non-empty, is an email that
// is always treated as admin; leave it empty to disable the bypass.
func NewRoleUseCase(
	userRepo repository.UserRepository,
	mirrorRepo repository.UserMirrorRepository,
	identity IdentityResolver,
	bootstrapAdmin string,
	resubscribeDelay time.Duration,
) *RoleUseCase {
	if resubscribeDelay <= 0 {
		resubscribeDelay = 3 * time.Second
	}
	return &RoleUseCase{
		userRepo:         userRepo,
		mirrorRepo:       mirrorRepo,
		identity:         identity,
		bootstrapAdmin:   strings.ToLower(strings.TrimSpace(bootstrapAdmin)),
		resubscribeDelay: resubscribeDelay,
	}
}

func (uc *RoleUseCase) isBootstrap(email string) bool {
	return uc.bootstrapAdmin != "" && strings.EqualFold(strings.TrimSpace(email), uc.bootstrapAdmin)
}

// IsAdmin fails closed: any error resolving the caller or the profile means false.
func (uc *RoleUseCase) IsAdmin(ctx context.Context) bool {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return false
	}
	if uc.isBootstrap(caller.Email) {
		return true
	}

	user, err := uc.userRepo.GetByID(ctx, caller.UID)
	if err != nil {
		if !errors.IsNotFound(err) {
			logger.Warn("IsAdmin: role lookup for %s failed: %v", caller.UID, err)
		}
		return false
	}
	return user.IsAdmin()
}

// GetRole reads the stored role of userID, or of the caller when userID is empty.
// Anything missing or unreadable reads as user.
func (uc *RoleUseCase) GetRole(ctx context.Context, userID string) entity.Role {
	if userID == "" {
		caller, err := requireCaller(ctx, uc.identity)
		if err != nil {
			return entity.RoleUser
		}
		userID = caller.UID
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return entity.RoleUser
	}
	return entity.RoleOrDefault(string(user.Role))
}

func (uc *RoleUseCase) SetRoleByEmail(ctx context.Context, email, role string) error {
	if _, err := requireCaller(ctx, uc.identity); err != nil {
		return err
	}
	if !uc.IsAdmin(ctx) {
		return errors.Unauthorized("Only admins can change roles", nil)
	}

	newRole, ok := entity.ParseRole(role)
	if !ok {
		return errors.InvalidArgument("Role must be user or admin", nil)
	}

	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}

	if err := uc.userRepo.UpdateRole(ctx, user.ID, newRole); err != nil {
		logger.Error("SetRoleByEmail Error: %s: %v", user.ID, err)
		return err
	}

	if err := uc.mirrorRepo.Put(ctx, &entity.UserInfo{
		UID:         user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        newRole,
	}); err != nil {
		logger.Warn("SetRoleByEmail: mirror of %s not updated: %v", user.ID, err)
	}
	return nil
}

// EnsureUserExists creates the caller's profile on first sign-in. An existing profile is
// never written to, whatever its contents.
func (uc *RoleUseCase) EnsureUserExists(ctx context.Context) (bool, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return false, err
	}

	_, err = uc.userRepo.GetByID(ctx, caller.UID)
	if err == nil {
		return false, nil
	}
	if !errors.IsNotFound(err) {
		return false, err
	}

	role := entity.RoleUser
	if uc.isBootstrap(caller.Email) {
		role = entity.RoleAdmin
	}

	user := &entity.User{
		ID:          caller.UID,
		Email:       caller.Email,
		DisplayName: senderName(caller),
		Role:        role,
		CreatedAt:   now(),
		Active:      true,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, errors.CodeConflict) {
			// another session won the race
			return false, nil
		}
		logger.Error("EnsureUserExists Error: %s: %v", caller.UID, err)
		return false, err
	}

	uc.ReplicateUserInfo(ctx, user.ID, user.DisplayName, user.Email, user.Role)
	return true, nil
}

// ReplicateUserInfo mirrors profile fields into the realtime store. A stored admin role
// wins over a supplied user role. Failures are logged only.
func (uc *RoleUseCase) ReplicateUserInfo(ctx context.Context, userID, displayName, email string, role entity.Role) {
	if role != entity.RoleAdmin {
		role = entity.RoleUser
		if stored, err := uc.userRepo.GetByID(ctx, userID); err == nil && stored.IsAdmin() {
			role = entity.RoleAdmin
		}
	}

	if err := uc.mirrorRepo.Put(ctx, &entity.UserInfo{
		UID:         userID,
		DisplayName: displayName,
		Email:       email,
		Role:        role,
	}); err != nil {
		logger.Warn("ReplicateUserInfo: %s: %v", userID, err)
	}
}

// GetProfile returns the caller's stored profile.
func (uc *RoleUseCase) GetProfile(ctx context.Context) (*entity.User, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	return uc.userRepo.GetByID(ctx, caller.UID)
}

// ListUsers streams every profile. Admin only.
func (uc *RoleUseCase) ListUsers(ctx context.Context) (*stream.Stream[[]*entity.User], error) {
	if _, err := requireCaller(ctx, uc.identity); err != nil {
		return nil, err
	}
	if !uc.IsAdmin(ctx) {
		return nil, errors.Unauthorized("Only admins can list users", nil)
	}

	return keepAlive(ctx, "users", uc.resubscribeDelay,
		func(ctx context.Context) *stream.Stream[[]*entity.User] {
			return uc.userRepo.WatchAll(ctx)
		}, nil), nil
}

// requireAdmin is shared by the admin-only operations of other use cases.
func (uc *RoleUseCase) requireAdmin(ctx context.Context) (*entity.Identity, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	if !uc.IsAdmin(ctx) {
		return nil, errors.Unauthorized("Admin privileges required", nil)
	}
	return caller, nil
}
