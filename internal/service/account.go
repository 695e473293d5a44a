package service

import (
	"context"
	"coursecart/internal/model"
	"coursecart/internal/repository"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type AccountService interface {
	// ResolveProfile reads the caller's profile from the caller-scoped store
	// and falls back to the primary store only when the profile is absent there.
	ResolveProfile(ctx context.Context, userID, email string) (*model.Profile, error)
	ListProfiles(ctx context.Context, actorID string) ([]*model.Profile, error)
	SetRole(ctx context.Context, actorID, targetID string, role model.Role) (*model.Profile, error)
	DeleteProfile(ctx context.Context, actorID, targetID string) error
	PromoteWithInviteCode(ctx context.Context, code, email string) error
}

type accountServiceImpl struct {
	callerProfiles   repository.ProfileRepository
	elevatedProfiles repository.ProfileRepository
	inviteCode       string
	log              *slog.Logger
}

func NewAccountService(
	callerProfiles repository.ProfileRepository,
	elevatedProfiles repository.ProfileRepository,
	inviteCode string,
	log *slog.Logger,
) AccountService {
	return &accountServiceImpl{
		callerProfiles:   callerProfiles,
		elevatedProfiles: elevatedProfiles,
		inviteCode:       inviteCode,
		log:              log,
	}
}

func (s *accountServiceImpl) ResolveProfile(ctx context.Context, userID, email string) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	profile, err := s.callerProfiles.FindByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("find profile: %w", err)
	}

	profile, err = s.elevatedProfiles.FindByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("find profile with elevated lookup: %w", err)
	}

	s.log.InfoContext(ctx, "creating profile on first sign-in", "user_id", userID)
	profile, err = s.elevatedProfiles.Ensure(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return profile, nil
}

func (s *accountServiceImpl) ListProfiles(ctx context.Context, actorID string) ([]*model.Profile, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	profiles, err := s.elevatedProfiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (s *accountServiceImpl) SetRole(ctx context.Context, actorID, targetID string, role model.Role) (*model.Profile, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if targetID == "" || !role.Valid() {
		return nil, fmt.Errorf("%w: userId and a valid role are required", ErrValidation)
	}

	if err := s.elevatedProfiles.UpdateRole(ctx, targetID, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.log.InfoContext(ctx, "role changed", "actor_id", actorID, "user_id", targetID, "role", role)
	return s.elevatedProfiles.FindByID(ctx, targetID)
}

func (s *accountServiceImpl) DeleteProfile(ctx context.Context, actorID, targetID string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if targetID == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if targetID == actorID {
		return fmt.Errorf("%w: cannot delete your own account", ErrValidation)
	}

	if err := s.elevatedProfiles.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	s.log.InfoContext(ctx, "profile deleted", "actor_id", actorID, "user_id", targetID)
	return nil
}

func (s *accountServiceImpl) PromoteWithInviteCode(ctx context.Context, code, email string) error {
	email = strings.TrimSpace(email)
	if code == "" || email == "" {
		return fmt.Errorf("%w: code and email are required", ErrValidation)
	}
	if s.inviteCode == "" || subtle.ConstantTimeCompare([]byte(code), []byte(s.inviteCode)) != 1 {
		return ErrForbidden
	}

	profile, err := s.elevatedProfiles.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find profile by email: %w", err)
	}

	if err := s.elevatedProfiles.UpdateRole(ctx, profile.ID, model.RoleAdmin); err != nil {
		return fmt.Errorf("promote profile: %w", err)
	}

	s.log.InfoContext(ctx, "profile promoted with invite code", "user_id", profile.ID)
	return nil
}

func (s *accountServiceImpl) requireAdmin(ctx context.Context, actorID string) error {
	profile, err := s.ResolveProfile(ctx, actorID, "")
	if err != nil {
		return err
	}
	if profile.Role != model.RoleAdmin {
		return ErrForbidden
	}
	return nil
}
