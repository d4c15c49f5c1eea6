package service

import (
	"context"
	"fmt"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/repository"
)

type userService struct {
	userRepo repository.UserRepository
	notifier *Notifier
}

func NewUserService(userRepo repository.UserRepository, notifier *Notifier) UserService {
	return &userService{userRepo: userRepo, notifier: notifier}
}

func (s *userService) GetUserProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateKYC records the outcome of a KYC review: the approval gate and the tier that drives
// deposit percentages. Deposits created afterwards use the new tier.
func (s *userService) UpdateKYC(ctx context.Context, actor Actor, userID string, tier domain.KYCStatus, approved bool) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may update KYC status", domain.ErrForbidden)
	}
	switch tier {
	case domain.KYCStatusUnverified, domain.KYCStatusVerified, domain.KYCStatusPremium:
	default:
		return nil, fmt.Errorf("%w: unknown KYC tier %q", domain.ErrValidation, tier)
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.KYCStatus = tier
	user.KYCApproved = approved
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	logger.Info("KYC status updated", "userID", userID, "tier", tier, "approved", approved, "adminID", actor.UserID)
	s.notifier.Notify(ctx, userID, "Verification updated",
		fmt.Sprintf("Your verification level is now %s.", tier),
		map[string]string{"type": "KYC_UPDATED", "kyc_status": string(tier)})
	return user, nil
}
