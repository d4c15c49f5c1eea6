package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rentalhub-backend/internal/domain"
	"rentalhub-backend/internal/logger"
	"rentalhub-backend/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

// Notifier fans one message out to an in-app row, an email and a push. Every channel is
// best-effort: failures are logged and never returned to the caller.
type Notifier struct {
	userRepo repository.UserRepository
	noteRepo repository.NotificationRepository
	email    EmailSender
	push     PushSender
}

func NewNotifier(userRepo repository.UserRepository, noteRepo repository.NotificationRepository, email EmailSender, push PushSender) *Notifier {
	return &Notifier{userRepo: userRepo, noteRepo: noteRepo, email: email, push: push}
}

// Notify is safe on a nil *Notifier.
func (n *Notifier) Notify(ctx context.Context, userID, title, message string, attrs map[string]string) {
	if n == nil || userID == "" {
		return
	}
	note := &domain.Notification{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      title,
		Message:    message,
		Attributes: attrs,
		CreatedOn:  time.Now().UTC(),
	}
	if n.noteRepo != nil {
		if err := n.noteRepo.Create(ctx, note); err != nil {
			logger.Warn("Failed to store notification", "userID", userID, "title", title, "error", err)
		}
	}
	if n.push != nil {
		if err := n.push.SendToUser(ctx, userID, title, message, attrs); err != nil {
			logger.Warn("Failed to send push notification", "userID", userID, "error", err)
		}
	}
	if n.email == nil || n.userRepo == nil {
		return
	}
	user, err := n.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load notification recipient", "userID", userID, "error", err)
		return
	}
	if user.Email == "" {
		return
	}
	body := "Hello " + user.Name + ",\n\n" + message + "\n\nBest regards,\nThe RentalHub Team"
	if err := n.email.Send(ctx, user.Email, user.Name, title, body); err != nil {
		logger.Warn("Failed to send notification email", "userID", userID, "error", err)
	}
}
