package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"rentalhub-backend/internal/logger"
)

// fcmMessenger is the part of *messaging.Client the push sender uses.
type fcmMessenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type firebasePushSender struct {
	client fcmMessenger
}

// NewFirebasePushSender builds an FCM client from a service account file.
// Devices subscribe to the topic "user_<id>".
func NewFirebasePushSender(ctx context.Context, credentialsFile string) (PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &firebasePushSender{client: client}, nil
}

func userTopic(userID string) string {
	return "user_" + userID
}

func (s *firebasePushSender) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	logger.ExternalServiceCall("fcm", "send", "userID", userID)
	id, err := s.client.Send(ctx, &messaging.Message{
		Topic: userTopic(userID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	logger.ExternalServiceResult("fcm", "send", err, "userID", userID, "messageID", id)
	return err
}

type noopPushSender struct{}

// NewNoopPushSender is used when push is disabled.
func NewNoopPushSender() PushSender { return noopPushSender{} }

func (noopPushSender) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	return nil
}
