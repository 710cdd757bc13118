package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"evently-backend/internal/logger"
)

type fcmSender struct {
	client *messaging.Client
}

// NewFCMSender builds a Firebase Cloud Messaging client. An empty credentials
// file falls back to application default credentials.
func NewFCMSender(ctx context.Context, credentialsFile, projectID string) (Sender, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &fcmSender{client: client}, nil
}

func (s *fcmSender) Send(ctx context.Context, n Notification) (string, error) {
	if n.DeviceToken == "" {
		return "", ErrNoDeviceToken
	}

	logger.ExternalServiceCall("fcm", "send", "title", n.Title)
	id, err := s.client.Send(ctx, &messaging.Message{
		Token: n.DeviceToken,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
	})
	logger.ExternalServiceResult("fcm", "send", err, "message_id", id)
	if err != nil {
		return "", fmt.Errorf("failed to send push notification: %w", err)
	}
	return id, nil
}
