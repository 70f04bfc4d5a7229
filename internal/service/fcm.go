package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// fcmBatchLimit is the maximum number of tokens per multicast request.
const fcmBatchLimit = 500

// FCMClient wraps the Firebase Cloud Messaging client. Device tokens come
// from the device_tokens table; the service account comes from either a
// credentials file or its inline JSON.
type FCMClient struct {
	client *messaging.Client
	log    zerolog.Logger
}

// NewFCMClient initializes Firebase from a service account. credentialsJSON
// wins over credentialsFile when both are set.
func NewFCMClient(ctx context.Context, credentialsFile, credentialsJSON string, log zerolog.Logger) (*FCMClient, error) {
	var opt option.ClientOption
	switch {
	case credentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(credentialsJSON))
	case credentialsFile != "":
		opt = option.WithCredentialsFile(credentialsFile)
	default:
		return nil, fmt.Errorf("fcm: no credentials configured")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log = log.With().Str("component", "fcm").Logger()
	log.Info().Msg("fcm initialized")
	return &FCMClient{client: client, log: log}, nil
}

// SendToTokens sends one notification to every token, batching at the FCM
// limit. It returns the tokens FCM reported as unregistered so the caller
// can forget them.
func (c *FCMClient) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	var stale []string
	for start := 0; start < len(tokens); start += fcmBatchLimit {
		end := min(start+fcmBatchLimit, len(tokens))
		batch := tokens[start:end]

		message := &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: "default",
				},
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{Sound: "default"},
				},
			},
		}

		response, err := c.client.SendEachForMulticast(ctx, message)
		if err != nil {
			return stale, fmt.Errorf("send multicast: %w", err)
		}

		for i, resp := range response.Responses {
			if resp.Success {
				continue
			}
			if messaging.IsUnregistered(resp.Error) {
				stale = append(stale, batch[i])
				continue
			}
			c.log.Warn().Err(resp.Error).Int("index", start+i).Msg("push to token failed")
		}
		c.log.Debug().
			Int("tokens", len(batch)).
			Int("success", response.SuccessCount).
			Int("failure", response.FailureCount).
			Msg("multicast sent")
	}
	return stale, nil
}
