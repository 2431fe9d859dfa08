package push

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/smallbiznis/rentflow/internal/config"
	notificationdomain "github.com/smallbiznis/rentflow/internal/notification/domain"
	"go.uber.org/zap"
)

var ErrMissingVAPIDKeys = errors.New("missing_vapid_keys")

type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is a contact email or https URL sent in the VAPID claims.
	Subscriber string
	TTLSeconds int
}

// WebPushDispatcher encrypts payloads with the subscription keys (aes128gcm)
// and signs each request with the VAPID key pair.
type WebPushDispatcher struct {
	client *http.Client
	cfg    WebPushConfig
}

func NewWebPushDispatcher(client *http.Client, cfg WebPushConfig) (*WebPushDispatcher, error) {
	if strings.TrimSpace(cfg.VAPIDPublicKey) == "" || strings.TrimSpace(cfg.VAPIDPrivateKey) == "" {
		return nil, ErrMissingVAPIDKeys
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.TTLSeconds <= 0 {
		cfg.TTLSeconds = 86400
	}
	return &WebPushDispatcher{client: client, cfg: cfg}, nil
}

func (d *WebPushDispatcher) Dispatch(ctx context.Context, sub notificationdomain.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      d.client,
		Subscriber:      d.cfg.Subscriber,
		TTL:             d.cfg.TTLSeconds,
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  d.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: d.cfg.VAPIDPrivateKey,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, notificationdomain.ErrDispatchFailed
	}
	return resp.StatusCode, nil
}

// NoOpDispatcher accepts every payload without sending it.
type NoOpDispatcher struct{}

func (NoOpDispatcher) Dispatch(ctx context.Context, sub notificationdomain.PushSubscription, payload []byte) (int, error) {
	return http.StatusCreated, nil
}

func NewFromConfig(cfg config.Config, log *zap.Logger) notificationdomain.Dispatcher {
	log = log.Named("notification.push")
	switch cfg.Push.Dispatcher {
	case "noop", "none", "":
		log.Info("push dispatch disabled")
		return NoOpDispatcher{}
	}

	d, err := NewWebPushDispatcher(nil, WebPushConfig{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subscriber:      cfg.Push.Subscriber,
		TTLSeconds:      cfg.Push.TTLSeconds,
	})
	if err != nil {
		log.Warn("push dispatch disabled", zap.Error(err))
		return NoOpDispatcher{}
	}
	return d
}
