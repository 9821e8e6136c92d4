package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/adoptrack/internal/model"
	"github.com/dukerupert/adoptrack/internal/notify"

	webpush "github.com/SherClockHolmes/webpush-go"
)

var (
	// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
	ErrExpired = errors.New("push subscription expired")
	// ErrNoSubscriptions means the user never registered a device.
	ErrNoSubscriptions = errors.New("user has no push subscriptions")
)

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// SubscriptionStore is the slice of store.PushStore the service needs.
type SubscriptionStore interface {
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Service delivers adopter notifications as web push messages.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	subs       SubscriptionStore
	httpClient webpush.HTTPClient
	logger     *slog.Logger
}

type Option func(*Service)

func WithHTTPClient(c webpush.HTTPClient) Option {
	return func(s *Service) {
		s.httpClient = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a push service with VAPID keys. subscriber is the
// contact address sent to push services ("mailto:..." or an https URL).
func NewService(publicKey, privateKey, subscriber string, subs SubscriptionStore, opts ...Option) *Service {
	s := &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		subs:       subs,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send sends a push notification to a single subscription.
func (s *Service) Send(ctx context.Context, sub model.PushSubscription, payload Payload, urgency webpush.Urgency) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		Urgency:         urgency,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// SendToUser pushes text to every device the user registered. Expired
// subscriptions are removed. Delivery succeeds if any device accepted it.
func (s *Service) SendToUser(ctx context.Context, user model.User, text string, priority notify.Priority) error {
	subs, err := s.subs.ListByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return fmt.Errorf("%w: user %d", ErrNoSubscriptions, user.ID)
	}

	urgency := webpush.UrgencyNormal
	if priority == notify.PriorityHigh {
		urgency = webpush.UrgencyHigh
	}
	payload := Payload{Title: "Shelter", Body: text, Tag: "adoption"}

	var errs []error
	delivered := 0
	for _, sub := range subs {
		err := s.Send(ctx, sub, payload, urgency)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrExpired):
			if derr := s.subs.DeleteByEndpoint(ctx, sub.Endpoint); derr != nil {
				s.logger.Error("delete expired subscription", "user_id", user.ID, "error", derr)
			}
			errs = append(errs, err)
		default:
			errs = append(errs, err)
		}
	}
	if delivered > 0 {
		return nil
	}
	return errors.Join(errs...)
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return "", "", fmt.Errorf("convert public key: %w", err)
	}
	publicKey = base64.RawURLEncoding.EncodeToString(pub.Bytes())
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
