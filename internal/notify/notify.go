package notify

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/oshiro-app/oshiro-server/internal/app"
	"github.com/oshiro-app/oshiro-server/pkg/metrics"
)

// Event bus topics published by the API layer.
const (
	TopicOtpSend      = "otp.send"
	TopicOfferCreated = "offer.created"
)

// OtpMessage payload for TopicOtpSend.
type OtpMessage struct {
	Contact     string
	ContactType string // phone or email
	Code        string
}

// OfferCreatedMessage payload for TopicOfferCreated.
type OfferCreatedMessage struct {
	OfferID      int64
	BusinessID   int64
	BusinessName string
	Title        string
}

// Sender delivers user-facing messages. Real WhatsApp/SMS/email providers
// live behind this interface; the default implementation only logs.
type Sender interface {
	SendOTP(msg OtpMessage) error
	SendOfferAlert(msg OfferCreatedMessage) error
}

// LogSender is the delivery stub used until a real provider is wired in.
// It records every message to the application log and counts deliveries.
// Settings drive the SMS sender id and the WhatsApp broadcast toggle.
type LogSender struct {
	Settings app.SettingsProvider
}

func (s LogSender) smsSenderId() string {
	if s.Settings != nil {
		if id := s.Settings.GetSettingsStringValue("notify", "SmsSenderId"); id != "" {
			return id
		}
	}
	return "OSHIRO"
}

func (s LogSender) SendOTP(msg OtpMessage) error {
	switch msg.ContactType {
	case "phone":
		zap.L().Info("mock sms delivery",
			zap.String("from", s.smsSenderId()),
			zap.String("to", msg.Contact),
			zap.String("body", fmt.Sprintf("Your OshirO OTP is %s", msg.Code)))
	default:
		zap.L().Info("mock email delivery",
			zap.String("to", msg.Contact),
			zap.String("body", fmt.Sprintf("Your OshirO OTP is %s", msg.Code)))
	}
	metrics.IncrCounter("notify_otp_sent", 1)
	return nil
}

func (s LogSender) SendOfferAlert(msg OfferCreatedMessage) error {
	if s.Settings == nil || !s.Settings.GetSettingsBoolValue("notify", "WhatsAppEnabled") {
		zap.L().Debug("whatsapp broadcast disabled, dropping offer alert",
			zap.Int64("offer_id", msg.OfferID))
		return nil
	}
	zap.L().Info("mock whatsapp broadcast",
		zap.Int64("offer_id", msg.OfferID),
		zap.String("business", msg.BusinessName),
		zap.String("title", msg.Title))
	metrics.IncrCounter("notify_offer_alerts", 1)
	return nil
}

// Service subscribes a Sender to the application event bus.
type Service struct {
	app    app.AppContext
	sender Sender
}

var (
	instance *Service
	mu       sync.Mutex
)

// Start wires the sender to the bus topics. Safe to call once at startup.
func Start(a app.AppContext, sender Sender) (*Service, error) {
	mu.Lock()
	defer mu.Unlock()

	if sender == nil {
		sender = LogSender{Settings: a}
	}
	svc := &Service{app: a, sender: sender}

	if err := a.Bus().Subscribe(TopicOtpSend, svc.onOtpSend); err != nil {
		return nil, err
	}
	if err := a.Bus().Subscribe(TopicOfferCreated, svc.onOfferCreated); err != nil {
		return nil, err
	}

	instance = svc
	zap.L().Info("notification service started")
	return svc, nil
}

// Get returns the running service, nil before Start.
func Get() *Service {
	mu.Lock()
	defer mu.Unlock()
	return instance
}

func (s *Service) onOtpSend(msg OtpMessage) {
	if err := s.sender.SendOTP(msg); err != nil {
		zap.L().Warn("otp delivery failed",
			zap.String("contact", msg.Contact), zap.Error(err))
	}
}

func (s *Service) onOfferCreated(msg OfferCreatedMessage) {
	if err := s.sender.SendOfferAlert(msg); err != nil {
		zap.L().Warn("offer alert delivery failed",
			zap.Int64("offer_id", msg.OfferID), zap.Error(err))
	}
}

// Stop unsubscribes from the bus.
func (s *Service) Stop() {
	_ = s.app.Bus().Unsubscribe(TopicOtpSend, s.onOtpSend)
	_ = s.app.Bus().Unsubscribe(TopicOfferCreated, s.onOfferCreated)
}
