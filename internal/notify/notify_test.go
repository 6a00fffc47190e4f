package notify_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oshiro-app/oshiro-server/config"
	"github.com/oshiro-app/oshiro-server/internal/app"
	"github.com/oshiro-app/oshiro-server/internal/notify"
	"github.com/oshiro-app/oshiro-server/pkg/metrics"
)

func newTestApp(t *testing.T) *app.Application {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	a := app.NewApplication(&config.AppConfig{})
	a.OverrideDB(db)
	a.OverrideBus(EventBus.New())
	require.NoError(t, a.MigrateDB(false))
	return a
}

func captureLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })
	return logs
}

func TestLogSenderSmsSenderId(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.ConfigMgr().Set("notify", "SmsSenderId", "OSHIRO-TEST"))
	logs := captureLogs(t)

	sender := notify.LogSender{Settings: a}
	msg := notify.OtpMessage{Contact: "+911234567890", ContactType: "phone", Code: "123456"}
	require.NoError(t, sender.SendOTP(msg))

	entries := logs.FilterMessage("mock sms delivery").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "OSHIRO-TEST", entries[0].ContextMap()["from"])

	// email delivery has no SMS sender id
	msg.ContactType = "email"
	require.NoError(t, sender.SendOTP(msg))
	assert.Len(t, logs.FilterMessage("mock email delivery").All(), 1)
}

func TestLogSenderWhatsAppToggle(t *testing.T) {
	a := newTestApp(t)
	logs := captureLogs(t)

	sender := notify.LogSender{Settings: a}
	msg := notify.OfferCreatedMessage{OfferID: 1, BusinessName: "Cafe", Title: "combo"}

	// disabled by default: the alert is dropped, not broadcast
	before := metrics.GetLatest("notify_offer_alerts")
	require.NoError(t, sender.SendOfferAlert(msg))
	assert.Equal(t, before, metrics.GetLatest("notify_offer_alerts"))
	assert.Empty(t, logs.FilterMessage("mock whatsapp broadcast").All())

	require.NoError(t, a.ConfigMgr().Set("notify", "WhatsAppEnabled", "true"))
	require.NoError(t, sender.SendOfferAlert(msg))
	assert.Equal(t, before+1, metrics.GetLatest("notify_offer_alerts"))
	assert.Len(t, logs.FilterMessage("mock whatsapp broadcast").All(), 1)
}
