package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"treevut/pkg/config"
	"treevut/pkg/metrics"

	"go.uber.org/zap"
)

// Notification is a fire-and-forget message for the notification
// collaborator. Tag deduplicates repeated notifications on the consumer
// side.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// Notifier delivers notifications. Implementations never block the caller
// and never surface delivery errors.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// WebhookNotifier POSTs notifications to a configured webhook. Delivery
// runs detached; failures are logged and counted, never returned.
type WebhookNotifier struct {
	httpClient *http.Client
	url        string
	logger     *zap.Logger
}

func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		logger:     logger,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, notif Notification) {
	go func() {
		data, err := json.Marshal(notif)
		if err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
		if err != nil {
			n.logger.Warn("Failed to build notification request", zap.Error(err))
			metrics.NotificationsSent.WithLabelValues("error").Inc()
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			n.logger.Warn("Notification delivery failed", zap.String("tag", notif.Tag), zap.Error(err))
			metrics.NotificationsSent.WithLabelValues("error").Inc()
			return
		}
		resp.Body.Close()
		metrics.NotificationsSent.WithLabelValues("ok").Inc()
	}()
}

// LogNotifier is the fallback when no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notif Notification) {
	n.logger.Info("Notification",
		zap.String("title", notif.Title),
		zap.String("body", notif.Body),
		zap.String("tag", notif.Tag),
	)
	metrics.NotificationsSent.WithLabelValues("ok").Inc()
}

// NewNotifier picks the notifier implementation from config.
func NewNotifier(cfg *config.NotifyConfig, logger *zap.Logger) Notifier {
	if cfg.WebhookURL != "" {
		return NewWebhookNotifier(cfg.WebhookURL, logger)
	}
	return NewLogNotifier(logger)
}

// NotificationListener translates ledger events into user notifications.
func NotificationListener(notifier Notifier) EventListener {
	return func(ctx context.Context, ev Event) {
		switch ev.Type {
		case EventInformalExpense:
			notifier.Notify(ctx, Notification{
				Title: "⚠️ Gasto Informal Registrado",
				Body:  fmt.Sprintf("Perdiste S/ %.2f de ahorro en \"%s\". Pide comprobante la próxima vez.", ev.Expense.LostSavings, ev.Expense.MerchantName),
				Tag:   "informal-expense",
			})
		case EventStreakMilestone:
			notifier.Notify(ctx, Notification{
				Title: "🔥 ¡Hito de Racha Alcanzado!",
				Body:  fmt.Sprintf("¡%d días consecutivos! Has ganado %d bellotas de bonificación.", ev.Milestone.Days, ev.Milestone.Reward),
				Tag:   fmt.Sprintf("streak-milestone-%d", ev.Milestone.Days),
			})
		case EventStreakLost:
			notifier.Notify(ctx, Notification{
				Title: "😢 Racha Perdida",
				Body:  fmt.Sprintf("Has perdido tu racha de %d días. ¡Registra un gasto formal hoy para empezar una nueva!", ev.StreakDays),
				Tag:   "streak-lost",
			})
		case EventBadgeUnlocked:
			notifier.Notify(ctx, Notification{
				Title: "🏅 ¡Nuevo Badge Desbloqueado!",
				Body:  fmt.Sprintf("Has obtenido el badge \"%s\" %s", ev.Badge.Name, ev.Badge.Icon),
				Tag:   "badge-unlocked-" + ev.Badge.ID,
			})
		case EventChallengeCompleted:
			notifier.Notify(ctx, Notification{
				Title: "🎉 ¡Desafío Completado!",
				Body:  fmt.Sprintf("Has completado \"%s\". Reclama tus %d bellotas.", ev.Challenge.Title, ev.Challenge.RewardBellotas),
				Tag:   "challenge-" + ev.Challenge.ID,
			})
		}
	}
}
