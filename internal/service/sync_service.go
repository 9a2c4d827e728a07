package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"treevut/pkg/config"
	"treevut/pkg/metrics"
	"treevut/pkg/resilience"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SyncService pushes a user's gamification state to a Supabase PostgREST
// backend. Pushes are best-effort: a failed push is logged and dropped,
// never surfaced to the caller, and the local store stays the source of
// truth. Mutations are debounced per user so a burst of edits produces a
// single push.
type SyncService struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	retryCfg       resilience.Config
	debounce       time.Duration
	ledger         *LedgerService
	logger         *zap.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	wg     sync.WaitGroup
	closed bool
}

func NewSyncService(cfg config.SyncConfig, ledger *LedgerService, logger *zap.Logger) *SyncService {
	return &SyncService{
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		serviceRoleKey: cfg.ServiceRoleKey,
		cb:             resilience.NewCircuitBreaker("supabase-sync"),
		retryCfg:       resilience.Config{MaxRetries: 2, InitialBackoff: 500 * time.Millisecond},
		debounce:       cfg.Debounce,
		ledger:         ledger,
		logger:         logger,
		timers:         make(map[uuid.UUID]*time.Timer),
	}
}

// Enabled reports whether a remote backend is configured. With no base
// URL the service is a no-op and the app runs fully local.
func (s *SyncService) Enabled() bool {
	return s.baseURL != ""
}

// Listener returns the event listener that schedules debounced pushes.
func (s *SyncService) Listener() EventListener {
	return func(ctx context.Context, ev Event) {
		if !s.Enabled() {
			return
		}
		switch ev.Type {
		case EventExpenseAdded, EventExpenseUpdated, EventExpenseDeleted,
			EventBadgeUnlocked, EventStreakMilestone, EventStreakLost,
			EventChallengeCompleted, EventChallengeClaimed, EventGoodPurchased:
			s.schedule(ev.UserID)
		}
	}
}

// schedule arms (or re-arms) the user's debounce timer.
func (s *SyncService) schedule(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if t, ok := s.timers[userID]; ok {
		t.Reset(s.debounce)
		return
	}
	s.timers[userID] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, userID)
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()

		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Push(ctx, userID)
	})
}

// Close stops pending timers and waits for in-flight pushes.
func (s *SyncService) Close() {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

type syncProfileRow struct {
	UserID                string   `json:"user_id"`
	Bellotas              int      `json:"bellotas"`
	PurchasedGoods        []string `json:"purchased_goods"`
	FormalityStreak       int      `json:"formality_streak"`
	LastFormalExpenseDate *string  `json:"last_formal_expense_date"`
	UnlockedBadges        []string `json:"unlocked_badges"`
	UpdatedAt             string   `json:"updated_at"`
}

type syncChallengeRow struct {
	UserID          string  `json:"user_id"`
	ChallengeID     string  `json:"challenge_id"`
	Status          string  `json:"status"`
	CurrentProgress float64 `json:"current_progress"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date,omitempty"`
	UpdatedAt       string  `json:"updated_at"`
}

type syncLeaderboardRow struct {
	UserID         string  `json:"user_id"`
	WeekStart      string  `json:"week_start"`
	FormalityIndex float64 `json:"formality_index"`
	UpdatedAt      string  `json:"updated_at"`
}

// Push uploads the user's profile, challenges and leaderboard entry. The
// three tables are independent, so the uploads fan out concurrently.
func (s *SyncService) Push(ctx context.Context, userID uuid.UUID) {
	state, agg := s.ledger.Snapshot(ctx, userID)
	now := time.Now().UTC().Format(time.RFC3339)

	var lastFormal *string
	if state.Streak.LastFormalExpenseDate != "" {
		d := state.Streak.LastFormalExpenseDate
		lastFormal = &d
	}

	profile := syncProfileRow{
		UserID:                userID.String(),
		Bellotas:              state.Bellotas,
		PurchasedGoods:        emptyIfNil(state.PurchasedGoods),
		FormalityStreak:       state.Streak.CurrentStreak,
		LastFormalExpenseDate: lastFormal,
		UnlockedBadges:        emptyIfNil(state.Badges),
		UpdatedAt:             now,
	}

	challenges := make([]syncChallengeRow, 0, len(state.Challenges))
	for _, c := range state.Challenges {
		challenges = append(challenges, syncChallengeRow{
			UserID:          userID.String(),
			ChallengeID:     c.ChallengeID,
			Status:          string(c.Status),
			CurrentProgress: c.CurrentProgress,
			StartDate:       c.StartDate,
			EndDate:         c.EndDate,
			UpdatedAt:       now,
		})
	}

	leaderboard := syncLeaderboardRow{
		UserID:         userID.String(),
		WeekStart:      weekStart(time.Now().UTC()).Format(dateLayout),
		FormalityIndex: agg.FormalityIndexByAmount,
		UpdatedAt:      now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.upsert(gctx, "user_profiles", "user_id", profile)
	})
	g.Go(func() error {
		if len(challenges) == 0 {
			return nil
		}
		return s.upsert(gctx, "user_challenges", "user_id,challenge_id", challenges)
	})
	g.Go(func() error {
		return s.upsert(gctx, "leaderboard", "user_id,week_start", leaderboard)
	})

	if err := g.Wait(); err != nil {
		metrics.SyncPushes.WithLabelValues("failure").Inc()
		s.logger.Warn("Remote sync push failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return
	}
	metrics.SyncPushes.WithLabelValues("success").Inc()
	s.logger.Debug("Remote sync push completed", zap.String("user_id", userID.String()))
}

// upsert writes rows to a PostgREST table with merge-on-conflict
// semantics.
func (s *SyncService) upsert(ctx context.Context, table, onConflict string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", table, err)
	}

	_, err = s.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.retryCfg, func() error {
			url := fmt.Sprintf("%s/rest/v1/%s?on_conflict=%s", s.baseURL, table, onConflict)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("apikey", s.apiKey)
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.serviceRoleKey))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Prefer", "resolution=merge-duplicates")

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return fmt.Errorf("supabase returned status %d for %s: %s", resp.StatusCode, table, string(respBody))
			}
			return nil
		})
	})
	return err
}

// weekStart returns the Monday that opens the week containing day.
func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
