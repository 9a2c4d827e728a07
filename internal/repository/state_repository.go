package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"treevut/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Canonical key prefixes. Keys written by the app's previous incarnation
// used the legacy prefix and are migrated once on first load.
const (
	keyPrefix       = "treevut"
	legacyKeyPrefix = "treebu"
)

// stateSlices are the per-user slice names, one store key each.
var stateSlices = []string{
	"expenses", "budget", "income", "streak",
	"badges", "bellotas", "goods", "challenges", "profile",
}

// StateRepository serializes per-user ledger/gamification state into the
// key-value store. Parse failures never propagate: the affected slice
// reverts to its default and a diagnostic is logged.
type StateRepository struct {
	store         Store
	defaultBudget float64
	logger        *zap.Logger
}

func NewStateRepository(store Store, defaultBudget float64, logger *zap.Logger) *StateRepository {
	return &StateRepository{
		store:         store,
		defaultBudget: defaultBudget,
		logger:        logger,
	}
}

func stateKey(slice string, userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, slice, userID)
}

func legacyStateKey(slice string, userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", legacyKeyPrefix, slice, userID)
}

// migrateLegacyKeys copies each legacy slice key to its canonical name and
// deletes the old key. Runs once per user load; a no-op afterwards.
func (r *StateRepository) migrateLegacyKeys(ctx context.Context, userID uuid.UUID) {
	for _, slice := range stateSlices {
		oldKey := legacyStateKey(slice, userID)
		value, found, err := r.store.Get(ctx, oldKey)
		if err != nil || !found {
			continue
		}
		newKey := stateKey(slice, userID)
		if _, exists, _ := r.store.Get(ctx, newKey); exists {
			continue
		}
		if err := r.store.Set(ctx, newKey, value); err != nil {
			r.logger.Warn("Legacy key migration failed", zap.String("key", oldKey), zap.Error(err))
			continue
		}
		_ = r.store.Delete(ctx, oldKey)
		r.logger.Info("Migrated legacy state key", zap.String("from", oldKey), zap.String("to", newKey))
	}
}

// getJSON unmarshals the value at key into v. Returns false when the key is
// absent or the stored value does not parse; a parse failure is logged and
// treated as "no prior state".
func (r *StateRepository) getJSON(ctx context.Context, key string, v any) bool {
	value, found, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Store read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		r.logger.Warn("Discarding malformed persisted state", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (r *StateRepository) getFloat(ctx context.Context, key string) (float64, bool) {
	value, found, err := r.store.Get(ctx, key)
	if err != nil || !found {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		r.logger.Warn("Discarding malformed persisted state", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return f, true
}

// LoadState restores a user's full state bundle, applying defaults for
// missing or malformed slices and backward-compatible field defaults for
// records written by older schema versions.
func (r *StateRepository) LoadState(ctx context.Context, userID uuid.UUID) *models.UserState {
	r.migrateLegacyKeys(ctx, userID)

	state := &models.UserState{
		Budget:  r.defaultBudget,
		Profile: models.DefaultProfile(),
	}

	r.getJSON(ctx, stateKey("expenses", userID), &state.Expenses)
	if budget, ok := r.getFloat(ctx, stateKey("budget", userID)); ok {
		state.Budget = budget
	}
	if income, ok := r.getFloat(ctx, stateKey("income", userID)); ok {
		state.AnnualIncome = income
	}
	r.getJSON(ctx, stateKey("streak", userID), &state.Streak)
	r.getJSON(ctx, stateKey("badges", userID), &state.Badges)
	if bellotas, ok := r.getFloat(ctx, stateKey("bellotas", userID)); ok {
		state.Bellotas = int(bellotas)
	}
	r.getJSON(ctx, stateKey("goods", userID), &state.PurchasedGoods)
	r.getJSON(ctx, stateKey("challenges", userID), &state.Challenges)

	if r.getJSON(ctx, stateKey("profile", userID), &state.Profile) {
		// Older profiles predate the level field.
		if state.Profile.Level == 0 {
			state.Profile.Level = models.LevelSprout
		}
	}

	return state
}

// SaveState writes every slice of the bundle back to the store.
func (r *StateRepository) SaveState(ctx context.Context, userID uuid.UUID, state *models.UserState) error {
	setJSON := func(slice string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return r.store.Set(ctx, stateKey(slice, userID), string(data))
	}

	if err := setJSON("expenses", state.Expenses); err != nil {
		return fmt.Errorf("failed to save expenses: %w", err)
	}
	if err := r.store.Set(ctx, stateKey("budget", userID), strconv.FormatFloat(state.Budget, 'f', -1, 64)); err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	if err := r.store.Set(ctx, stateKey("income", userID), strconv.FormatFloat(state.AnnualIncome, 'f', -1, 64)); err != nil {
		return fmt.Errorf("failed to save income: %w", err)
	}
	if err := setJSON("streak", state.Streak); err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	if err := setJSON("badges", state.Badges); err != nil {
		return fmt.Errorf("failed to save badges: %w", err)
	}
	if err := r.store.Set(ctx, stateKey("bellotas", userID), strconv.Itoa(state.Bellotas)); err != nil {
		return fmt.Errorf("failed to save bellotas: %w", err)
	}
	if err := setJSON("goods", state.PurchasedGoods); err != nil {
		return fmt.Errorf("failed to save purchased goods: %w", err)
	}
	if err := setJSON("challenges", state.Challenges); err != nil {
		return fmt.Errorf("failed to save challenges: %w", err)
	}
	if err := setJSON("profile", state.Profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// StreakUserIDs lists every user that has a persisted streak record. Used
// by the idle streak checker.
func (r *StateRepository) StreakUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	prefix := keyPrefix + ":streak:"
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, prefix))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
