package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/coshare/coshare-backend/config"
	apperrors "github.com/coshare/coshare-backend/errors"
	"github.com/coshare/coshare-backend/internal/advisory"
	"github.com/coshare/coshare-backend/internal/analytics"
	"github.com/coshare/coshare-backend/internal/store"
	"github.com/coshare/coshare-backend/logger"
	"github.com/coshare/coshare-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalyticsServiceInterface is what the HTTP layer depends on.
type AnalyticsServiceInterface interface {
	GetFairness(ctx context.Context, groupID string, start, end *time.Time) (*types.Outcome[*types.FairnessResult], error)
	SuggestBookings(ctx context.Context, groupID string, req types.BookingSuggestionRequest) (*types.Outcome[*types.BookingSuggestions], error)
	ForecastUsage(ctx context.Context, groupID string) (*types.Outcome[*types.UsageForecast], error)
	OptimizeCosts(ctx context.Context, groupID string) (*types.Outcome[*types.CostOptimization], error)
}

// AnalyticsService asks the advisory service first and falls back to the
// deterministic engine when it has nothing usable.
type AnalyticsService struct {
	reader          store.AnalyticsReader
	snapshots       store.TrendSnapshotStore
	fairness        *analytics.FairnessCalculator
	bookingFairness *analytics.FairnessCalculator
	recommender     *analytics.BookingSlotRecommender
	forecaster      *analytics.UsageForecaster
	costs           *analytics.CostOptimizationAnalyzer
	advisor         advisory.Advisor
	cache           AdvisoryCache
	metrics         *AnalyticsMetrics
	cfg             config.AnalyticsConfig
	now             func() time.Time
	log             *zap.SugaredLogger
}

var _ AnalyticsServiceInterface = (*AnalyticsService)(nil)

// NewAnalyticsService wires the engine components to st. A nil advisor behaves
// like advisory.Disabled and a nil cache disables caching.
func NewAnalyticsService(st store.Store, advisor advisory.Advisor, cache AdvisoryCache, metrics *AnalyticsMetrics, cfg config.AnalyticsConfig) *AnalyticsService {
	if advisor == nil {
		advisor = advisory.Disabled{}
	}
	snapshots := InstrumentSnapshots(st.TrendSnapshots(), metrics)
	return &AnalyticsService{
		reader:    st.Analytics(),
		snapshots: snapshots,
		fairness:  analytics.NewFairnessCalculator(snapshots),
		// Booking only needs the requester's current score; it never writes trend rows.
		bookingFairness: analytics.NewFairnessCalculator(nil),
		recommender:     analytics.NewBookingSlotRecommender(cfg.BookingHorizonDays, cfg.MaxBookingSuggestions),
		forecaster:      analytics.NewUsageForecaster(),
		costs:           analytics.NewCostOptimizationAnalyzer(),
		advisor:         advisor,
		cache:           cache,
		metrics:         metrics,
		cfg:             cfg,
		now:             time.Now,
		log:             logger.GetLogger(),
	}
}

type fairnessPayload struct {
	GroupID     string              `json:"groupId"`
	PeriodStart time.Time           `json:"periodStart"`
	PeriodEnd   time.Time           `json:"periodEnd"`
	Usage       []types.UsageRecord `json:"usage"`
}

type bookingPayload struct {
	GroupID         string                  `json:"groupId"`
	UserID          string                  `json:"userId"`
	PreferredStart  *time.Time              `json:"preferredStart,omitempty"`
	DurationMinutes int                     `json:"durationMinutes"`
	HorizonDays     int                     `json:"horizonDays"`
	Existing        []types.ExistingBooking `json:"existingBookings"`
	Usage           []types.UsageRecord     `json:"usage"`
}

type forecastPayload struct {
	GroupID string              `json:"groupId"`
	Usage   []types.UsageRecord `json:"usage"`
}

type costPayload struct {
	GroupID     string                   `json:"groupId"`
	PeriodStart time.Time                `json:"periodStart"`
	PeriodEnd   time.Time                `json:"periodEnd"`
	MemberCount int                      `json:"memberCount"`
	Vehicles    []types.VehicleInfo      `json:"vehicles"`
	Expenses    []types.ExpenseRecord    `json:"expenses"`
	Trips       []types.CompletedBooking `json:"trips"`
}

// GetFairness scores the group over [start, end]. A nil end means now and a nil
// start means the configured window before end.
func (s *AnalyticsService) GetFairness(ctx context.Context, groupID string, start, end *time.Time) (*types.Outcome[*types.FairnessResult], error) {
	if err := validateGroupID(groupID); err != nil {
		return nil, err
	}

	periodEnd := s.now().UTC()
	if end != nil && !end.IsZero() {
		periodEnd = end.UTC()
	}
	periodStart := periodEnd.Add(-s.fairnessWindow())
	if start != nil && !start.IsZero() {
		periodStart = start.UTC()
	}
	if periodStart.After(periodEnd) {
		return nil, apperrors.ValidationFailed("invalid period", "start must not be after end")
	}

	in, err := s.loadFairnessInput(ctx, groupID, periodStart, periodEnd, true)
	if err != nil {
		return nil, err
	}
	if !in.GroupExists && len(in.Records) == 0 && len(in.History) == 0 {
		return nil, apperrors.GroupNotFound(groupID)
	}

	payload := fairnessPayload{GroupID: groupID, PeriodStart: periodStart, PeriodEnd: periodEnd, Usage: in.Records}
	accept := func(r *types.FairnessResult) bool {
		if r == nil {
			return false
		}
		if r.GroupID == "" {
			r.GroupID = groupID
		}
		if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
			r.PeriodStart, r.PeriodEnd = periodStart, periodEnd
		}
		return true
	}

	outcome, err := runWithFallback(ctx, s, advisory.CapabilityFairness, groupID, payload, accept,
		func() (*types.FairnessResult, error) {
			return s.fairness.Calculate(ctx, in)
		})
	if err != nil {
		return nil, err
	}
	if outcome.IsAdvisory() {
		s.saveAdvisorySnapshot(ctx, outcome.Result)
	}
	return outcome, nil
}

// SuggestBookings ranks open slots for the requester across the booking horizon.
func (s *AnalyticsService) SuggestBookings(ctx context.Context, groupID string, req types.BookingSuggestionRequest) (*types.Outcome[*types.BookingSuggestions], error) {
	if err := validateGroupID(groupID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return nil, apperrors.ValidationFailed("invalid user id", "userId must be a UUID")
	}
	if req.DurationMinutes < 0 {
		return nil, apperrors.ValidationFailed("invalid duration", "durationMinutes must not be negative")
	}

	periodEnd := s.now().UTC()
	periodStart := periodEnd.Add(-s.fairnessWindow())
	in, err := s.loadFairnessInput(ctx, groupID, periodStart, periodEnd, false)
	if err != nil {
		return nil, err
	}
	if !in.GroupExists && len(in.Records) == 0 {
		return nil, apperrors.GroupNotFound(groupID)
	}

	base := s.recommender.BaseDate(req.PreferredStart)
	existing, err := s.reader.ListBookings(ctx, groupID, base, base.AddDate(0, 0, s.recommender.HorizonDays()+1))
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	payload := bookingPayload{
		GroupID:         groupID,
		UserID:          req.UserID,
		PreferredStart:  req.PreferredStart,
		DurationMinutes: req.DurationMinutes,
		HorizonDays:     s.recommender.HorizonDays(),
		Existing:        existing,
		Usage:           in.Records,
	}
	accept := func(r *types.BookingSuggestions) bool {
		if r == nil || r.Suggestions == nil {
			return false
		}
		r.GroupID, r.UserID = groupID, req.UserID
		return true
	}

	return runWithFallback(ctx, s, advisory.CapabilityBooking, groupID, payload, accept,
		func() (*types.BookingSuggestions, error) {
			fairness, err := s.bookingFairness.Calculate(ctx, in)
			if err != nil {
				return nil, err
			}
			return s.recommender.Recommend(analytics.BookingInput{
				GroupID:        groupID,
				UserID:         req.UserID,
				PreferredStart: req.PreferredStart,
				Duration:       time.Duration(req.DurationMinutes) * time.Minute,
				Fairness:       fairness,
				Existing:       existing,
			}), nil
		})
}

// ForecastUsage projects the next 30 days from the configured lookback.
func (s *AnalyticsService) ForecastUsage(ctx context.Context, groupID string) (*types.Outcome[*types.UsageForecast], error) {
	if err := validateGroupID(groupID); err != nil {
		return nil, err
	}

	to := s.now().UTC()
	from := to.Add(-s.forecastLookback())

	exists, err := s.reader.GroupExists(ctx, groupID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	records, err := s.reader.ListUsageRecords(ctx, groupID, from, to)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if !exists && len(records) == 0 {
		return nil, apperrors.GroupNotFound(groupID)
	}

	payload := forecastPayload{GroupID: groupID, Usage: records}
	accept := func(r *types.UsageForecast) bool {
		if r == nil {
			return false
		}
		r.GroupID = groupID
		return true
	}

	return runWithFallback(ctx, s, advisory.CapabilityForecast, groupID, payload, accept,
		func() (*types.UsageForecast, error) {
			return s.forecaster.Forecast(analytics.ForecastInput{GroupID: groupID, GroupExists: exists, Records: records})
		})
}

// OptimizeCosts analyzes expenses and completed trips over the cost lookback.
func (s *AnalyticsService) OptimizeCosts(ctx context.Context, groupID string) (*types.Outcome[*types.CostOptimization], error) {
	if err := validateGroupID(groupID); err != nil {
		return nil, err
	}

	exists, err := s.reader.GroupExists(ctx, groupID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if !exists {
		return nil, apperrors.GroupNotFound(groupID)
	}

	in, err := s.loadCostInput(ctx, groupID)
	if err != nil {
		return nil, err
	}

	payload := costPayload{
		GroupID:     groupID,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		MemberCount: in.MemberCount,
		Vehicles:    in.Vehicles,
		Expenses:    in.Expenses,
		Trips:       in.Bookings,
	}
	accept := func(r *types.CostOptimization) bool {
		if r == nil {
			return false
		}
		r.GroupID = groupID
		return true
	}

	return runWithFallback(ctx, s, advisory.CapabilityCost, groupID, payload, accept,
		func() (*types.CostOptimization, error) {
			return s.costs.Analyze(in)
		})
}

// loadFairnessInput reads the usage rows for the window in one query. With
// withHistory the query is widened to the start of the trend timeline.
func (s *AnalyticsService) loadFairnessInput(ctx context.Context, groupID string, start, end time.Time, withHistory bool) (analytics.FairnessInput, error) {
	in := analytics.FairnessInput{GroupID: groupID, PeriodStart: start, PeriodEnd: end}

	exists, err := s.reader.GroupExists(ctx, groupID)
	if err != nil {
		return in, apperrors.NewDatabaseError(err)
	}
	in.GroupExists = exists

	from := start
	if withHistory {
		if months := analytics.TrendMonths(end); len(months) > 0 && months[0][0].Before(from) {
			from = months[0][0]
		}
	}
	records, err := s.reader.ListUsageRecords(ctx, groupID, from, end)
	if err != nil {
		return in, apperrors.NewDatabaseError(err)
	}

	in.Records = make([]types.UsageRecord, 0, len(records))
	for _, r := range records {
		if r.PeriodEnd.After(start) && r.PeriodStart.Before(end) {
			in.Records = append(in.Records, r)
		}
	}
	if withHistory {
		in.History = records
	}
	return in, nil
}

func (s *AnalyticsService) loadCostInput(ctx context.Context, groupID string) (analytics.CostInput, error) {
	end := s.now().UTC()
	start := end.AddDate(0, -s.costLookbackMonths(), 0)
	in := analytics.CostInput{GroupID: groupID, GroupExists: true, PeriodStart: start, PeriodEnd: end}

	var err error
	if in.MemberCount, err = s.reader.CountMembers(ctx, groupID); err != nil {
		return in, apperrors.NewDatabaseError(err)
	}
	if in.Vehicles, err = s.reader.ListVehicles(ctx, groupID); err != nil {
		return in, apperrors.NewDatabaseError(err)
	}
	if in.Expenses, err = s.reader.ListExpenses(ctx, groupID, start, end); err != nil {
		return in, apperrors.NewDatabaseError(err)
	}
	if in.Bookings, err = s.reader.ListCompletedBookings(ctx, groupID, start, end); err != nil {
		return in, apperrors.NewDatabaseError(err)
	}
	return in, nil
}

// saveAdvisorySnapshot records an advisory fairness score in the trend
// timeline. Failures are logged and never returned.
func (s *AnalyticsService) saveAdvisorySnapshot(ctx context.Context, r *types.FairnessResult) {
	if s.snapshots == nil {
		return
	}
	score := r.GroupFairnessScore
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 100 {
		s.log.Warnw("Skipping fairness snapshot with out of range score", "groupId", r.GroupID, "score", score)
		return
	}
	if _, err := s.snapshots.UpsertSnapshot(ctx, r.GroupID, r.PeriodStart, r.PeriodEnd, score); err != nil {
		s.log.Warnw("Failed to save fairness snapshot", "groupId", r.GroupID, "error", err)
	}
}

func (s *AnalyticsService) fairnessWindow() time.Duration {
	if s.cfg.FairnessWindowDays > 0 {
		return time.Duration(s.cfg.FairnessWindowDays) * 24 * time.Hour
	}
	return analytics.DefaultFairnessWindow
}

func (s *AnalyticsService) forecastLookback() time.Duration {
	if s.cfg.ForecastLookbackDays > 0 {
		return time.Duration(s.cfg.ForecastLookbackDays) * 24 * time.Hour
	}
	return analytics.DefaultForecastLookback
}

func (s *AnalyticsService) costLookbackMonths() int {
	if s.cfg.CostLookbackMonths > 0 {
		return s.cfg.CostLookbackMonths
	}
	return analytics.DefaultCostLookbackMonths
}

func validateGroupID(groupID string) error {
	if groupID == "" {
		return apperrors.ValidationFailed("missing group id", "groupId is required")
	}
	if _, err := uuid.Parse(groupID); err != nil {
		return apperrors.ValidationFailed("invalid group id", "groupId must be a UUID")
	}
	return nil
}

// runWithFallback returns the advisory answer when there is a usable one and
// otherwise runs engine. accept may fill in fields the advisory left out.
func runWithFallback[T any](
	ctx context.Context,
	s *AnalyticsService,
	capability advisory.Capability,
	groupID string,
	payload interface{},
	accept func(T) bool,
	engine func() (T, error),
) (*types.Outcome[T], error) {
	if result, ok := consultAdvisory(ctx, s, capability, groupID, payload, accept); ok {
		s.metrics.observeRequest(string(capability), types.SourceAdvisory)
		return &types.Outcome[T]{Result: result, Source: types.SourceAdvisory, GeneratedAt: s.now().UTC()}, nil
	}

	started := time.Now()
	result, err := engine()
	s.metrics.observeEngine(string(capability), started)
	if err != nil {
		if errors.Is(err, analytics.ErrGroupNotFound) {
			return nil, apperrors.GroupNotFound(groupID)
		}
		s.log.Errorw("Analytics engine failed", "capability", capability, "groupId", groupID, "error", err)
		return nil, apperrors.Wrap(err, apperrors.AnalyticsError, "Failed to compute analytics")
	}

	s.metrics.observeRequest(string(capability), types.SourceFallback)
	return &types.Outcome[T]{Result: result, Source: types.SourceFallback, GeneratedAt: s.now().UTC()}, nil
}

// consultAdvisory never fails: any problem is logged and reported as no result.
func consultAdvisory[T any](
	ctx context.Context,
	s *AnalyticsService,
	capability advisory.Capability,
	groupID string,
	payload interface{},
	accept func(T) bool,
) (T, bool) {
	var zero T

	if s.cache != nil {
		raw, hit, err := s.cache.Get(ctx, capability, groupID, payload)
		if err != nil {
			s.log.Warnw("Advisory cache lookup failed", "capability", capability, "error", err)
		}
		if hit {
			if result, ok := decodeAdvisory(raw, accept); ok {
				return result, true
			}
		}
	}

	raw, err := s.advisor.Advise(ctx, capability, groupID, payload)
	if err != nil {
		if errors.Is(err, advisory.ErrNoResult) {
			s.log.Debugw("No advisory result, using engine", "capability", capability, "groupId", groupID)
		} else {
			s.metrics.observeAdvisoryFailure(string(capability))
			s.log.Warnw("Advisory call failed, using engine", "capability", capability, "groupId", groupID, "error", err)
		}
		return zero, false
	}

	result, ok := decodeAdvisory(raw, accept)
	if !ok {
		s.metrics.observeAdvisoryFailure(string(capability))
		s.log.Warnw("Advisory result unusable, using engine", "capability", capability, "groupId", groupID)
		return zero, false
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, capability, groupID, payload, raw); err != nil {
			s.log.Warnw("Failed to cache advisory result", "capability", capability, "error", err)
		}
	}
	return result, true
}

func decodeAdvisory[T any](raw json.RawMessage, accept func(T) bool) (T, bool) {
	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, false
	}
	return result, accept(result)
}
