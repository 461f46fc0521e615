package service

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/application/geo"
	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// Backend intelligence endpoints.
const (
	pathDashboard     = "/api/intelligence/dashboard"
	pathOpportunities = "/api/intelligence/opportunities"
)

// IntelligenceAppService serves the dashboard and opportunity map. Payloads
// go through an in-process L1 cache and a Redis L2 cache; when the backend is
// unreachable and nothing is cached, a zeroed fallback marked stale keeps the
// frontend rendering.
type IntelligenceAppService interface {
	Dashboard(ctx context.Context, userID string) (*dto.DashboardResponse, error)
	Opportunities(ctx context.Context, userID string) (*dto.OpportunitiesResponse, error)
	MapClusters(ctx context.Context, userID string) ([]geo.Cluster, bool, error)
}

type intelligenceAppServiceImpl struct {
	backend *upstream.Client
	local   *gocache.Cache
	cache   domainService.CacheManager
	l2TTL   time.Duration
	scale   *geo.ColorScale
	metrics *monitoring.Metrics
	logger  logger.Logger
}

// NewIntelligenceAppService creates the intelligence application service.
func NewIntelligenceAppService(
	backend *upstream.Client,
	cache domainService.CacheManager,
	cfg *config.CacheConfig,
	metrics *monitoring.Metrics,
	log logger.Logger,
) IntelligenceAppService {
	localTTL := time.Duration(cfg.LocalTTL) * time.Second
	if localTTL <= 0 {
		localTTL = 30 * time.Second
	}
	l2TTL := time.Duration(cfg.DashboardTTL) * time.Second
	if l2TTL <= 0 {
		l2TTL = constants.DashboardCacheTTL
	}
	return &intelligenceAppServiceImpl{
		backend: backend,
		local:   gocache.New(localTTL, 2*localTTL),
		cache:   cache,
		l2TTL:   l2TTL,
		scale:   geo.NewColorScale(geo.DefaultRampStops),
		metrics: metrics,
		logger:  log.WithComponent("IntelligenceAppService"),
	}
}

func (s *intelligenceAppServiceImpl) Dashboard(ctx context.Context, userID string) (*dto.DashboardResponse, error) {
	key := constants.CacheKeyDashboard + userID

	var dash models.Dashboard
	err := s.fetch(ctx, key, pathDashboard, userID, s.l2TTL, &dash)
	if err != nil {
		if !errors.IsUpstreamUnavailable(err) {
			return nil, err
		}
		// Nothing cached and no backend. Serve the zeroed shape.
		s.metrics.RecordFallback("dashboard")
		return &dto.DashboardResponse{
			Dashboard: &models.Dashboard{Currency: "USD", GeneratedAt: time.Now()},
			Stale:     true,
		}, nil
	}
	return &dto.DashboardResponse{Dashboard: &dash, Stale: false}, nil
}

func (s *intelligenceAppServiceImpl) Opportunities(ctx context.Context, userID string) (*dto.OpportunitiesResponse, error) {
	opps, stale, err := s.opportunities(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.OpportunitiesResponse{Opportunities: opps, Stale: stale}, nil
}

func (s *intelligenceAppServiceImpl) MapClusters(ctx context.Context, userID string) ([]geo.Cluster, bool, error) {
	opps, stale, err := s.opportunities(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	markers := make([]models.MapMarker, 0, len(opps))
	for _, o := range opps {
		if o.Latitude == 0 && o.Longitude == 0 {
			continue
		}
		markers = append(markers, models.MapMarker{
			Latitude:  o.Latitude,
			Longitude: o.Longitude,
			Value:     o.Value,
			Count:     1,
			Label:     o.Title,
		})
	}
	return geo.ClusterMarkers(markers, s.scale), stale, nil
}

func (s *intelligenceAppServiceImpl) opportunities(ctx context.Context, userID string) ([]models.Opportunity, bool, error) {
	key := constants.CacheKeyOpportunities + userID

	var opps []models.Opportunity
	err := s.fetch(ctx, key, pathOpportunities, userID, s.l2TTL, &opps)
	if err != nil {
		if !errors.IsUpstreamUnavailable(err) {
			return nil, false, err
		}
		s.metrics.RecordFallback("opportunities")
		return []models.Opportunity{}, true, nil
	}
	return opps, false, nil
}

// fetch resolves a payload through L1, L2, then the backend, filling the
// caches on the way back.
func (s *intelligenceAppServiceImpl) fetch(ctx context.Context, key, path, userID string, ttl time.Duration, out interface{}) error {
	if raw, ok := s.local.Get(key); ok {
		s.metrics.RecordCache("l1", true)
		return json.Unmarshal(raw.([]byte), out)
	}
	s.metrics.RecordCache("l1", false)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		s.metrics.RecordCache("l2", true)
		s.local.Set(key, []byte(cached), gocache.DefaultExpiration)
		return json.Unmarshal([]byte(cached), out)
	}
	s.metrics.RecordCache("l2", false)

	if err := s.backend.GetJSON(ctx, path, out, upstream.WithUser(userID)); err != nil {
		return err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	s.local.Set(key, data, gocache.DefaultExpiration)
	if err := s.cache.Set(ctx, key, string(data), ttl); err != nil {
		s.logger.Warn(ctx, "intel cache write failed", logger.Error(err), logger.String("key", key))
	}
	return nil
}
