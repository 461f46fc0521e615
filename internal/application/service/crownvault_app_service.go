package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// Backend Crown Vault endpoints.
const (
	pathVaultAssets = "/api/crown-vault/assets"
	pathVaultAsset  = "/api/crown-vault/assets/%s"
	pathVaultHeirs  = "/api/crown-vault/assets/%s/heirs"
)

// CrownVaultAppService proxies estate asset and heir management. Asset lists
// are cached per user; every mutation invalidates the cache.
type CrownVaultAppService interface {
	ListAssets(ctx context.Context, userID string) ([]models.Asset, error)
	GetAsset(ctx context.Context, userID, assetID string) (*models.Asset, error)
	CreateAsset(ctx context.Context, userID string, req *dto.AssetRequest) (*models.Asset, error)
	UpdateAsset(ctx context.Context, userID, assetID string, req *dto.AssetRequest) (*models.Asset, error)
	DeleteAsset(ctx context.Context, userID, assetID string) error
	ListHeirs(ctx context.Context, userID, assetID string) ([]models.Heir, error)
	AddHeir(ctx context.Context, userID, assetID string, req *dto.HeirRequest) (*models.Heir, error)
}

type crownVaultAppServiceImpl struct {
	backend  *upstream.Client
	cache    domainService.CacheManager
	assetTTL time.Duration
	metrics  *monitoring.Metrics
	logger   logger.Logger
}

// NewCrownVaultAppService creates the Crown Vault application service.
func NewCrownVaultAppService(
	backend *upstream.Client,
	cache domainService.CacheManager,
	cfg *config.CacheConfig,
	metrics *monitoring.Metrics,
	log logger.Logger,
) CrownVaultAppService {
	assetTTL := time.Duration(cfg.VaultAssetTTL) * time.Second
	if assetTTL <= 0 {
		assetTTL = constants.VaultAssetsCacheTTL
	}
	return &crownVaultAppServiceImpl{
		backend:  backend,
		cache:    cache,
		assetTTL: assetTTL,
		metrics:  metrics,
		logger:   log.WithComponent("CrownVaultAppService"),
	}
}

func (s *crownVaultAppServiceImpl) ListAssets(ctx context.Context, userID string) ([]models.Asset, error) {
	key := constants.CacheKeyVaultAssets + userID
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var assets []models.Asset
		if err := json.Unmarshal([]byte(cached), &assets); err == nil {
			s.metrics.RecordCache("vault_assets", true)
			return assets, nil
		}
	}
	s.metrics.RecordCache("vault_assets", false)

	var assets []models.Asset
	if err := s.backend.GetJSON(ctx, pathVaultAssets, &assets, upstream.WithUser(userID)); err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, assets, s.assetTTL); err != nil {
		s.logger.Warn(ctx, "asset cache write failed", logger.Error(err))
	}
	return assets, nil
}

func (s *crownVaultAppServiceImpl) GetAsset(ctx context.Context, userID, assetID string) (*models.Asset, error) {
	var asset models.Asset
	path := fmt.Sprintf(pathVaultAsset, assetID)
	if err := s.backend.GetJSON(ctx, path, &asset, upstream.WithUser(userID)); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *crownVaultAppServiceImpl) CreateAsset(ctx context.Context, userID string, req *dto.AssetRequest) (*models.Asset, error) {
	var asset models.Asset
	if err := s.backend.PostJSON(ctx, pathVaultAssets, req, &asset, upstream.WithUser(userID)); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return &asset, nil
}

func (s *crownVaultAppServiceImpl) UpdateAsset(ctx context.Context, userID, assetID string, req *dto.AssetRequest) (*models.Asset, error) {
	var asset models.Asset
	path := fmt.Sprintf(pathVaultAsset, assetID)
	if err := s.backend.PutJSON(ctx, path, req, &asset, upstream.WithUser(userID)); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return &asset, nil
}

func (s *crownVaultAppServiceImpl) DeleteAsset(ctx context.Context, userID, assetID string) error {
	path := fmt.Sprintf(pathVaultAsset, assetID)
	resp, err := s.backend.Do(ctx, http.MethodDelete, path, nil, upstream.WithUser(userID))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.UpstreamStatus(resp.StatusCode, "")
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *crownVaultAppServiceImpl) ListHeirs(ctx context.Context, userID, assetID string) ([]models.Heir, error) {
	var heirs []models.Heir
	path := fmt.Sprintf(pathVaultHeirs, assetID)
	if err := s.backend.GetJSON(ctx, path, &heirs, upstream.WithUser(userID)); err != nil {
		return nil, err
	}
	return heirs, nil
}

func (s *crownVaultAppServiceImpl) AddHeir(ctx context.Context, userID, assetID string, req *dto.HeirRequest) (*models.Heir, error) {
	var heir models.Heir
	path := fmt.Sprintf(pathVaultHeirs, assetID)
	if err := s.backend.PostJSON(ctx, path, req, &heir, upstream.WithUser(userID)); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return &heir, nil
}

func (s *crownVaultAppServiceImpl) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, constants.CacheKeyVaultAssets+userID); err != nil {
		s.logger.Warn(ctx, "asset cache invalidation failed", logger.Error(err), logger.String("user_id", userID))
	}
}
