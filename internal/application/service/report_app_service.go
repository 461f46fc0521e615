package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/montrose/hnwi-gateway/internal/application/report"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	domainService "github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/constants"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// ReportAppService assembles and renders the downloadable portfolio report.
type ReportAppService interface {
	// Generate renders the PDF for a session's user.
	Generate(ctx context.Context, session *models.Session) ([]byte, error)
}

type reportAppServiceImpl struct {
	intel    IntelligenceAppService
	vault    CrownVaultAppService
	renderer *report.Renderer
	events   domainService.EventProducer
	logger   logger.Logger
}

// NewReportAppService creates the report application service.
func NewReportAppService(
	intel IntelligenceAppService,
	vault CrownVaultAppService,
	events domainService.EventProducer,
	log logger.Logger,
) ReportAppService {
	return &reportAppServiceImpl{
		intel:    intel,
		vault:    vault,
		renderer: report.NewRenderer(),
		events:   events,
		logger:   log.WithComponent("ReportAppService"),
	}
}

func (s *reportAppServiceImpl) Generate(ctx context.Context, session *models.Session) ([]byte, error) {
	dash, err := s.intel.Dashboard(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	opps, err := s.intel.Opportunities(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	// Crown Vault data only exists for crown members; the report simply
	// omits the section for everyone else.
	var assets []models.Asset
	if session.HasTier(constants.TierCrown) {
		assets, err = s.vault.ListAssets(ctx, session.UserID)
		if err != nil && !errors.IsUpstreamUnavailable(err) {
			return nil, err
		}
	}

	pdf, err := s.renderer.Render(&report.Data{
		UserID:        session.UserID,
		Tier:          string(session.Tier),
		GeneratedAt:   time.Now(),
		Dashboard:     dash.Dashboard,
		Assets:        assets,
		Opportunities: opps.Opportunities,
	})
	if err != nil {
		return nil, errors.ErrInternal.WithError(err)
	}

	event := &models.PlatformEvent{
		EventID:   uuid.NewString(),
		Type:      models.EventReportGenerated,
		UserID:    session.UserID,
		RequestID: requestIDFrom(ctx),
		CreatedAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "event publish failed", logger.Error(err), logger.String("type", event.Type))
	}
	return pdf, nil
}
