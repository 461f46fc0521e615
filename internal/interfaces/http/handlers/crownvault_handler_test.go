package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
)

type stubVaultService struct {
	heirs []models.Heir
	err   error

	gotUserID  string
	gotAssetID string
}

func (s *stubVaultService) ListAssets(context.Context, string) ([]models.Asset, error) {
	return nil, s.err
}

func (s *stubVaultService) GetAsset(context.Context, string, string) (*models.Asset, error) {
	return nil, s.err
}

func (s *stubVaultService) CreateAsset(context.Context, string, *dto.AssetRequest) (*models.Asset, error) {
	return nil, s.err
}

func (s *stubVaultService) UpdateAsset(context.Context, string, string, *dto.AssetRequest) (*models.Asset, error) {
	return nil, s.err
}

func (s *stubVaultService) DeleteAsset(context.Context, string, string) error {
	return s.err
}

func (s *stubVaultService) ListHeirs(_ context.Context, userID, assetID string) ([]models.Heir, error) {
	s.gotUserID, s.gotAssetID = userID, assetID
	return s.heirs, s.err
}

func (s *stubVaultService) AddHeir(context.Context, string, string, *dto.HeirRequest) (*models.Heir, error) {
	return nil, s.err
}

func vaultTestRouter(svc *stubVaultService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCrownVaultHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("session", &models.Session{UserID: "user-1"})
	})
	r.GET("/crown-vault/assets/:id/heirs", h.ListHeirs)
	return r
}

func TestCrownVaultHandlerListHeirs(t *testing.T) {
	svc := &stubVaultService{heirs: []models.Heir{
		{ID: "h1", Name: "Ada", Relationship: "daughter", SharePercent: 100},
	}}
	r := vaultTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/crown-vault/assets/asset-9/heirs", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", svc.gotUserID)
	assert.Equal(t, "asset-9", svc.gotAssetID)
	assert.Contains(t, w.Body.String(), `"name":"Ada"`)
}
