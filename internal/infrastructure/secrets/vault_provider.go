// Package secrets resolves runtime secrets from Vault, falling back to
// static configuration when Vault is disabled.
package secrets

import (
	"context"
	"fmt"
	"sync"

	vault "github.com/hashicorp/vault/api"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
	"github.com/montrose/hnwi-gateway/pkg/utils"
)

const (
	secretPathGateway = "gateway"
	keySessionSecret  = "session_secret"
	keyRazorpaySecret = "razorpay_webhook_secret"
)

// VaultProvider reads gateway secrets from a KV v2 mount. Values are cached
// after first read; rotation is handled by restarting the service.
type VaultProvider struct {
	client    *vault.Client
	mountPath string
	logger    logger.Logger

	mu     sync.Mutex
	cached map[string]string
}

var _ service.SecretProvider = (*VaultProvider)(nil)

// NewVaultProvider connects to Vault.
func NewVaultProvider(cfg *config.VaultConfig, log logger.Logger) (*VaultProvider, error) {
	vc, err := vault.NewClient(&vault.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	vc.SetToken(cfg.Token)
	return &VaultProvider{
		client:    vc,
		mountPath: cfg.MountPath,
		logger:    log.WithComponent("VaultProvider"),
		cached:    make(map[string]string),
	}, nil
}

func (p *VaultProvider) SessionSecret(ctx context.Context) ([]byte, error) {
	v, err := p.read(ctx, keySessionSecret)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (p *VaultProvider) WebhookSecret(ctx context.Context) (string, error) {
	return p.read(ctx, keyRazorpaySecret)
}

func (p *VaultProvider) read(ctx context.Context, key string) (string, error) {
	p.mu.Lock()
	if v, ok := p.cached[key]; ok {
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	secret, err := p.client.KVv2(p.mountPath).Get(ctx, secretPathGateway)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to read secret from vault")
	}
	v, ok := secret.Data[key].(string)
	if !ok || v == "" {
		return "", errors.ErrInternal.WithMessage("vault secret missing key %s", key)
	}

	p.mu.Lock()
	p.cached[key] = v
	p.mu.Unlock()

	p.logger.Debug(ctx, "secret resolved from vault",
		logger.String("key", key),
		logger.String("value", utils.MaskSecret(v)),
	)
	return v, nil
}

// staticProvider serves secrets straight from config.
type staticProvider struct {
	sessionSecret  string
	razorpaySecret string
}

// NewStaticProvider creates a config-backed secret provider for deployments
// without Vault.
func NewStaticProvider(auth *config.AuthConfig, webhook *config.WebhookConfig) service.SecretProvider {
	return &staticProvider{
		sessionSecret:  auth.SessionSecret,
		razorpaySecret: webhook.RazorpaySecret,
	}
}

func (p *staticProvider) SessionSecret(ctx context.Context) ([]byte, error) {
	if p.sessionSecret == "" {
		return nil, errors.ErrInternal.WithMessage("session secret not configured")
	}
	return []byte(p.sessionSecret), nil
}

func (p *staticProvider) WebhookSecret(ctx context.Context) (string, error) {
	if p.razorpaySecret == "" {
		return "", errors.ErrInternal.WithMessage("webhook secret not configured")
	}
	return p.razorpaySecret, nil
}

// NewProvider picks the Vault or static provider based on config.
func NewProvider(cfg *config.Config, log logger.Logger) (service.SecretProvider, error) {
	if cfg.Vault.Enabled {
		return NewVaultProvider(&cfg.Vault, log)
	}
	return NewStaticProvider(&cfg.Auth, &cfg.Webhook), nil
}
