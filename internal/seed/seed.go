package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/pressline/internal/config"
	operatordomain "github.com/smallbiznis/pressline/internal/operator/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultAdminFullName = "Administrator"

var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, svc operatordomain.Service, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return EnsureBootstrapAdmin(ctx, cfg.Bootstrap, svc, log)
			},
		})
	}),
)

// EnsureBootstrapAdmin creates the configured operator when the operators
// table is empty. Missing login or password disables the bootstrap.
func EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig, svc operatordomain.Service, log *zap.Logger) error {
	if svc == nil {
		return errors.New("seed operator service is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("seed")

	login := strings.TrimSpace(cfg.AdminLogin)
	if login == "" || cfg.AdminPassword == "" {
		log.Debug("bootstrap admin not configured")
		return nil
	}

	fullName := strings.TrimSpace(cfg.AdminFullName)
	if fullName == "" {
		fullName = defaultAdminFullName
	}

	created, err := svc.EnsureBootstrapAdmin(ctx, operatordomain.CreateRequest{
		Login:    login,
		FullName: fullName,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		return err
	}
	if created {
		log.Info("bootstrap admin created", zap.String("login", login))
	}
	return nil
}
