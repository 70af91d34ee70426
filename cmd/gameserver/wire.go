//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/gameserver"
)

func initializeApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*gameserver.App, func(), error) {
	wire.Build(gameserver.ProviderSet)
	return nil, nil, nil
}
