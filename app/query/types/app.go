package types

import (
	"context"
	"net/http"
	"time"

	"github.com/lunavault/saleflow/pkg/db/campaign"
	"github.com/lunavault/saleflow/pkg/ledger"
	saleredis "github.com/lunavault/saleflow/pkg/redis"
	"go.uber.org/zap"
)

type App struct {
	DB     *campaign.DB
	Redis  *saleredis.Client
	Ledger *ledger.Ledger
	// Zap Logger
	Logger *zap.Logger
	// Server handles the HTTP API.
	Server *http.Server
}

// User is an API login.
type User struct {
	Username string `json:"username"`
	Hash     []byte `json:"hash"`
	Role     string `json:"role"`
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
	if err := a.Redis.Close(); err != nil {
		a.Logger.Error("Failed to close Redis connection", zap.Error(err))
	}

	_ = a.Server.Shutdown(shutdownCtx)
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("query stopped")
}
