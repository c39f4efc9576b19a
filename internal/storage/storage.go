// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/moonshot-bot/internal/storage/models"
)

// ErrNotFound возвращается, когда записи с такой подписью нет
var ErrNotFound = errors.New("trade not found")

// Storage определяет интерфейс журнала сделок
type Storage interface {
	SaveTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, signature string) (*models.Trade, error)
	ListTrades(ctx context.Context, walletAddress string, limit, offset int) ([]*models.Trade, error)
	UpdateTradeStatus(ctx context.Context, signature, status, errorMsg string) error

	RunMigrations(ctx context.Context) error
	Close()
}
