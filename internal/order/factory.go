package order

import (
	"fmt"

	"gorm.io/gorm"

	"paycom/internal/config"
	"paycom/internal/pkg/httpclient"
	"paycom/internal/repository"
)

// NewProvider builds the order provider selected by configuration.
func NewProvider(cfg config.OrderConfig, db *gorm.DB) (Provider, error) {
	switch cfg.Provider {
	case "", "database", "db":
		return NewDatabaseProvider(repository.NewOrderRepository(db)), nil
	case "http":
		if cfg.ServiceURL == "" {
			return nil, fmt.Errorf("order provider http requires ORDER_SERVICE_URL")
		}
		client := httpclient.New().WithTimeout(cfg.Timeout)
		if cfg.ServiceToken != "" {
			client = client.WithBearerToken(cfg.ServiceToken)
		}
		return NewHTTPProvider(cfg.ServiceURL, client), nil
	default:
		return nil, fmt.Errorf("unsupported order provider: %s", cfg.Provider)
	}
}
