package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
)

// ServerConfig holds transport level settings.
type ServerConfig struct {
	AppName        string
	BodyLimitMB    int
	RequestTimeout time.Duration
}

// NewApp builds the fiber app with the shared error handler, the json-iterator
// codec and the global middlewares. Routes are registered separately.
func NewApp(cfg ServerConfig, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	bodyLimit := cfg.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 32
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		BodyLimit:             bodyLimit * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, metrics),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout)
	return app
}
