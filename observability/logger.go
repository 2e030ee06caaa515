package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"inventory-backend/config"
)

// NewLogger builds the production JSON logger tagged with the service name.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("service", config.ServiceName),
		zap.String("version", config.ServiceVersion),
	), nil
}
