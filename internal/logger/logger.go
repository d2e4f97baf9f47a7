package logger

import "go.uber.org/zap"

// New builds the application logger. Production mode emits JSON to stdout;
// anything else gets the human-readable development encoder.
func New(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
