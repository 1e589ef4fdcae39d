package logger

import (
	"go.uber.org/zap"
)

// NewNamed builds a zap logger for the given environment, named after the
// service. Production uses the JSON production config; everything else gets
// the development console encoder.
func NewNamed(env, name string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if env == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return l.Named(name), nil
}
