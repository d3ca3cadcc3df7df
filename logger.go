// SPDX-License-Identifier: MIT
// Copyright © 2024–2026 Alexander Demin

package gonsq

import "go.uber.org/zap"

// zapLogger adapts a *zap.SugaredLogger to the Logger interface. The
// teacher declares zap in go.mod as the logger callers are expected to
// plug in (server.go's LoggerFunc doc comment names zap explicitly) but
// never wires it up; gonsq provides the wiring directly instead of
// leaving every caller to write their own adapter.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger builds a Logger backed by a production zap.Logger. Pass
// the result to WithLogger.
func NewZapLogger() (Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return &zapLogger{s: l.Sugar()}, nil
}

// NewZapLoggerFrom adapts an existing *zap.Logger, e.g. one already
// configured elsewhere in the host application.
func NewZapLoggerFrom(l *zap.Logger) Logger {
	return &zapLogger{s: l.Sugar()}
}

func (z *zapLogger) Debug(msg string) { z.s.Debug(msg) }
func (z *zapLogger) Info(msg string)  { z.s.Info(msg) }
func (z *zapLogger) Warn(msg string)  { z.s.Warn(msg) }
