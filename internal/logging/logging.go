/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logging configures the zerolog logger shared by every node type
// in the streaming-node server, mixer included.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Setup configures zerolog for the process and returns the root logger.
// Every package in this module takes a *zerolog.Logger value at
// construction rather than reaching for the global logger, so tests can
// inject a silent one.
func Setup(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if environment == "development" {
		level = zerolog.DebugLevel
	}

	if environment == "development" {
		writer := zerolog.ConsoleWriter{Out: os.Stdout}
		return zerolog.New(writer).With().Timestamp().Logger().Level(level)
	}

	// Production/staging: plain JSON lines, suitable for log collection.
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
}
