// Package events declares the slot keys shared between components that
// raise notifications and the components that own the slots.
//
// A component that owns one of these slots defines it with Slots.Define
// using the key below; anything else raises it with the matching
// eventstore.Dispatch function.
package events

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/config"
	"github.com/dshills/deskkit/internal/eventstore"
)

// Main window slots.
var (
	// ShutdownApplication asks the main window to close. The argument
	// requests a restart instead of an exit.
	ShutdownApplication = eventstore.NewKey1[bool]("OnShutdownApplication")

	// ShowGlobalExceptionDialog asks the main window to show an unexpected error.
	ShowGlobalExceptionDialog = eventstore.NewKey1[ExceptionReport]("OnShowGlobalExceptionDialog")

	// SettingsChanged delivers reloaded settings.
	SettingsChanged = eventstore.NewKey1[config.Settings]("OnSettingsChanged")
)

// Log control slots.
var (
	// TextLogReceived carries a rendered log line and the source it was bound to.
	TextLogReceived = eventstore.NewKey2[string, string]("OnTextLogReceived")

	// GridLogReceived carries one log record as columns.
	GridLogReceived = eventstore.NewKey3[time.Time, zerolog.Level, string]("OnGridLogReceived")
)
