// Package config provides the application settings.
//
// Settings are assembled in layers, each overriding the one before:
//
//	┌─────────────────────────────┐
//	│  4. Environment Variables   │  ← DESKKIT_* (highest priority)
//	├─────────────────────────────┤
//	│  3. .env beside the file    │
//	├─────────────────────────────┤
//	│  2. Settings File           │  ← settings.toml / .yaml / .json
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← lowest priority
//	└─────────────────────────────┘
//
// The settings file format is chosen by extension. A missing file is not an
// error; the defaults and the environment are used instead.
//
//	s, err := config.Load("settings.toml")
//	if err != nil {
//	    return err
//	}
//
// Environment variables are named after the section and field, for example
// DESKKIT_LOG_LEVEL or DESKKIT_ASYNC_WORKERS.
//
// # Live Reload
//
// A Watcher reloads the settings when the file (or its .env) changes:
//
//	w, err := config.NewWatcher("settings.toml", func(s config.Settings, err error) {
//	    // called after each debounced change
//	})
//	defer w.Close()
package config
