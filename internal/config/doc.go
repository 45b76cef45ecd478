// Package config provides the configuration system for switchboard.
//
// Configuration is resolved in three layers, higher layers overriding
// lower ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← SWITCHBOARD_EVENTS_QUEUE_CAPACITY=200
//	├─────────────────────────────┤
//	│  2. Config File             │  ← switchboard.toml / .yaml / .json
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Default()
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: file decoding by extension and the environment overlay
//   - watcher: fsnotify-based change notification for live reload
//
// # Basic Usage
//
//	cfg, err := config.Load("switchboard.toml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err // every problem, combined
//	}
//
// Only the security section is meant to be reloaded at runtime; the other
// sections size buffers that are fixed when the orchestrator is built.
package config
