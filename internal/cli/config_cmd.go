// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration management.
//
//	chathub config                  show the effective configuration
//	chathub config path             print the config file location
//	chathub config init [--force]   write a default config file
//	chathub config get <key>        print one value
//	chathub config set <key> <val>  change one value in the file
//	chathub config keys             list every key
//	chathub config reset [-y]       overwrite the file with defaults
//
// get and show report the effective value, environment overrides included;
// set and reset only ever touch the file.
package cli

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chathub/internal/cloud"
	"github.com/jeranaias/chathub/internal/config"
)

var configSubcommands = []string{"show", "path", "init", "get", "set", "keys", "reset"}

func (a *App) runConfig() error {
	p := NewArgParser(a.Args.Raw, "force", "confirm", "y")
	sub := strings.ToLower(p.Subcommand())

	path, err := a.configPath()
	if err != nil {
		return err
	}

	switch sub {
	case "", "show":
		safe := a.Config.Redacted()
		if a.Args.JSON {
			return a.printJSON(CmdConfig, safe)
		}
		fmt.Fprintln(a.Out, DimStyle.Render("# "+path))
		return toml.NewEncoder(a.Out).Encode(safe)

	case "path":
		if a.Args.JSON {
			return a.printJSON(CmdConfig, map[string]any{"path": path, "exists": fileExists(path)})
		}
		fmt.Fprintln(a.Out, path)
		if !fileExists(path) && !a.Args.Quiet {
			fmt.Fprintln(a.Err, DimStyle.Render("(file does not exist yet; `chathub config init` creates it)"))
		}
		return nil

	case "init":
		if fileExists(path) && !p.BoolFlag("force") {
			return &ValidationError{
				Field:   "config",
				Value:   path,
				Reason:  "file already exists",
				Example: "chathub config init --force",
			}
		}
		return a.writeConfig(path, config.Default(), "Wrote default configuration")

	case "reset":
		ok, err := RequireConfirmation(a.In, a.Out, "reset "+path+" to defaults", ConfirmationOptions{
			ConfirmFlag: p.BoolFlag("confirm", "y"),
			JSONMode:    a.Args.JSON,
			Interactive: isTerminalReader(a.In),
		})
		if err != nil {
			return err
		}
		if !ok {
			showCancelled(a.Out)
			return nil
		}
		return a.writeConfig(path, config.Default(), "Configuration reset to defaults")

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "chathub config get model")
		}
		v, err := a.Config.Get(key)
		if err != nil {
			return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "chathub config keys"}
		}
		value := maskIfSecret(key, fmt.Sprint(v))
		if a.Args.JSON {
			return a.printJSON(CmdConfig, map[string]any{"key": key, "value": value})
		}
		fmt.Fprintln(a.Out, value)
		return nil

	case "set":
		key, value := p.Positional(1), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "chathub config set model gpt-4o")
		}
		cfg, err := loadConfigFile(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "chathub config keys"}
		}
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if key == "api_key" && !cloud.ValidateAPIKey(value) && !a.Args.Quiet {
			fmt.Fprintln(a.Err, WarningStyle.Render("warning:")+" this does not look like an OpenRouter key (sk-or-...)")
		}
		return a.writeConfig(path, cfg, fmt.Sprintf("Set %s = %s", key, maskIfSecret(key, value)))

	case "keys":
		keys := config.Keys()
		if a.Args.JSON {
			return a.printJSON(CmdConfig, keys)
		}
		for _, k := range keys {
			fmt.Fprintln(a.Out, k)
		}
		return nil

	default:
		return ErrUnknownSubcommand(CmdConfig.String(), sub, configSubcommands)
	}
}

// configPath is --config when given, else the default location.
func (a *App) configPath() (string, error) {
	if a.Args.ConfigPath != "" {
		return a.Args.ConfigPath, nil
	}
	return config.ConfigPath()
}

func (a *App) writeConfig(path string, cfg *config.Config, msg string) error {
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	if a.Args.JSON {
		return a.printJSON(CmdConfig, map[string]any{"path": path, "message": msg})
	}
	if !a.Args.Quiet {
		fmt.Fprintf(a.Out, "%s %s\n", SuccessStyle.Render("✓"), msg)
		fmt.Fprintln(a.Out, RenderField("Config file", path))
	}
	return nil
}

// loadConfigFile reads only what the file says, without environment
// overrides, so set never writes a CHATHUB_* value back to disk.
func loadConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	if !fileExists(path) {
		return cfg, nil
	}
	if err := config.LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// maskIfSecret masks values of secret keys with a short SHA-256
// fingerprint.
func maskIfSecret(key, value string) string {
	lower := strings.ToLower(key)
	if !strings.HasSuffix(lower, "_key") && !strings.Contains(lower, "secret") && !strings.Contains(lower, "password") {
		return value
	}
	if value == "" {
		return "(not set)"
	}
	h := sha256.Sum256([]byte(value))
	return fmt.Sprintf("sha256:%x...", h[:4])
}
