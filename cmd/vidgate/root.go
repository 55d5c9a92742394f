// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vidgate/internal/config"
	vglog "github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/version"
)

// envConfigPath names the config file when --config is not given.
const envConfigPath = "VIDGATE_CONFIG"

// cli carries state shared between the root command and its subcommands.
type cli struct {
	configPath string
	cfg        config.AppConfig
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "vidgate",
		Short:         "Resilient multi-backend video gateway",
		Long:          "vidgate resolves playable streams from an ordered pool of video backends and falls back to the embedded player when none answers in time.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoConfig] == "true" {
				return nil
			}
			return c.loadConfig()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config file (YAML), or $"+envConfigPath)

	root.AddCommand(
		newServeCmd(c),
		newResolveCmd(c),
		newEndpointsCmd(c),
		newHealthcheckCmd(c),
		newVersionCmd(),
	)
	return root
}

// annotationNoConfig marks commands that run without loading configuration.
const annotationNoConfig = "vidgate/no-config"

func (c *cli) loadConfig() error {
	vglog.Configure(vglog.Config{Level: "info", Version: version.Version})
	logger := vglog.WithComponent("cli")

	path := strings.TrimSpace(c.configPath)
	if path == "" {
		path = strings.TrimSpace(config.ParseString(envConfigPath, ""))
	}

	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(vglog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
		return err
	}
	c.cfg = cfg

	vglog.Configure(vglog.Config{Level: cfg.LogLevel, Version: cfg.Version})

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger = vglog.WithComponent("cli")
	logger.Info().
		Str(vglog.FieldEvent, "config.loaded").
		Str(vglog.FieldSource, source).
		Str("path", path).
		Msg("configuration loaded")
	return nil
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version and build metadata",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoConfig: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			if short {
				cmd.Println(version.Version)
				return
			}
			cmd.Println("vidgate " + version.String())
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version string")
	return cmd
}
