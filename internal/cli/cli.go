// Package cli provides the flags and commands shared by the server binaries.
package cli

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/config"
	"github.com/effective-security/mcpweather/encoding"
	yamlenc "github.com/effective-security/mcpweather/encoding/yaml"
	"github.com/effective-security/mcpweather/tools"
	"github.com/effective-security/mcpweather/toolset"
	"github.com/effective-security/mcpweather/weather"
	"github.com/spf13/cobra"
)

// Flags are the persistent flags of the root command
type Flags struct {
	ConfigFile string
	Tools      string
}

// Register adds the flags to the root command
func (f *Flags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.ConfigFile, "config", "c", "", "path to the yaml config file")
	cmd.PersistentFlags().StringVar(&f.Tools, "tools", "", "tool set to serve: calculator|weather")
}

// LoadConfig loads the config file, applies the flag overrides
// and configures logging
func (f *Flags) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		return nil, err
	}
	if f.Tools != "" {
		cfg.Server.Tools = f.Tools
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if err := config.ConfigureLogging(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Commands returns the tools, forecast and config commands
func Commands(f *Flags) []*cobra.Command {
	return []*cobra.Command{
		ToolsCommand(f),
		ForecastCommand(f),
		ConfigCommand(f),
	}
}

func outputFlag(cmd *cobra.Command, output *string, def string) {
	cmd.Flags().StringVarP(output, "output", "o", def, "output format: "+strings.Join(encoding.Modes, "|"))
}

func write(cmd *cobra.Command, output string, v any) error {
	enc, err := encoding.NewEncoder(output)
	if err != nil {
		return err
	}
	bs, err := enc.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", output)
	}
	out := cmd.OutOrStdout()
	if _, err = out.Write(bs); err != nil {
		return err
	}
	if len(bs) > 0 && bs[len(bs)-1] != '\n' {
		_, err = fmt.Fprintln(out)
	}
	return err
}

// ToolsCommand returns the command printing the descriptions of the tool set
func ToolsCommand(f *Flags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tools of the configured tool set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.LoadConfig()
			if err != nil {
				return err
			}
			set, err := toolset.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer set.Close()

			if output == encoding.ModeYAML {
				_, err = fmt.Fprint(cmd.OutOrStdout(), tools.GetDescriptions(set.Tools...))
				return err
			}
			return write(cmd, output, tools.Describe(set.Tools...))
		},
	}
	outputFlag(cmd, &output, encoding.ModeYAML)
	return cmd
}

// ForecastCommand returns the command printing the forecast of a location
func ForecastCommand(f *Flags) *cobra.Command {
	var (
		output    string
		latitude  float64
		longitude float64
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print the weather forecast of a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.LoadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			set := &toolset.Set{}
			defer set.Close()

			wc, err := toolset.NewWeatherClient(ctx, &cfg.Weather, set)
			if err != nil {
				return err
			}

			forecast, err := wc.FetchForecast(ctx, weather.Point{Latitude: latitude, Longitude: longitude})
			if err != nil {
				return err
			}

			if output == encoding.ModeText {
				report, err := weather.Render(forecast)
				if err != nil {
					return err
				}
				return write(cmd, output, report)
			}
			return write(cmd, output, forecast)
		},
	}
	cmd.Flags().Float64Var(&latitude, "latitude", 0, "the latitude of the location")
	cmd.Flags().Float64Var(&longitude, "longitude", 0, "the longitude of the location")
	_ = cmd.MarkFlagRequired("latitude")
	_ = cmd.MarkFlagRequired("longitude")
	outputFlag(cmd, &output, encoding.ModeText)
	return cmd
}

// ConfigCommand returns the command printing the effective configuration
func ConfigCommand(f *Flags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.LoadConfig()
			if err != nil {
				return err
			}
			if output == encoding.ModeYAML {
				bs, err := yamlenc.NewEncoder().WithCommentStyle(yamlenc.LineComment).Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(bs)
				return err
			}
			return write(cmd, output, cfg)
		},
	}
	outputFlag(cmd, &output, encoding.ModeYAML)
	return cmd
}
