package cli_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/mcpweather/config"
	"github.com/effective-security/mcpweather/internal/cli"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot(f *cli.Flags) *cobra.Command {
	root := &cobra.Command{Use: "test", SilenceUsage: true, SilenceErrors: true}
	f.Register(root)
	root.AddCommand(cli.Commands(f)...)
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	root := newRoot(&cli.Flags{})
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func nwsServer(t *testing.T) *httptest.Server {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/points/37.7749,-122.4194":
			fmt.Fprintf(w, `{"properties":{
				"forecast":"%[1]s/gridpoints/MTR/85,105/forecast",
				"forecastHourly":"%[1]s/gridpoints/MTR/85,105/forecast/hourly",
				"relativeLocation":{"properties":{"city":"San Francisco","state":"CA"}},
				"gridId":"MTR","gridX":85,"gridY":105,"timeZone":"America/Los_Angeles"}}`, srv.URL)
		case "/gridpoints/MTR/85,105/forecast":
			_, _ = io.WriteString(w, `{"properties":{"updateTime":"2025-01-06T10:00:00+00:00","periods":[
				{"number":1,"name":"Today","temperature":50,"temperatureUnit":"F","windSpeed":"10 mph","windDirection":"NW",
				 "shortForecast":"Sunny","detailedForecast":"Sunny.","startTime":"s","endTime":"e"}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func weatherConfig(t *testing.T, baseURL string) string {
	file := filepath.Join(t.TempDir(), "weather.yaml")
	cfg := fmt.Sprintf("server:\n  tools: weather\nweather:\n  base_url: %s\n  grid_cache:\n    kind: memory\n", baseURL)
	require.NoError(t, os.WriteFile(file, []byte(cfg), 0o600))
	return file
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.LogLevelEnv, "")

	f := &cli.Flags{}
	cfg, err := f.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ToolsCalculator, cfg.Server.Tools)

	f.Tools = config.ToolsWeather
	cfg, err = f.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ToolsWeather, cfg.Server.Tools)

	f.Tools = "chess"
	_, err = f.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'Tools' failed on the 'oneof' tag")

	f = &cli.Flags{ConfigFile: "../../config/testdata/minimal.yaml"}
	cfg, err = f.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ToolsCalculator, cfg.Server.Tools)
}

func TestToolsCommand(t *testing.T) {
	t.Setenv(config.LogLevelEnv, "")

	tcases := []struct {
		args []string
		exp  []string
	}{
		{args: []string{"tools"}, exp: []string{"Name: sub", "Name: sum", "the left hand side number"}},
		{args: []string{"tools", "--tools", "weather"}, exp: []string{"Name: get_weather_info", "the latitude of the location"}},
	}
	for _, tc := range tcases {
		f := &cli.Flags{}
		root := newRoot(f)
		out := &bytes.Buffer{}
		root.SetOut(out)
		root.SetArgs(tc.args)
		require.NoError(t, root.Execute())
		for _, exp := range tc.exp {
			assert.Contains(t, out.String(), exp)
		}
	}

	root := newRoot(&cli.Flags{})
	root.SetArgs([]string{"tools", "--tools", "chess"})
	assert.Error(t, root.Execute())
}

func TestToolsCommand_Output(t *testing.T) {
	t.Setenv(config.LogLevelEnv, "")

	tcases := []struct {
		output string
		exp    []string
	}{
		{output: "json", exp: []string{`"Name": "sub"`, `"Name": "sum"`}},
		{output: "toml", exp: []string{`Name = "sub"`, `[[Tools]]`}},
		{output: "text", exp: []string{`"Name": "sum"`}},
	}
	for _, tc := range tcases {
		t.Run(tc.output, func(t *testing.T) {
			out, err := execute(t, "tools", "--output", tc.output)
			require.NoError(t, err)
			for _, exp := range tc.exp {
				assert.Contains(t, out, exp)
			}
		})
	}

	_, err := execute(t, "tools", "-o", "xml")
	assert.EqualError(t, err, `unsupported output format: "xml"`)
}

func TestForecastCommand(t *testing.T) {
	t.Setenv(config.LogLevelEnv, "")

	nws := nwsServer(t)
	file := weatherConfig(t, nws.URL)
	args := []string{"forecast", "-c", file, "--latitude", "37.7749", "--longitude", "-122.4194"}

	tcases := []struct {
		output string
		exp    []string
	}{
		{output: "text", exp: []string{"Forecast updated: 2025-01-06T10:00:00+00:00", "Period: Today", "Temperature: 50 °F / 10.0 °C"}},
		{output: "json", exp: []string{`"update_time": "2025-01-06T10:00:00+00:00"`, `"name": "Today"`, `"temperature": 50`}},
		{output: "yaml", exp: []string{"2025-01-06T10:00:00+00:00", "name: Today", "temperature: 50"}},
		{output: "toml", exp: []string{"[[periods]]", `name = "Today"`}},
	}
	for _, tc := range tcases {
		t.Run(tc.output, func(t *testing.T) {
			out, err := execute(t, append(args, "--output", tc.output)...)
			require.NoError(t, err)
			for _, exp := range tc.exp {
				assert.Contains(t, out, exp)
			}
		})
	}

	t.Run("unknown point", func(t *testing.T) {
		_, err := execute(t, "forecast", "-c", file, "--latitude", "1", "--longitude", "1")
		assert.Error(t, err)
	})
	t.Run("missing flags", func(t *testing.T) {
		_, err := execute(t, "forecast", "-c", file, "--latitude", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `required flag(s) "longitude" not set`)
	})
}

func TestConfigCommand(t *testing.T) {
	t.Setenv(config.LogLevelEnv, "")

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "tools: calculator # calculator|weather\n")
	assert.Contains(t, out, "base_url: https://api.weather.gov\n")
	assert.Contains(t, out, "kind: none # none|memory|redis\n")

	out, err = execute(t, "config", "--tools", "weather", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tools": "weather"`)
	assert.Contains(t, out, `"request_timeout_sec": 10`)

	out, err = execute(t, "config", "-c", "../../config/testdata/weather.yaml", "-o", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, `listen = "127.0.0.1:9000"`)

	_, err = execute(t, "config", "-c", "../../config/testdata/invalid_tools.yaml")
	assert.Error(t, err)
}
