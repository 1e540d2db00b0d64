package weather

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

const reportTemplate = `Forecast updated: {{ .UpdateTime | default "unknown" }}
{{ range .Periods -}}
=====================
Period: {{ .Name }}
{{ if .Fahrenheit -}}
Temperature: {{ .Temperature }} °F / {{ printf "%.1f" .Celsius }} °C
{{ else -}}
Temperature: {{ .Temperature }} {{ .Unit | trim }}
{{ end -}}
Wind: {{ .WindDirection }} {{ .WindSpeed }}
Summary: {{ .ShortForecast }}
Details: {{ .DetailedForecast }}
Start: {{ .StartTime }}
End: {{ .EndTime }}
{{ end -}}
`

var report = template.Must(template.New("report").Funcs(sprig.TxtFuncMap()).Parse(reportTemplate))

type reportView struct {
	UpdateTime string
	Periods    []periodView
}

type periodView struct {
	Name             string
	Temperature      int
	Unit             string
	Fahrenheit       bool
	Celsius          float64
	WindDirection    string
	WindSpeed        string
	ShortForecast    string
	DetailedForecast string
	StartTime        string
	EndTime          string
}

// Render returns the human readable report of the forecast,
// periods are rendered in order
func Render(f *Forecast) (string, error) {
	if f == nil {
		return "", errors.New("forecast is nil")
	}

	view := reportView{
		Periods: make([]periodView, 0, len(f.Periods)),
	}
	if f.UpdateTime != nil {
		view.UpdateTime = *f.UpdateTime
	}
	for i := range f.Periods {
		p := &f.Periods[i]
		view.Periods = append(view.Periods, periodView{
			Name:             p.Name,
			Temperature:      p.Temperature,
			Unit:             p.TemperatureUnit,
			Fahrenheit:       p.TemperatureUnit == UnitFahrenheit,
			Celsius:          p.Celsius(),
			WindDirection:    p.WindDirection,
			WindSpeed:        p.WindSpeed,
			ShortForecast:    p.ShortForecast,
			DetailedForecast: p.DetailedForecast,
			StartTime:        p.StartTime,
			EndTime:          p.EndTime,
		})
	}

	var sb strings.Builder
	if err := report.Execute(&sb, view); err != nil {
		return "", errors.Wrap(err, "render report")
	}
	return sb.String(), nil
}
