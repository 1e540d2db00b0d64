package weather

// UnitFahrenheit is the NWS temperature unit for Fahrenheit
const UnitFahrenheit = "F"

// Celsius converts value to Celsius when unit is "F",
// any other unit is returned unchanged.
func Celsius(value float64, unit string) float64 {
	if unit == UnitFahrenheit {
		return (value - 32) * 5 / 9
	}
	return value
}
