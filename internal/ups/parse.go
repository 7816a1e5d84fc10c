package ups

import (
	"math"
	"regexp"
	"strconv"
)

// ChargingThreshold is the input voltage above which the pack is
// considered plugged in.
const ChargingThreshold = 4.5

var (
	vinPattern    = regexp.MustCompile(`\bVin\s*([^\s,]*)`)
	batcapPattern = regexp.MustCompile(`\bBATCAP\s*([^\s,]*)`)
	vbatPattern   = regexp.MustCompile(`\bVbat\s*([^\s,]*)`)

	// A number optionally followed by a unit such as "V" or "%".
	numberPattern = regexp.MustCompile(`^([-+]?[0-9]*\.?[0-9]+)[A-Za-z%]*$`)
)

// Update is a partial UPS state. Nil fields leave the state unchanged.
type Update struct {
	Voltage      *float64
	Capacity     *float64
	InputVoltage *float64
	Charging     *bool

	// Recognized is set when the line carried at least one known key,
	// even if its number could not be parsed.
	Recognized bool
}

// ParseLine extracts Vin, BATCAP and Vbat from one status line such as
// "SmartUPS V3.1,Vin 5.10,BATCAP 95,Vout 5.10". Unit suffixes ("5.10V",
// "95%") are accepted. A malformed number drops only that field. Charging is not derived here; it depends on the merged
// state and is computed by Store.ApplyLine.
func ParseLine(line string) Update {
	var u Update

	u.InputVoltage = field(vinPattern, line, &u.Recognized)
	u.Capacity = field(batcapPattern, line, &u.Recognized)
	u.Voltage = field(vbatPattern, line, &u.Recognized)

	return u
}

func field(re *regexp.Regexp, line string, recognized *bool) *float64 {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	*recognized = true

	n := numberPattern.FindStringSubmatch(m[1])
	if n == nil {
		return nil
	}
	v, err := strconv.ParseFloat(n[1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Empty reports whether u would change nothing.
func (u Update) Empty() bool {
	return u.Voltage == nil && u.Capacity == nil && u.InputVoltage == nil && u.Charging == nil
}
