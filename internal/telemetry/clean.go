package telemetry

import "strings"

// replacement is one literal substitution applied to a cell.
type replacement struct {
	old, new string
}

var (
	percent      = replacement{"%", ""}
	decimalComma = replacement{",", "."}
)

// cleaningRules are applied in order to the cells of resolved columns.
var cleaningRules = map[Field][]replacement{
	Throttle:        {percent, decimalComma},
	Speed:           {{"km/h", ""}, {"kmph", ""}, {"mph", ""}, decimalComma},
	RPM:             {{"RPM", ""}, {"rpm", ""}, decimalComma},
	EngineLoad:      {percent, decimalComma},
	FuelLevel:       {percent, decimalComma},
	Brake:           {percent, decimalComma},
	Battery:         {percent, {"A", ""}, decimalComma},
	CoolantTemp:     {{"°C", ""}, decimalComma},
	TripDistance:    {{"km", ""}, decimalComma},
	TripTime:        {decimalComma},
	Latitude:        {decimalComma},
	Longitude:       {decimalComma},
	Acceleration:    {decimalComma},
	DriverRating:    {decimalComma},
	SteeringAngle:   {decimalComma},
	AngularVelocity: {decimalComma},
	GearPosition:    {decimalComma},
	TirePressure:    {decimalComma},
	BrakePressure:   {decimalComma},
	VehicleNumber:   {{"(", ""}, {")", ""}, {"[", ""}, {"]", ""}, {"{", ""}, {"}", ""}},
}

// CleanCell applies the rules for f to one cell and trims it.
func CleanCell(f Field, cell string) string {
	for _, r := range cleaningRules[f] {
		cell = strings.ReplaceAll(cell, r.old, r.new)
	}
	return strings.TrimSpace(cell)
}

// Clean strips unit suffixes and locale decimal commas from every resolved
// column of t, in place. Columns that are not canonical fields are left alone.
func Clean(t *Table) {
	for ci, name := range t.Columns {
		f := Field(name)
		if _, ok := cleaningRules[f]; !ok {
			continue
		}
		for _, row := range t.Rows {
			if ci < len(row) {
				row[ci] = CleanCell(f, row[ci])
			}
		}
	}
}

// sourceDivisors rescale columns whose source unit differs from the canonical
// one, keyed by the normalized source column name. Trip time is in minutes.
var sourceDivisors = map[Field]map[string]float64{
	TripTime: {NormalizeName("Trip Time(Since journey start)(s)"): 60},
}

// ConvertUnits rescales resolved columns of t, in place, according to the
// source column each field was mapped from. Run it after Clean.
func ConvertUnits(t *Table, res Resolution) {
	for f, divisors := range sourceDivisors {
		src, ok := res.Mapped[f]
		if !ok {
			continue
		}
		div, ok := divisors[NormalizeName(src)]
		if !ok {
			continue
		}
		vals := t.Floats(f)
		if vals == nil {
			continue
		}
		for i := range vals {
			vals[i] /= div
		}
		t.SetFloats(f, vals)
	}
}
