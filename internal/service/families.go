package service

// Device family codes as they appear in the basestation sensor list,
// mapped to the family names consumers ask for.
var familyByCode = map[string]string{
	"bn01": "button",
	"bs01": "base",
	"cl01": "climate",
	"ds01": "door",
	"ds02": "door",
	"is01": "siren",
	"ps01": "motion",
	"ps02": "motion",
	"sd01": "smoke",
	"sp01": "plug",
	"sp02": "plug",
	"ts01": "thermostat",
	"um01": "universal",
	"wd01": "water",
	"ws02": "window",
	"yc01": "camera",
}

// Families returns the known family names, deduplicated.
func Families() []string {
	seen := make(map[string]struct{}, len(familyByCode))
	var out []string
	for _, name := range familyByCode {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
