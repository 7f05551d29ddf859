package domain

import (
	"fmt"
	"strings"
)

// VehicleCompatibility identifies one vehicle range a part fits. A part owns
// an order-irrelevant set of these, deduplicated by Key.
type VehicleCompatibility struct {
	Brand      string
	Model      string
	YearFrom   int
	YearTo     int
	EngineCode string
}

func NewVehicleCompatibility(brand, model string, yearFrom, yearTo int, engineCode string) (VehicleCompatibility, error) {
	brand = strings.TrimSpace(brand)
	model = strings.TrimSpace(model)
	if brand == "" || model == "" {
		return VehicleCompatibility{}, NewValidationError("vehicle brand and model are required")
	}
	if yearFrom <= 0 || yearTo <= 0 || yearFrom > yearTo {
		return VehicleCompatibility{}, NewValidationError(fmt.Sprintf("invalid vehicle year range %d-%d", yearFrom, yearTo))
	}
	return VehicleCompatibility{
		Brand:      brand,
		Model:      model,
		YearFrom:   yearFrom,
		YearTo:     yearTo,
		EngineCode: strings.TrimSpace(engineCode),
	}, nil
}

// Key is the set identity of a compatibility entry.
func (v VehicleCompatibility) Key() string {
	return strings.ToUpper(fmt.Sprintf("%s|%s|%d|%d|%s", v.Brand, v.Model, v.YearFrom, v.YearTo, v.EngineCode))
}

// DedupeVehicles drops duplicate compatibility entries, keeping first wins.
func DedupeVehicles(in []VehicleCompatibility) []VehicleCompatibility {
	seen := make(map[string]struct{}, len(in))
	out := make([]VehicleCompatibility, 0, len(in))
	for _, v := range in {
		k := v.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
