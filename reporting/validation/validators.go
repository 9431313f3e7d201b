package validation

import (
	"regexp"
	"slices"
)

var cronRegex = regexp.MustCompile(`^[0-9*/,-]+\s+[0-9*/,-]+\s+[0-9*/,-]+\s+[0-9*/,-]+\s+[0-9*/,-]+$`)

func bound(v float64) *float64 {
	return &v
}

func checkRange(field string, v float64, min, max *float64) error {
	if (min != nil && v < *min) || (max != nil && v > *max) {
		return &RangeError{Field: field, Value: v, Min: min, Max: max}
	}
	return nil
}

func Latitude(field string, v float64) error {
	return checkRange(field, v, bound(-90), bound(90))
}

func Longitude(field string, v float64) error {
	return checkRange(field, v, bound(-180), bound(180))
}

func Radius(v float64) error {
	return checkRange("radius", v, bound(0), nil)
}

func DecayRate(v float64) error {
	return checkRange("dr", v, bound(0), bound(10))
}

// Box checks each coordinate and that the box has a positive extent in both
// directions. Equal bounds are rejected.
func Box(maxLat, minLat, maxLon, minLon float64) error {
	errs := []error{
		Latitude("max_lat", maxLat),
		Latitude("min_lat", minLat),
		Longitude("max_lon", maxLon),
		Longitude("min_lon", minLon),
	}
	if maxLat <= minLat {
		errs = append(errs, &OrderingError{Greater: "max_lat", Lesser: "min_lat"})
	}
	if maxLon <= minLon {
		errs = append(errs, &OrderingError{Greater: "max_lon", Lesser: "min_lon"})
	}
	return Join(errs...)
}

func Ring(latitude, longitude, radius float64) error {
	return Join(Latitude("latitude", latitude), Longitude("longitude", longitude), Radius(radius))
}

func Cron(expr string) error {
	if !cronRegex.MatchString(expr) {
		return &FormatError{Field: "cron", Value: expr, Reason: "expected five fields of digits, '*', '/', ',' or '-'"}
	}
	return nil
}

// SameType is only enforced when more than one event is supplied.
func SameType(types []string) error {
	if len(types) <= 1 {
		return nil
	}
	distinct := make([]string, 0, len(types))
	for _, t := range types {
		if !slices.Contains(distinct, t) {
			distinct = append(distinct, t)
		}
	}
	if len(distinct) > 1 {
		slices.Sort(distinct)
		return &MixedTypeError{Types: distinct}
	}
	return nil
}

// Join drops nil errors, returning nil when nothing failed.
func Join(errs ...error) error {
	errs = slices.DeleteFunc(errs, func(err error) bool { return err == nil })
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return &Errors{errs: errs}
}
