package viscera

import (
	"fmt"
	"strconv"
	"time"
)

// timestampLayout matches the remote system's timestamp rendering:
// ISO 8601 with microseconds and no zone designator, always UTC.
const timestampLayout = "2006-01-02T15:04:05.999999"

// ParseTimestamp parses a remote timestamp into a UTC time.
func ParseTimestamp(s string) (time.Time, error) {
	parsed, err := time.ParseInLocation(timestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return parsed, nil
}

// CheckString requires a string datum.
func CheckString(datum any) (string, error) {
	s, ok := datum.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", datum)
	}
	return s, nil
}

// CheckInt requires an integral datum. JSON decoding yields float64, so
// whole floats are accepted.
func CheckInt(datum any) (int, error) {
	switch v := datum.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", datum)
	}
}

// CheckBool requires a boolean datum.
func CheckBool(datum any) (bool, error) {
	b, ok := datum.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", datum)
	}
	return b, nil
}

// CheckStringSlice requires a list-of-strings datum, accepting both the
// decoded-JSON []any form and []string.
func CheckStringSlice(datum any) ([]string, error) {
	switch v := datum.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		list := make([]string, 0, len(v))
		for _, element := range v {
			s, err := CheckString(element)
			if err != nil {
				return nil, err
			}
			list = append(list, s)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("expected list of strings, got %T", datum)
	}
}

// CheckOptionalString accepts nil (as empty) or a string datum.
func CheckOptionalString(datum any) (string, error) {
	if datum == nil {
		return "", nil
	}
	return CheckString(datum)
}

// datumString renders a datum for use in a URI.
func datumString(datum any) string {
	switch v := datum.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// stringValue and intValue are ToValue adapters over the Check helpers.
func stringValue(_ *Object, datum any) (any, error) {
	return CheckString(datum)
}

func intValue(_ *Object, datum any) (any, error) {
	return CheckInt(datum)
}

func stringSliceValue(_ *Object, datum any) (any, error) {
	return CheckStringSlice(datum)
}

func optionalStringValue(_ *Object, datum any) (any, error) {
	return CheckOptionalString(datum)
}

// relatedValue builds a ToValue converting an embedded document into an
// object of the named type, resolved through the parent's origin at read
// time. A nil datum stays nil. When reverse is non-empty the parent is
// back-populated into that field of the child, outside its diff.
func relatedValue(typeName, reverse string) func(*Object, any) (any, error) {
	return func(parent *Object, datum any) (any, error) {
		if datum == nil {
			return nil, nil
		}
		doc, ok := datum.(map[string]any)
		if !ok {
			return nil, fmt.Errorf(
				"expected embedded %s document, got %T", typeName, datum)
		}
		typ, err := parent.Origin().Type(typeName)
		if err != nil {
			return nil, err
		}
		child := typ.New(doc)
		if reverse != "" {
			child.setLocal(reverse, parent)
		}
		return child, nil
	}
}

// relatedSetValue builds a ToValue converting an embedded list of
// documents into an ObjectSet of the named set type.
func relatedSetValue(setName, reverse string) func(*Object, any) (any, error) {
	return func(parent *Object, datum any) (any, error) {
		set, err := parent.Origin().Set(setName)
		if err != nil {
			return nil, err
		}
		if datum == nil {
			return set.New(nil), nil
		}
		listed, ok := datum.([]any)
		if !ok {
			return nil, fmt.Errorf(
				"expected embedded %s list, got %T", setName, datum)
		}
		items := make([]*Object, 0, len(listed))
		for _, element := range listed {
			doc, ok := element.(map[string]any)
			if !ok {
				return nil, fmt.Errorf(
					"expected embedded %s documents, got %T", setName, element)
			}
			child := set.ObjectType().New(doc)
			if reverse != "" {
				child.setLocal(reverse, parent)
			}
			items = append(items, child)
		}
		return set.New(items), nil
	}
}
