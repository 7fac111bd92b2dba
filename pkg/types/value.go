package types

import "strconv"

// Value is a runtime value flowing through predicates, producers and
// contract checks: an int, bool, string, []Value, or a closure created
// by evaluating a lambda.
type Value = any

// ShowValue pretty-prints a runtime value for error details and fuzz
// reports; strings are quoted so that whitespace-only differences stay
// visible.
func ShowValue(v Value) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case []Value:
		out := "["
		for i, e := range x {
			if i > 0 {
				out += ", "
			}
			out += ShowValue(e)
		}
		return out + "]"
	default:
		return "<value>"
	}
}
