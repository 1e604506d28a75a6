package host

import (
	"math"

	"github.com/itsmostafa/phunkie/internal/value"
)

// Version is reported by PHP_VERSION and phpversion()
const Version = "8.3.0"

func builtinConstants() map[string]value.Value {
	return map[string]value.Value{
		"PHP_EOL":           value.Str("\n"),
		"PHP_INT_MAX":       value.Int(math.MaxInt64),
		"PHP_INT_MIN":       value.Int(math.MinInt64),
		"PHP_INT_SIZE":      value.Int(8),
		"PHP_FLOAT_EPSILON": value.Float(2.220446049250313e-16),
		"PHP_FLOAT_MAX":     value.Float(math.MaxFloat64),
		"PHP_FLOAT_MIN":     value.Float(2.2250738585072014e-308),
		"PHP_FLOAT_DIG":     value.Int(15),
		"PHP_VERSION":       value.Str(Version),
		"PHP_OS":            value.Str("Linux"),
		"PHP_OS_FAMILY":     value.Str("Linux"),
		"M_PI":              value.Float(math.Pi),
		"M_E":               value.Float(math.E),
		"M_SQRT2":           value.Float(math.Sqrt2),
		"NAN":               value.Float(math.NaN()),
		"INF":               value.Float(math.Inf(1)),
		"E_ALL":             value.Int(32767),
		"E_ERROR":           value.Int(1),
		"E_WARNING":         value.Int(2),
		"E_NOTICE":          value.Int(8),

		"JSON_HEX_TAG":                value.Int(1),
		"JSON_HEX_AMP":                value.Int(2),
		"JSON_HEX_APOS":               value.Int(4),
		"JSON_HEX_QUOT":               value.Int(8),
		"JSON_FORCE_OBJECT":           value.Int(16),
		"JSON_NUMERIC_CHECK":          value.Int(32),
		"JSON_UNESCAPED_SLASHES":      value.Int(jsonUnescapedSlashes),
		"JSON_PRETTY_PRINT":           value.Int(jsonPrettyPrint),
		"JSON_UNESCAPED_UNICODE":      value.Int(jsonUnescapedUnicode),
		"JSON_PARTIAL_OUTPUT_ON_ERROR": value.Int(512),
		"JSON_PRESERVE_ZERO_FRACTION": value.Int(jsonPreserveZeroFraction),
		"JSON_OBJECT_AS_ARRAY":        value.Int(jsonObjectAsArray),
		"JSON_BIGINT_AS_STRING":       value.Int(2),
		"JSON_INVALID_UTF8_IGNORE":    value.Int(1048576),
		"JSON_INVALID_UTF8_SUBSTITUTE": value.Int(2097152),
		"JSON_THROW_ON_ERROR":         value.Int(jsonThrowOnError),
		"JSON_ERROR_NONE":             value.Int(0),
		"JSON_ERROR_SYNTAX":           value.Int(4),

		"ARRAY_FILTER_USE_KEY":  value.Int(filterUseKey),
		"ARRAY_FILTER_USE_BOTH": value.Int(filterUseBoth),
		"COUNT_RECURSIVE":       value.Int(1),
		"SORT_REGULAR":          value.Int(0),
		"SORT_NUMERIC":          value.Int(1),
		"SORT_STRING":           value.Int(2),
		"SORT_FLAG_CASE":        value.Int(8),

		"STR_PAD_LEFT":  value.Int(padLeft),
		"STR_PAD_RIGHT": value.Int(padRight),
		"STR_PAD_BOTH":  value.Int(padBoth),

		"PREG_PATTERN_ORDER":       value.Int(pregPatternOrder),
		"PREG_SET_ORDER":           value.Int(pregSetOrder),
		"PREG_OFFSET_CAPTURE":      value.Int(pregOffsetCapture),
		"PREG_SPLIT_NO_EMPTY":      value.Int(pregSplitNoEmpty),
		"PREG_SPLIT_DELIM_CAPTURE": value.Int(pregSplitDelimCapture),
		"PREG_SPLIT_OFFSET_CAPTURE": value.Int(pregSplitOffsetCapture),

		"PHP_ROUND_HALF_UP":   value.Int(1),
		"PHP_ROUND_HALF_DOWN": value.Int(2),
		"PHP_ROUND_HALF_EVEN": value.Int(3),
		"PHP_ROUND_HALF_ODD":  value.Int(4),
	}
}

const (
	jsonPrettyPrint          = 128
	jsonUnescapedSlashes     = 64
	jsonUnescapedUnicode     = 256
	jsonPreserveZeroFraction = 1024
	jsonObjectAsArray        = 1
	jsonThrowOnError         = 4194304

	filterUseBoth = 1
	filterUseKey  = 2

	padLeft  = 0
	padRight = 1
	padBoth  = 2

	pregPatternOrder       = 1
	pregSetOrder           = 2
	pregOffsetCapture      = 256
	pregSplitNoEmpty       = 1
	pregSplitDelimCapture  = 2
	pregSplitOffsetCapture = 4
)
