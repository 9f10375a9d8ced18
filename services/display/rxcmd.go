package display

import (
	"encoding/json"
	"strings"

	"powermon-go/types"
)

// ParseRx interprets RX text, trying in order: a JSON object, k:v pairs,
// CSV "pas,speed,range[,dist]", then the whole trimmed text as PAS.
// Unparseable numbers stay zero.
func ParseRx(text string) types.RxCommand {
	s := strings.TrimSpace(text)
	var cmd types.RxCommand

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		if parseJSON(s, &cmd) {
			return cmd
		}
	}
	if strings.Contains(s, ":") && strings.Contains(s, ",") {
		parsePairs(s, &cmd)
		return cmd
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		cmd.PAS = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			cmd.SpeedDeciKmh, _ = ParseDeci(parts[1])
		}
		if len(parts) > 2 {
			cmd.RangeDeciKm, _ = ParseDeci(parts[2])
		}
		if len(parts) > 3 {
			cmd.DistDeciKm, _ = ParseDeci(parts[3])
		}
		return cmd
	}
	cmd.PAS = s
	return cmd
}

func parseJSON(s string, cmd *types.RxCommand) bool {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return false
	}
	if v, ok := obj["pas"]; ok {
		cmd.PAS = scalarString(v)
	} else if v, ok := obj["rx"]; ok {
		cmd.PAS = scalarString(v)
	}
	cmd.SpeedDeciKmh, _ = ParseDeci(scalarString(obj["speed"]))
	if v, ok := obj["c_range"]; ok {
		cmd.RangeDeciKm, _ = ParseDeci(scalarString(v))
	} else {
		cmd.RangeDeciKm, _ = ParseDeci(scalarString(obj["range"]))
	}
	cmd.DistDeciKm, _ = ParseDeci(scalarString(obj["dist"]))
	return true
}

func parsePairs(s string, cmd *types.RxCommand) {
	for _, p := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		switch k {
		case "pas", "rx":
			cmd.PAS = v
		case "speed":
			if n, ok := ParseDeci(v); ok {
				cmd.SpeedDeciKmh = n
			}
		case "c_range", "range", "crange":
			if n, ok := ParseDeci(v); ok {
				cmd.RangeDeciKm = n
			}
		case "dist":
			if n, ok := ParseDeci(v); ok {
				cmd.DistDeciKm = n
			}
		}
	}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	return ""
}

// ParseDeci parses a plain decimal into tenths, truncating extra digits:
// "12.34" => 123, "-1.5" => -15, "45" => 450. No exponents.
func ParseDeci(s string) (int32, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	intPart, frac, hasDot := strings.Cut(s, ".")
	if intPart == "" && (!hasDot || frac == "") {
		return 0, false
	}
	var n int64
	for i := 0; i < len(intPart); i++ {
		c := intPart[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
		if n > 1<<30 {
			return 0, false
		}
	}
	n *= 10
	for i := 0; i < len(frac); i++ {
		c := frac[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		if i == 0 {
			n += int64(c - '0')
		}
	}
	if neg {
		n = -n
	}
	return int32(n), true
}
