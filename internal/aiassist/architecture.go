package aiassist

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrNoArchitecture = errors.New("no JSON object found in model response")

var codeFence = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

const ArchitecturePrompt = "Extract home characteristics from the provided architectural drawings/blueprints or images. " +
	"Return a STRICT JSON object with keys: " +
	"houseType (one of: single_family, townhome, pool, airport_hangar or empty), " +
	"roofType (one of: shingles, concrete_tile, flat_roof, metal_roof, other or empty), " +
	"exteriorType (one of: brick, stucco, siding, other or empty). " +
	"If unsure, use empty string. No extra text."

type Architecture struct {
	HouseType    string `json:"houseType"`
	RoofType     string `json:"roofType"`
	ExteriorType string `json:"exteriorType"`
}

// ParseArchitecture reads the model's answer, tolerating a code fence or
// prose around the JSON object.
func ParseArchitecture(text string) (Architecture, error) {
	candidate := jsonObject(text)
	if candidate == "" {
		return Architecture{}, ErrNoArchitecture
	}
	return Architecture{
		HouseType:    NormalizeHouseType(gjson.Get(candidate, "houseType").String()),
		RoofType:     NormalizeRoofType(gjson.Get(candidate, "roofType").String()),
		ExteriorType: NormalizeExteriorType(gjson.Get(candidate, "exteriorType").String()),
	}, nil
}

func jsonObject(text string) string {
	raw := strings.TrimSpace(text)
	if isObject(raw) {
		return raw
	}
	inner := raw
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		inner = strings.TrimSpace(m[1])
		if isObject(inner) {
			return inner
		}
	}
	start := strings.Index(inner, "{")
	end := strings.LastIndex(inner, "}")
	if start == -1 || end <= start {
		return ""
	}
	if candidate := inner[start : end+1]; isObject(candidate) {
		return candidate
	}
	return ""
}

func isObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}

func slug(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), "_")
}

func NormalizeHouseType(v string) string {
	s := slug(v)
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "town"):
		return "townhome"
	case strings.Contains(s, "hangar") || strings.Contains(s, "aircraft"):
		return "airport_hangar"
	case strings.Contains(s, "pool"):
		return "pool"
	case strings.Contains(s, "single") || s == "house":
		return "single_family"
	default:
		return ""
	}
}

func NormalizeRoofType(v string) string {
	s := slug(v)
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "metal"):
		return "metal_roof"
	case strings.Contains(s, "tile") || strings.Contains(s, "concrete"):
		return "concrete_tile"
	case strings.Contains(s, "flat"):
		return "flat_roof"
	case strings.Contains(s, "shingle") || strings.Contains(s, "asphalt"):
		return "shingles"
	default:
		return "other"
	}
}

func NormalizeExteriorType(v string) string {
	s := slug(v)
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "brick"):
		return "brick"
	case strings.Contains(s, "stucco"):
		return "stucco"
	case strings.Contains(s, "siding"):
		return "siding"
	default:
		return "other"
	}
}
