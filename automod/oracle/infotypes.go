package oracle

import (
	"strings"
)

var infoTypeNames = map[string]string{
	"phone":         "phone number",
	"email":         "email address",
	"address":       "address",
	"real_name":     "personal name",
	"financial":     "financial information",
	"government_id": "ID information",
	"social_media":  "social media account",
	"workplace":     "workplace information",
}

// Human-readable name of a classifier info type. Unmapped types have underscores replaced by spaces.
func InfoTypeName(t string) string {
	if name, ok := infoTypeNames[t]; ok {
		return name
	}
	return strings.ReplaceAll(t, "_", " ")
}

// Joins info types into an English list: "a", "a and b", "a, b, and c".
func HumanInfoTypes(types []string) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, InfoTypeName(t))
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}
