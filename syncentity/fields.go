package syncentity

import "strings"

// fieldRule resolves a capability column in two phases: the exact candidates
// in order (case-insensitive), then the first column containing one of the
// substrings. No match means the model lacks the capability.
type fieldRule struct {
	exact    []string
	contains []string
}

var (
	updatedFieldRule = fieldRule{
		exact:    []string{"updatedat", "updated_at", "dtalteracao", "dtalt", "dtaltuse", "dtaltven"},
		contains: []string{"updated", "alter"},
	}
	deletedAtFieldRule = fieldRule{
		exact:    []string{"deletedat", "deleted_at"},
		contains: []string{"deletedat", "deleted_at"},
	}
	deletedFlagFieldRule = fieldRule{
		exact:    []string{"isdeleted", "is_deleted"},
		contains: []string{"isdeleted", "is_deleted"},
	}
)

func (r fieldRule) resolve(fields []string) string {
	byLower := make(map[string]string, len(fields))
	for _, f := range fields {
		lower := strings.ToLower(f)
		if _, seen := byLower[lower]; !seen {
			byLower[lower] = f
		}
	}
	for _, candidate := range r.exact {
		if f, ok := byLower[strings.ToLower(candidate)]; ok {
			return f
		}
	}
	for _, f := range fields {
		lower := strings.ToLower(f)
		for _, sub := range r.contains {
			if strings.Contains(lower, sub) {
				return f
			}
		}
	}
	return ""
}
