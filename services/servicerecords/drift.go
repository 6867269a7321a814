package servicerecords

import (
	"sort"
	"sysaid-bridge/lib/scrapers/sysaid"
	"sysaid-bridge/lib/textutil"

	"github.com/antzucaro/matchr"
)

const driftThreshold = 0.9

// DriftWarning is a caption that was not recognized but closely resembles
// a required field that never appeared verbatim, usually a sign that the
// instance renamed or re-cased a field.
type DriftWarning struct {
	Caption    string  `json:"caption"`
	Resembles  string  `json:"resembles"`
	Similarity float64 `json:"similarity"`
}

func DetectDrift(fields RequiredFieldSet, records []sysaid.RawRecord) []DriftWarning {
	seen := make(map[string]struct{})
	unknown := make(map[string]struct{})
	for _, record := range records {
		entries, ok := record.Entries()
		if !ok {
			continue
		}
		for _, entry := range entries {
			if fields.Contains(entry.KeyCaption) {
				seen[entry.KeyCaption] = struct{}{}
				continue
			}
			unknown[entry.KeyCaption] = struct{}{}
		}
	}

	var warnings []DriftWarning
	for caption := range unknown {
		normalized := textutil.NormalizeName(caption)

		var best DriftWarning
		for _, required := range fields.names {
			_, isSeen := seen[required]
			if isSeen {
				continue
			}
			similarity := matchr.JaroWinkler(normalized, textutil.NormalizeName(required), false)
			if similarity > best.Similarity {
				best = DriftWarning{
					Caption:    caption,
					Resembles:  required,
					Similarity: similarity,
				}
			}
		}
		if best.Similarity >= driftThreshold {
			warnings = append(warnings, best)
		}
	}

	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Caption < warnings[j].Caption
	})
	return warnings
}
