package hdx

import (
	"fmt"
	"maps"
	"strings"

	"github.com/hdx-scrapers/icpac-cdi/internal/cdi"
)

// TagVocabularyID is the HDX approved-tags vocabulary.
const TagVocabularyID = "b891512e-9516-4bf5-962a-7a289772a2a1"

const timePeriodLayout = "2006-01-02T15:04:05"

// FormatTimePeriod renders a time period the way HDX stores dataset_date.
func FormatTimePeriod(tp cdi.TimePeriod) string {
	return fmt.Sprintf("[%s TO %s]", tp.Start.Format(timePeriodLayout), tp.End.Format(timePeriodLayout))
}

// BuildPayload converts an assembled dataset into a package dict and merges
// static metadata on top. Resources are not included.
func BuildPayload(ds cdi.Dataset, static map[string]any) map[string]any {
	tags := make([]map[string]any, 0, len(ds.Tags))
	for _, t := range ds.Tags {
		tags = append(tags, map[string]any{"name": t, "vocabulary_id": TagVocabularyID})
	}

	groups := make([]map[string]any, 0, len(ds.Countries))
	for _, c := range ds.Countries {
		groups = append(groups, map[string]any{"name": strings.ToLower(c)})
	}

	subnational := "0"
	if ds.Subnational {
		subnational = "1"
	}

	payload := map[string]any{
		"name":                  ds.Name,
		"title":                 ds.Title,
		"dataset_date":          FormatTimePeriod(ds.TimePeriod),
		"notes":                 ds.Notes,
		"tags":                  tags,
		"data_update_frequency": ds.UpdateFrequency,
		"subnational":           subnational,
		"groups":                groups,
	}

	return deepMergeMaps(payload, maps.Clone(static))
}

// ResourceFields returns the fields sent when uploading r.
func ResourceFields(r cdi.Resource) map[string]string {
	return map[string]string{
		"name":          r.Name,
		"format":        strings.ToLower(r.Format),
		"description":   r.Description,
		"resource_type": "file.upload",
		"url_type":      "upload",
	}
}

func deepMergeMaps(base, overrides map[string]any) map[string]any {
	if overrides == nil {
		return base
	}
	for key, value := range overrides {
		if existing, ok := base[key]; ok {
			existingMap, existingIsMap := existing.(map[string]any)
			valueMap, valueIsMap := value.(map[string]any)
			if existingIsMap && valueIsMap {
				deepMergeMaps(existingMap, valueMap)
				continue
			}
		}
		base[key] = value
	}
	return base
}
