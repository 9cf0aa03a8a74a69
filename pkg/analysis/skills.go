// Package analysis ranks the skills found in collected vacancy records.
package analysis

import (
	"sort"

	"github.com/Sternrassler/hh-skills-collector/pkg/vacancy"
)

// DefaultTopN is the number of skills shown in reports.
const DefaultTopN = 20

// SkillCount is one ranked skill.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// Frequencies counts every skill occurrence across records. A skill listed
// twice by one vacancy counts twice.
func Frequencies(records []vacancy.Record) map[string]int {
	freqs := make(map[string]int)
	for _, r := range records {
		for _, skill := range r.Skills {
			freqs[skill]++
		}
	}
	return freqs
}

// TopSkills returns the n most frequent skills, highest count first. Ties are
// ordered by skill name. n <= 0 returns every skill.
func TopSkills(freqs map[string]int, n int) []SkillCount {
	out := make([]SkillCount, 0, len(freqs))
	for skill, count := range freqs {
		out = append(out, SkillCount{Skill: skill, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Skill < out[j].Skill
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Top is Frequencies followed by TopSkills.
func Top(records []vacancy.Record, n int) []SkillCount {
	return TopSkills(Frequencies(records), n)
}
