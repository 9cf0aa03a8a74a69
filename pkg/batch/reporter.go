package batch

import (
	"strconv"

	"github.com/Sternrassler/hh-skills-collector/pkg/analysis"
	"github.com/Sternrassler/hh-skills-collector/pkg/collector"
	"github.com/rs/zerolog"
)

// Reporter observes a run. Calls are made from the running goroutine.
type Reporter interface {
	CategoryStarted(runID string, c Category)
	Progress(c Category, e collector.Event)
	CategoryFinished(r CategoryResult)
	RunFinished(s Summary)
}

// summarySkills is how many top skills the log line shows.
const summarySkills = 5

// LogReporter writes run progress to a zerolog logger.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a reporter on logger.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{
		logger: logger.With().Str("component", "batch").Logger(),
	}
}

// CategoryStarted implements Reporter.
func (r *LogReporter) CategoryStarted(runID string, c Category) {
	r.logger.Info().
		Str("run_id", runID).
		Str("category", c.Label).
		Str("term", c.Term).
		Msg("Starting collection")
}

// Progress implements Reporter.
func (r *LogReporter) Progress(c Category, e collector.Event) {
	switch e.Kind {
	case collector.EventRecord:
		r.logger.Info().
			Str("category", c.Label).
			Str("vacancy_id", e.ItemID).
			Int("records", e.Records).
			Msg("Record collected")
	case collector.EventSkip:
		r.logger.Debug().
			Str("category", c.Label).
			Str("vacancy_id", e.ItemID).
			Str("reason", e.Outcome.String()).
			Msg("Vacancy skipped")
	case collector.EventPageError:
		r.logger.Warn().
			Err(e.Err).
			Str("category", c.Label).
			Int("records", e.Records).
			Msg("Search page failed - ending category")
	}
}

// CategoryFinished implements Reporter.
func (r *LogReporter) CategoryFinished(res CategoryResult) {
	var event *zerolog.Event
	switch res.Status() {
	case StatusSuccess:
		event = r.logger.Info()
	default:
		event = r.logger.Error().Err(res.Err)
	}

	event.
		Str("category", res.Label).
		Str("status", res.Status()).
		Str("path", res.Artifact).
		Int("records", res.Records).
		Int("items", res.Stats.Items).
		Int("skipped_no_skills", res.Stats.SkippedNoSkills).
		Int("skipped_unavailable", res.Stats.SkippedUnavailable).
		Strs("top_skills", formatSkills(res.TopSkills, summarySkills)).
		Dur("duration", res.Duration).
		Msg("Category finished")
}

// RunFinished implements Reporter.
func (r *LogReporter) RunFinished(s Summary) {
	failed := s.Failed()
	event := r.logger.Info()
	if len(failed) > 0 {
		event = r.logger.Warn()
	}

	labels := make([]string, len(failed))
	for i, f := range failed {
		labels[i] = f.Label
	}

	event.
		Str("run_id", s.RunID).
		Int("categories", len(s.Categories)).
		Int("records", s.Records()).
		Strs("failed", labels).
		Dur("duration", s.Duration).
		Msg("Data collection finished")
}

func formatSkills(skills []analysis.SkillCount, n int) []string {
	if len(skills) > n {
		skills = skills[:n]
	}
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = s.Skill + " (" + strconv.Itoa(s.Count) + ")"
	}
	return out
}
