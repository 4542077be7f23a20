package logs_core

import (
	"cmp"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

type entryPredicate func(entry *StoredEntry) bool

type queryStage struct {
	name      string
	predicate entryPredicate
}

// QueryBuilder turns a LogFilter into predicate stages that are ANDed
// together. An invalid pattern disables only its own predicate.
type QueryBuilder struct {
	logger *slog.Logger
}

func NewQueryBuilder(logger *slog.Logger) *QueryBuilder {
	return &QueryBuilder{logger: logger}
}

// Execute filters, sorts by ID and paginates. entries is not modified.
func (builder *QueryBuilder) Execute(entries []StoredEntry, filter LogFilter) *LogQueryResult {
	filter.Normalize()
	stages := builder.BuildStages(&filter)

	matched := make([]StoredEntry, 0, len(entries))
	for i := range entries {
		if matchesAll(stages, &entries[i]) {
			matched = append(matched, entries[i])
		}
	}

	slices.SortStableFunc(matched, func(a, b StoredEntry) int {
		if filter.Order == SortOrderDesc {
			return cmp.Compare(b.ID, a.ID)
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)

	return &LogQueryResult{
		Entries: matched[start:end],
		Total:   total,
		HasMore: end < total,
	}
}

func (builder *QueryBuilder) BuildStages(filter *LogFilter) []queryStage {
	var stages []queryStage

	if !filter.TimeRange.IsEmpty() {
		timeRange := filter.TimeRange
		stages = append(stages, queryStage{"time", func(entry *StoredEntry) bool {
			return timeRange.Contains(entry.Timestamp())
		}})
	}

	if stage := builder.buildSessionStage(filter); stage != nil {
		stages = append(stages, queryStage{"session", stage})
	}

	if stage := builder.buildMessageStage(filter); stage != nil {
		stages = append(stages, queryStage{"message", stage})
	}

	if len(filter.Levels) > 0 {
		levels := filter.Levels
		stages = append(stages, queryStage{"level", func(entry *StoredEntry) bool {
			return slices.Contains(levels, entry.Level())
		}})
	}

	if len(filter.EntryTypes) > 0 {
		entryTypes := filter.EntryTypes
		stages = append(stages, queryStage{"entryType", func(entry *StoredEntry) bool {
			return slices.Contains(entryTypes, entry.Entry.EntryType)
		}})
	}

	if filter.AppName != "" || len(filter.AppNames) > 0 {
		appName, appNames := filter.AppName, filter.AppNames
		stages = append(stages, queryStage{"appName", func(entry *StoredEntry) bool {
			if appName != "" && entry.Entry.AppName != appName {
				return false
			}
			return len(appNames) == 0 || slices.Contains(appNames, entry.Entry.AppName)
		}})
	}

	if filter.HostName != "" {
		hostName := filter.HostName
		stages = append(stages, queryStage{"hostName", func(entry *StoredEntry) bool {
			return strings.EqualFold(entry.Entry.HostName, hostName)
		}})
	}

	return stages
}

func (builder *QueryBuilder) buildSessionStage(filter *LogFilter) entryPredicate {
	var predicates []entryPredicate

	if filter.Session != "" {
		session := filter.Session
		predicates = append(predicates, func(entry *StoredEntry) bool {
			return entry.Entry.SessionName == session
		})
	}

	if filter.SessionContains != "" {
		predicates = append(predicates, containsFold(filter.SessionContains, sessionOf))
	}

	if filter.SessionPattern != "" {
		if predicate := builder.matchPattern("sessionPattern", filter.SessionPattern, sessionOf); predicate != nil {
			predicates = append(predicates, predicate)
		}
	}

	if len(filter.Sessions) > 0 {
		sessions := filter.Sessions
		predicates = append(predicates, func(entry *StoredEntry) bool {
			return slices.Contains(sessions, entry.Entry.SessionName)
		})
	}

	return combine(predicates, filter.SessionInverse)
}

func (builder *QueryBuilder) buildMessageStage(filter *LogFilter) entryPredicate {
	var predicates []entryPredicate

	for _, text := range []string{filter.Message, filter.Title} {
		if text != "" {
			predicates = append(predicates, containsFold(text, titleOf))
		}
	}

	patterns := []struct{ field, pattern string }{
		{"messagePattern", filter.MessagePattern},
		{"titlePattern", filter.TitlePattern},
	}
	for _, p := range patterns {
		if p.pattern == "" {
			continue
		}
		if predicate := builder.matchPattern(p.field, p.pattern, titleOf); predicate != nil {
			predicates = append(predicates, predicate)
		}
	}

	return combine(predicates, filter.MessageInverse)
}

// matchPattern compiles a case-insensitive regular expression. It returns
// nil and logs a warning when the pattern does not compile.
func (builder *QueryBuilder) matchPattern(
	field string,
	pattern string,
	value func(entry *StoredEntry) string,
) entryPredicate {
	compiled, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		builder.logger.Warn("skipping invalid query pattern",
			slog.String("field", field),
			slog.String("pattern", pattern),
			slog.String("error", err.Error()))
		return nil
	}

	return func(entry *StoredEntry) bool {
		return compiled.MatchString(value(entry))
	}
}

func containsFold(needle string, value func(entry *StoredEntry) string) entryPredicate {
	needle = strings.ToLower(needle)
	return func(entry *StoredEntry) bool {
		return strings.Contains(strings.ToLower(value(entry)), needle)
	}
}

func combine(predicates []entryPredicate, inverse bool) entryPredicate {
	if len(predicates) == 0 {
		return nil
	}

	return func(entry *StoredEntry) bool {
		matched := true
		for _, predicate := range predicates {
			if !predicate(entry) {
				matched = false
				break
			}
		}
		return matched != inverse
	}
}

func matchesAll(stages []queryStage, entry *StoredEntry) bool {
	for _, stage := range stages {
		if !stage.predicate(entry) {
			return false
		}
	}
	return true
}

func sessionOf(entry *StoredEntry) string {
	return entry.Entry.SessionName
}

func titleOf(entry *StoredEntry) string {
	return entry.Entry.Title
}
