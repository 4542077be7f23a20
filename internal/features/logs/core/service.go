package logs_core

// LogCoreService converts repository results into response DTOs.
type LogCoreService struct{}

func (s *LogCoreService) QueryLogs(repository *LogCoreRepository, filter LogFilter) *LogQueryResponseDTO {
	filter.Normalize()
	result := repository.ExecuteQuery(filter)

	return &LogQueryResponseDTO{
		Entries:  ToLogItemDTOs(result.Entries),
		Total:    result.Total,
		Returned: len(result.Entries),
		HasMore:  result.HasMore,
		Query:    &filter,
	}
}
