package streams_core

import "fmt"

type StreamCoreService struct{}

func (s *StreamCoreService) QueryStream(repository *StreamRepository, filter StreamFilter) *StreamQueryResponseDTO {
	filter.Normalize()
	result := repository.ExecuteQuery(filter)

	response := &StreamQueryResponseDTO{
		Channel:  filter.Channel,
		Items:    ToStreamItemDTOs(result.Items),
		Total:    result.Total,
		Returned: len(result.Items),
		HasMore:  result.HasMore,
		Query:    &filter,
	}

	switch {
	case filter.LimitCapped:
		response.Warning = fmt.Sprintf(
			"limit capped at %d; returned %d of %d items", MaxQueryLimit, response.Returned, response.Total)
	case response.Total > response.Returned:
		response.Warning = fmt.Sprintf(
			"results truncated; returned %d of %d items", response.Returned, response.Total)
	}

	return response
}
