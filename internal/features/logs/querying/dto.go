package logs_querying

type ClearLogsResponseDTO struct {
	Room    string `json:"room"`
	Cleared int    `json:"cleared"`
}
