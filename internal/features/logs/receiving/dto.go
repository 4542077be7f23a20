package logs_receiving

type SubmitLogsRequestDTO struct {
	Logs []LogItemRequestDTO `json:"logs" binding:"required,min=1"`
}

type LogItemRequestDTO struct {
	Level       string `json:"level"                 binding:"required"`
	Title       string `json:"title"                 binding:"required,max=10000"`
	AppName     string `json:"appName,omitempty"`
	SessionName string `json:"sessionName,omitempty"`
	HostName    string `json:"hostName,omitempty"`
	Data        string `json:"data,omitempty"`
	// RFC 3339 or unix seconds/millis; server time when empty
	Timestamp string `json:"timestamp,omitempty"`
}

type SubmitLogsResponseDTO struct {
	Room     string               `json:"room"`
	Accepted int                  `json:"accepted"`
	Rejected int                  `json:"rejected"`
	Errors   []LogSubmissionError `json:"errors,omitempty"`
}

type LogSubmissionError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}
