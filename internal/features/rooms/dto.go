package rooms

import "time"

type RoomSummaryDTO struct {
	Room        string    `json:"room"`
	CreatedAt   time.Time `json:"createdAt"`
	Entries     int       `json:"entries"`
	Watches     int       `json:"watches"`
	Streams     int       `json:"streams"`
	Connections int       `json:"connections"`
	Subscribers int       `json:"subscribers"`
}

type RoomsResponseDTO struct {
	Rooms []RoomSummaryDTO `json:"rooms"`
}

type WatchesResponseDTO struct {
	Room    string           `json:"room"`
	Watches map[string]Watch `json:"watches"`
}
