package ingestion

type ConnectionState int

const (
	ConnectionStateAwaitingBanner ConnectionState = iota
	ConnectionStateStreaming
	ConnectionStateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateAwaitingBanner:
		return "awaiting_banner"
	case ConnectionStateStreaming:
		return "streaming"
	case ConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	// maxClientBannerSize bounds the bytes buffered before the client
	// banner's line terminator. Anything beyond it is discarded.
	maxClientBannerSize = 1024

	readBufferSize = 64 * 1024
)
