package streams_core

var streamCoreService = &StreamCoreService{}

func GetStreamCoreService() *StreamCoreService {
	return streamCoreService
}
