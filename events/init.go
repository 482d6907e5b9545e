package events

import "github.com/r3labs/sse/v2"

// StreamPlaying carries a push whenever any device's active session view
// changes.
const StreamPlaying = "playing"

var Server *sse.Server

func Init() {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(StreamPlaying)
	Server = server
}
