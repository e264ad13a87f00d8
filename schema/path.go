package schema

import "fmt"

// ChannelPath names the dump file of one channel of a streamer.
func ChannelPath(base, streamer string, channel int) string {
	return fmt.Sprintf("%s.%s.channel%d", base, streamer, channel)
}
