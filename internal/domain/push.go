package domain

// Topic names of the bot's push channel.
const (
	TopicQueueUpdate        = "queue_update"
	TopicCurrentTrackUpdate = "current_track_update"
)

// QueueUpdate maps server id to that server's full queue.
type QueueUpdate map[string][]QueueEntry

// NowPlayingUpdate maps server id to its current track; a nil value means disconnected.
type NowPlayingUpdate map[string]*NowPlaying

// PushSubscriber receives decoded push events. Implementations must not block.
type PushSubscriber interface {
	OnQueueUpdate(update QueueUpdate)
	OnNowPlayingUpdate(update NowPlayingUpdate)
}
