package editor

// NoticeLevel grades transient user notifications.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient, user-visible notification. Every recoverable
// failure in the session surfaces as one of these; nothing here is fatal.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// NoticeSink receives notices. Called synchronously from the session's
// event path, so sinks should be cheap.
type NoticeSink func(Notice)
