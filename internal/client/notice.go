package client

import "log"

// Level is the severity of a notice.
type Level string

const (
	Info        Level = "info"
	Destructive Level = "destructive"
)

// Notice is a short user-facing message.
type Notice struct {
	Level       Level
	Title       string
	Description string
}

// Notifier receives notices. It is called from the engine goroutines and
// must not block.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	log.Printf("%s: %s: %s", n.Level, n.Title, n.Description)
}

// Notices the engine emits.
var (
	NoticeLoadFailed = Notice{Level: Destructive, Title: "Error loading data", Description: "Could not load the table data"}
	NoticeSaved      = Notice{Level: Info, Title: "Saved", Description: "Changes were saved and sent to all users"}
	NoticeSaveFailed = Notice{Level: Destructive, Title: "Error saving", Description: "Could not save the changes"}
	NoticeRemote     = Notice{Level: Info, Title: "Remote update", Description: "The table was updated by another user"}
	NoticeConnected  = Notice{Level: Info, Title: "Connected", Description: "Receiving realtime updates"}
	NoticeLost       = Notice{Level: Destructive, Title: "Disconnected", Description: "Realtime updates stopped"}
	NoticeImported   = Notice{Level: Info, Title: "Imported", Description: "The file was imported"}
	NoticeImportFail = Notice{Level: Destructive, Title: "Import failed", Description: "Could not import the file"}
)
