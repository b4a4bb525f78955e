package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"
)

// Notifier displays a notification. Display is best-effort: a sink that
// cannot show anything (no desktop session, permission denied) skips
// silently and never surfaces an error.
type Notifier interface {
	Show(title, body, tag string)
}

type DesktopNotifier struct{}

func NewDesktopNotifier(appName string) *DesktopNotifier {
	if appName != "" {
		beeep.AppName = appName
	}
	return &DesktopNotifier{}
}

func (n *DesktopNotifier) Show(title, body, tag string) {
	// beeep has no dedup tag; dedup already happened upstream.
	_ = beeep.Notify(title, body, "")
}

type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Show(title, body, tag string) {
	n.log.WithFields(logrus.Fields{"tag": tag, "body": body}).Info(title)
}
