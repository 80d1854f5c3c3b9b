package publish

// Observer follows the progress of one coordinator run. Calls are never
// concurrent with each other.
type Observer interface {
	Start(refs []*ImageReference)
	Settled(ref *ImageReference, outcome Outcome)
	Finish(counts Counts)
}

// Notifier shows short user-facing messages
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Info(string)  {}
func (nopNotifier) Warn(string)  {}
func (nopNotifier) Error(string) {}
