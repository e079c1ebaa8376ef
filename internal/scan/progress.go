package scan

// Progress reports scan progress to the caller. Methods may be called from
// several goroutines.
type Progress interface {
	// OnFile is called after each file has been parsed.
	OnFile(path string, entries int)

	// OnError is called for a file or directory that was skipped.
	OnError(path string, err error)

	// OnComplete is called once with the final summary.
	OnComplete(summary *Summary)
}

// NullProgress is a no-op progress reporter.
type NullProgress struct{}

func (NullProgress) OnFile(path string, entries int) {}
func (NullProgress) OnError(path string, err error)  {}
func (NullProgress) OnComplete(summary *Summary)     {}
