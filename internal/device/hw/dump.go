package hw

// DumpSink receives postmortem register dumps. internal/store implements it.
type DumpSink interface {
	WriteDump(seq uint64, kind, body string) error
}
