package ports

type SessionMetrics interface {
	RecordFrame(kind string)
	RecordCommand(name string)
	RecordDisconnect(cause string)
	RecordBattle()
	RecordCatchAttempt()
}
