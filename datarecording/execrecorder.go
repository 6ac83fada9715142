package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfo is one row of the exec_info table.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecInfoTable is the table that holds the execution information.
const ExecInfoTable = "exec_info"

const execTimeLayout = "2006-01-02 15:04:05.000000000"

// Records program execution
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	recorder.CreateTable(ExecInfoTable, ExecInfo{})

	return &execRecorder{recorder: recorder}
}

// Start logs the current execution.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format(execTimeLayout)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = filepath.Dir(os.Args[0])
	}

	e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
}

// End writes the entries along with the exit time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecInfoTable, entry)
	}

	e.recorder.InsertData(ExecInfoTable,
		ExecInfo{"End Time", time.Now().Format(execTimeLayout)})

	e.entries = nil
}
