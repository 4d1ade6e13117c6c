package kernel

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

var stderrMu sync.Mutex

func reportPanicToStderr(info PanicInfo) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "kernel: task panic handle=%s", info.Handle)
	if info.Name != "" {
		fmt.Fprintf(&buf, " name=%q", info.Name)
	}
	fmt.Fprintf(&buf, " value=%v\n", info.Value)
	if len(info.Stack) > 0 {
		_, _ = buf.Write(info.Stack)
		if info.Stack[len(info.Stack)-1] != '\n' {
			_ = buf.WriteByte('\n')
		}
	}

	stderrMu.Lock()
	_, _ = os.Stderr.Write(buf.Bytes())
	stderrMu.Unlock()
}

func callPanicHandlerNoPanic(h PanicHandler, info PanicInfo) {
	defer func() { _ = recover() }()
	h(info)
}
