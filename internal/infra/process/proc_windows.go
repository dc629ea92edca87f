//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// configureProcessGroup kills the child and its descendants on cancellation.
// TcAutomation.exe drives a Visual Studio DTE instance that would otherwise
// outlive it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
		if err := kill.Run(); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
