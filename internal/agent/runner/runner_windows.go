//go:build !unix

package runner

import "os/exec"

// setProcessGroup is a no-op here: without process groups,
// cancellation kills only the direct child and WaitDelay unblocks
// Wait when descendants keep the pipes open.
func setProcessGroup(cmd *exec.Cmd) {}
