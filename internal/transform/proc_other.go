//go:build !unix

package transform

import "os/exec"

func isolateProcessGroup(cmd *exec.Cmd) {}
