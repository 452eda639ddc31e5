package envlayer

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CommandResult is what every package-manager and systemd invocation gets
// back: (exit code, combined stdout+stderr), the shape spec §6.5 describes
// as "(cmd, no_output, check_err) -> (code, stdout)".
type CommandResult struct {
	ExitCode int
	Output   string
}

// RunCommand runs name with args, waiting up to timeout (0 means no
// timeout), and returns the exit code plus combined output. A non-zero exit
// is not itself treated as an error here -- adapters classify acceptable
// exit codes themselves (spec §4.1 "Exit-code handling").
func RunCommand(timeout time.Duration, name string, args ...string) (CommandResult, error) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	result := CommandResult{Output: buf.String()}

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, errors.Wrapf(err, "running %s %s", name, strings.Join(args, " "))
}

// RunSudo runs "sudo timeout <seconds> id" and reports whether it produced
// the expected marker, the CL_SUDO_CHECK_FAILED precondition (spec §4.8
// step 1). A package-level var, like Now/After/Sleep, so callers can swap
// it out in tests instead of invoking a real sudo binary.
var RunSudo = func(timeoutSeconds int) error {
	res, err := RunCommand(time.Duration(timeoutSeconds+2)*time.Second, "sudo", "timeout", strconv.Itoa(timeoutSeconds), "id")
	if err != nil {
		return errors.Wrap(err, "invoking sudo")
	}
	if res.ExitCode != 0 || !strings.Contains(res.Output, "uid=") {
		return errors.Errorf("sudo check failed: exit=%d output=%q", res.ExitCode, res.Output)
	}
	return nil
}
