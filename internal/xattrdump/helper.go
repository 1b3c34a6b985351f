package xattrdump

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/OrthogonalScribe/baktu/internal/hexcodec"
)

// helperDumper pipes NUL-terminated paths into a long-lived external
// `get-all-xattrs` process and reads back "<key_hex> <value_hex>" lines
// terminated by a lone "--" per path. Keeping the main process unprivileged
// and delegating to a small helper shrinks the attack surface of the tool
// as a whole.
type helperDumper struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
}

func newHelperDumper(path string) (Dumper, error) {
	logrus.Infof("CAP_SYS_ADMIN not permitted, spawning %q to record trusted.* extended attributes", path)

	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("xattrdump: creating stdin pipe for %q: %w", path, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("xattrdump: creating stdout pipe for %q: %w", path, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("xattrdump: spawning %q: %w (ensure it's on PATH, and that PATH does not use '~' instead of a full path)", path, err)
	}

	return &helperDumper{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewScanner(stdout),
	}, nil
}

func (h *helperDumper) Dump(path string) ([]KV, error) {
	if _, err := io.WriteString(h.stdin, path); err != nil {
		return nil, fmt.Errorf("xattrdump: writing path to helper: %w", err)
	}
	if _, err := h.stdin.Write([]byte{0}); err != nil {
		return nil, fmt.Errorf("xattrdump: writing path terminator to helper: %w", err)
	}

	var out []KV
	for h.stdout.Scan() {
		line := h.stdout.Text()
		if line == "--" {
			return out, nil
		}

		tokens := strings.SplitN(line, " ", 2)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("xattrdump: malformed helper output line %q", line)
		}

		key := hexcodec.Decode([]byte(tokens[0]))
		value := hexcodec.Decode([]byte(tokens[1]))
		out = append(out, KV{Key: key, Value: value})
	}

	if err := h.stdout.Err(); err != nil {
		return nil, fmt.Errorf("xattrdump: reading from helper: %w", err)
	}
	return nil, fmt.Errorf("xattrdump: unexpected exit of get-all-xattrs helper")
}

func (h *helperDumper) Close() error {
	// Closing stdin signals end-of-input; the helper is expected to exit
	// cleanly on its own, no need to wait for it here.
	return h.stdin.Close()
}
