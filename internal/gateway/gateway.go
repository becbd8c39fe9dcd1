// Package gateway implements the external tool gateway (component A):
// the uniform way the scheduler spawns a decoder piped into an encoder,
// drains their combined output line by line for progress, and reaps both
// processes on exit.
package gateway

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"syscall"

	"github.com/splitreel/splitreel/internal/errors"
)

// maxTailLines is the number of trailing encoder output lines kept for a
// chunk-encode failure's diagnostic tail (spec: "~20 lines").
const maxTailLines = 20

// LineHandler is called once per line of the encoder's combined
// stdout/stderr stream, in order.
type LineHandler func(line string)

// Run spawns decoderCmd and encoderCmd as a pipe — decoder's stdout feeds
// encoder's stdin — streams the encoder's combined output line by line to
// onLine, and waits on both. On a non-zero, non-interrupt encoder exit it
// returns a KindChunkEncode *errors.CoreError wrapping a
// *errors.CommandError that carries the last ~20 lines of output.
func Run(ctx context.Context, decoderCmd, encoderCmd []string, onLine LineHandler) error {
	if len(decoderCmd) == 0 || len(encoderCmd) == 0 {
		return errors.New(errors.KindCommand, "gateway: empty decoder or encoder command")
	}

	decoder := exec.CommandContext(ctx, decoderCmd[0], decoderCmd[1:]...)
	encoder := exec.CommandContext(ctx, encoderCmd[0], encoderCmd[1:]...)

	decoderOut, err := decoder.StdoutPipe()
	if err != nil {
		return errors.Wrap(errors.KindCommand, "gateway: decoder stdout pipe", err)
	}
	encoder.Stdin = decoderOut

	encoderOut, err := encoder.StdoutPipe()
	if err != nil {
		return errors.Wrap(errors.KindCommand, "gateway: encoder stdout pipe", err)
	}
	encoder.Stderr = encoder.Stdout

	if err := decoder.Start(); err != nil {
		return errors.NewCommandError(strings.Join(decoderCmd, " "), errors.CommandStart, err)
	}
	if err := encoder.Start(); err != nil {
		_ = decoder.Process.Kill()
		return errors.NewCommandError(strings.Join(encoderCmd, " "), errors.CommandStart, err)
	}

	tail := newRingBuffer(maxTailLines)
	scanner := bufio.NewScanner(encoderOut)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		tail.add(line)
		if onLine != nil {
			onLine(line)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		tail.add("gateway: scan error: " + err.Error())
	}

	encErr := encoder.Wait()
	_ = decoder.Wait()

	if encErr != nil {
		if isInterrupt(encErr) {
			return errors.NewInterrupted()
		}
		return errors.NewChunkEncodeError(strings.Join(encoderCmd, " "), exitCode(encErr), tail.lines())
	}
	return nil
}

func isInterrupt(err error) bool {
	var exitErr *exec.ExitError
	if ee, ok := err.(*exec.ExitError); ok {
		exitErr = ee
	} else {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return status.Signaled() && status.Signal() == syscall.SIGINT
}

func exitCode(err error) int {
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}

type ringBuffer struct {
	cap  int
	data []string
}

func newRingBuffer(cap int) *ringBuffer { return &ringBuffer{cap: cap} }

func (r *ringBuffer) add(line string) {
	r.data = append(r.data, line)
	if len(r.data) > r.cap {
		r.data = r.data[len(r.data)-r.cap:]
	}
}

func (r *ringBuffer) lines() string {
	return strings.Join(r.data, "\n")
}
