package supervisor

import (
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Process is an opaque handle to a launched dev server. The supervisor
// only cares whether it is alive and how to terminate it.
type Process interface {
	// Wait blocks until the process exits.
	Wait() error
	// Kill terminates the process.
	Kill() error
}

// Spawner launches external dev server commands. It is the process-spawn
// boundary: tests supply fakes, production uses ExecSpawner.
type Spawner interface {
	Spawn(command []string, dir string) (Process, error)
}

// ExecSpawner launches commands via os/exec, forwarding child output to
// its logger at debug level.
type ExecSpawner struct {
	Logger *slog.Logger
}

func (s *ExecSpawner) Spawn(command []string, dir string) (Process, error) {
	if len(command) == 0 {
		return nil, errors.New("dev command is empty")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = dir
	cmd.Stdout = &logWriter{logger: logger, stream: "stdout"}
	cmd.Stderr = &logWriter{logger: logger, stream: "stderr"}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// logWriter forwards child process output lines to a slog logger.
type logWriter struct {
	logger *slog.Logger
	stream string
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		w.logger.Debug("dev server output", "stream", w.stream, "line", line)
	}
	return len(p), nil
}
