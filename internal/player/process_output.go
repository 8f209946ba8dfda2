//go:build unix

package player

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Events receives playback notifications from an output.
type Events interface {
	HandleReady(token uint64)
	HandleEnded(token uint64)
	HandleError(token uint64, err error)
}

// ErrNoPlayerCommand is returned when the output has no command to run.
var ErrNoPlayerCommand = errors.New("no player command configured")

// ProcessOutput plays sources through an external player process such as mpv.
// Pause and resume suspend the process; seeking restarts it at the new offset.
type ProcessOutput struct {
	command []string
	logger  *zap.Logger

	mutex      sync.Mutex
	events     Events
	src        Source
	hasSource  bool
	cmd        *exec.Cmd
	generation uint64
	startedAt  time.Time
	offset     time.Duration
	pausedAt   time.Time
	paused     bool
	volume     int
}

// NewProcessOutput creates an output running command (split on whitespace) for each source.
func NewProcessOutput(command string, logger *zap.Logger) *ProcessOutput {
	return &ProcessOutput{
		command: strings.Fields(command),
		logger:  logger,
		volume:  100,
	}
}

// Bind sets the receiver of playback events. It must be called before the first SetSource.
func (o *ProcessOutput) Bind(events Events) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.events = events
}

// SetSource replaces the current source. Readiness is reported asynchronously.
func (o *ProcessOutput) SetSource(src Source) error {
	if len(o.command) == 0 {
		return ErrNoPlayerCommand
	}

	o.mutex.Lock()
	o.killLocked()
	o.src = src
	o.hasSource = true
	o.offset = 0
	events := o.events
	o.mutex.Unlock()

	if events != nil {
		go events.HandleReady(src.Token)
	}
	return nil
}

// Play starts the process for the current source or resumes a suspended one.
func (o *ProcessOutput) Play() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.hasSource {
		return nil
	}
	if o.cmd != nil && o.paused {
		if err := o.cmd.Process.Signal(syscall.SIGCONT); err != nil {
			return fmt.Errorf("failed to resume player: %w", err)
		}
		o.startedAt = o.startedAt.Add(time.Since(o.pausedAt))
		o.paused = false
		return nil
	}
	if o.cmd != nil {
		return nil
	}
	return o.startLocked()
}

func (o *ProcessOutput) startLocked() error {
	args := append([]string(nil), o.command[1:]...)
	args = append(args,
		"--no-video",
		"--really-quiet",
		"--volume="+strconv.Itoa(o.volume),
		fmt.Sprintf("--start=%.1f", o.offset.Seconds()),
	)

	cmd := exec.Command(o.command[0], args...)
	if len(o.src.Blob) > 0 {
		cmd.Args = append(cmd.Args, "-")
		cmd.Stdin = bytes.NewReader(o.src.Blob)
	} else {
		cmd.Args = append(cmd.Args, o.src.URL)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}

	o.generation++
	o.cmd = cmd
	o.startedAt = time.Now()
	o.paused = false

	o.logger.Debug("Player process started",
		zap.Int("pid", cmd.Process.Pid),
		zap.Uint64("token", o.src.Token))

	go o.wait(cmd, o.generation, o.src.Token)
	return nil
}

func (o *ProcessOutput) wait(cmd *exec.Cmd, generation, token uint64) {
	err := cmd.Wait()

	o.mutex.Lock()
	if generation != o.generation {
		o.mutex.Unlock()
		return
	}
	o.cmd = nil
	o.offset = 0
	events := o.events
	o.mutex.Unlock()

	if events == nil {
		return
	}
	if err != nil {
		events.HandleError(token, fmt.Errorf("player exited: %w", err))
		return
	}
	events.HandleEnded(token)
}

// Pause suspends the player process.
func (o *ProcessOutput) Pause() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.cmd == nil || o.paused {
		return nil
	}
	if err := o.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("failed to pause player: %w", err)
	}
	o.paused = true
	o.pausedAt = time.Now()
	return nil
}

// Stop kills the player process and forgets the source.
func (o *ProcessOutput) Stop() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.killLocked()
	o.hasSource = false
	o.offset = 0
	return nil
}

func (o *ProcessOutput) killLocked() {
	if o.cmd == nil {
		return
	}
	o.generation++
	if o.paused {
		_ = o.cmd.Process.Signal(syscall.SIGCONT)
	}
	if err := o.cmd.Process.Kill(); err != nil {
		o.logger.Debug("Failed to kill player process", zap.Error(err))
	}
	o.cmd = nil
	o.paused = false
}

// Seek restarts playback of the current source at position.
func (o *ProcessOutput) Seek(position time.Duration) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.hasSource {
		return nil
	}
	running := o.cmd != nil
	wasPaused := o.paused
	o.killLocked()
	o.offset = position
	if !running {
		return nil
	}
	if err := o.startLocked(); err != nil {
		return err
	}
	if wasPaused {
		if err := o.cmd.Process.Signal(syscall.SIGSTOP); err == nil {
			o.paused = true
			o.pausedAt = time.Now()
		}
	}
	return nil
}

// SetVolume applies from the next process start.
func (o *ProcessOutput) SetVolume(percent int) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.volume = percent
	return nil
}

// Position estimates the playhead from wall-clock time.
func (o *ProcessOutput) Position() time.Duration {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.cmd == nil {
		return o.offset
	}
	if o.paused {
		return o.offset + o.pausedAt.Sub(o.startedAt)
	}
	return o.offset + time.Since(o.startedAt)
}
