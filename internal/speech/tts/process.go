package tts

import (
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// speechProcess tracks the single synthesizer process a command-line engine
// runs. Callers serialise access with their own mutex.
type speechProcess struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
}

// start runs cmd for u, stopping any previous process first. u's OnEnd
// fires once the process exits or is killed.
func (p *speechProcess) start(cmd *exec.Cmd, u Utterance) error {
	p.stop()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.name, err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done

	// Wait in background
	go func() {
		defer u.end()
		defer close(done)

		if err := cmd.Wait(); err != nil {
			// Killed by stop
			if cmd.ProcessState != nil && !cmd.ProcessState.Exited() {
				return
			}
			logrus.WithError(err).WithField("utterance", u.ID).Warnf("%s exited with error", p.name)
		}
	}()

	return nil
}

// stop kills the running process and waits for it to exit.
func (p *speechProcess) stop() {
	if p.done == nil {
		return
	}

	select {
	case <-p.done:
	default:
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		<-p.done
	}

	p.cmd = nil
	p.done = nil
}

func (p *speechProcess) running() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
