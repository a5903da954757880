package h264decoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// process is one running ffmpeg that reads an elementary stream on stdin and
// writes fixed-size rgb24 pictures on stdout.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu     sync.Mutex
	cond   *sync.Cond
	frames [][]byte
	done   bool
	err    error
	stderr bytes.Buffer

	exited chan struct{}
}

func startProcess(ffmpegPath string, args []string, frameSize int) (*process, error) {
	p := &process{exited: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)

	p.cmd = exec.Command(ffmpegPath, args...)
	p.cmd.Stderr = writerFunc(p.writeStderr)

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	p.stdin = stdin

	go p.readLoop(stdout, frameSize)
	return p, nil
}

// readLoop collects pictures until ffmpeg closes stdout. The queue is
// unbounded so ffmpeg never blocks on output while stdin is being written.
func (p *process) readLoop(stdout io.Reader, frameSize int) {
	var readErr error
	for {
		buf := make([]byte, frameSize)
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
		p.mu.Lock()
		p.frames = append(p.frames, buf)
		p.cond.Broadcast()
		p.mu.Unlock()
	}

	waitErr := p.cmd.Wait()

	p.mu.Lock()
	switch {
	case waitErr != nil:
		p.err = fmt.Errorf("%w: %v: %s", ErrDecodeFailed, waitErr, bytes.TrimSpace(p.stderr.Bytes()))
	case readErr != nil:
		p.err = fmt.Errorf("%w: read output: %v", ErrDecodeFailed, readErr)
	}
	p.done = true
	p.cond.Broadcast()
	p.mu.Unlock()
	close(p.exited)
}

// next pops a picture. With block set it waits until a picture arrives or
// ffmpeg exits; a nil picture with a nil error means none is available.
func (p *process) next(block bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for block && len(p.frames) == 0 && !p.done {
		p.cond.Wait()
	}
	if len(p.frames) > 0 {
		buf := p.frames[0]
		p.frames[0] = nil
		p.frames = p.frames[1:]
		return buf, nil
	}
	if p.done && p.err != nil {
		return nil, p.err
	}
	return nil, nil
}

func (p *process) write(data []byte) error {
	if _, err := p.stdin.Write(data); err != nil {
		p.mu.Lock()
		stderr := bytes.TrimSpace(p.stderr.Bytes())
		p.mu.Unlock()
		return fmt.Errorf("%w: write input: %v: %s", ErrDecodeFailed, err, stderr)
	}
	return nil
}

// closeInput signals end of stream to ffmpeg.
func (p *process) closeInput() error {
	return p.stdin.Close()
}

// kill stops ffmpeg and waits for the reader to finish.
func (p *process) kill() {
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.exited
}

func (p *process) writeStderr(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stderr.Len() < 4096 {
		p.stderr.Write(b)
	}
	return len(b), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }
