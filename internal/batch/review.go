package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"

	"clipper/internal/clipstore"
	"clipper/internal/services"
)

// Decision is a reviewer's verdict on a generated clip. When neither Approve
// nor Skip is set, Start and End carry revised markers; blank keeps the
// current value.
type Decision struct {
	Approve bool
	Skip    bool
	Start   string
	End     string
}

// Reviewer inspects a normalized clip before it is uploaded.
type Reviewer interface {
	Review(ctx context.Context, rec clipstore.Record) (Decision, error)
}

// PlayFunc plays an audio file and returns when playback ends.
type PlayFunc func(ctx context.Context, path string) error

// Prompt asks yes/no questions on a line-oriented stream.
type Prompt struct {
	in   *bufio.Reader
	out  io.Writer
	play PlayFunc
}

// NewPrompt builds a reviewer over arbitrary streams.
func NewPrompt(in io.Reader, out io.Writer, play PlayFunc) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out, play: play}
}

// NewTerminalPrompt builds a reviewer on a terminal. It fails when in is not
// a TTY so unattended runs never block on a prompt.
func NewTerminalPrompt(in *os.File, out io.Writer, playerCommand string) (*Prompt, error) {
	if !isatty.IsTerminal(in.Fd()) && !isatty.IsCygwinTerminal(in.Fd()) {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "review", "stdin is not a terminal; pass --yes to auto-approve", nil)
	}
	return NewPrompt(in, out, CommandPlayer(playerCommand)), nil
}

// Review asks whether to play the clip. Declining playback approves it, as
// does approving after playback. Rejection prompts for revised markers.
func (p *Prompt) Review(ctx context.Context, rec clipstore.Record) (Decision, error) {
	play, err := p.confirm(fmt.Sprintf("Play clip %s?", rec.ID))
	if err != nil {
		return Decision{}, err
	}
	if !play {
		return Decision{Approve: true}, nil
	}
	if p.play != nil {
		if err := p.play(ctx, rec.NormalizedPath); err != nil {
			fmt.Fprintf(p.out, "playback failed: %v\n", err)
		}
	}
	approve, err := p.confirm("Approve publish?")
	if err != nil {
		return Decision{}, err
	}
	if approve {
		return Decision{Approve: true}, nil
	}

	start, err := p.ask(fmt.Sprintf("Start [%s] (\"skip\" drops the clip)", rec.Start))
	if err != nil {
		return Decision{}, err
	}
	if strings.EqualFold(start, "skip") {
		return Decision{Skip: true}, nil
	}
	end, err := p.ask(fmt.Sprintf("End [%s]", displayEnd(rec.End)))
	if err != nil {
		return Decision{}, err
	}
	return Decision{Start: start, End: end}, nil
}

func (p *Prompt) confirm(msg string) (bool, error) {
	answer, err := p.ask(msg + " (y/N)")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *Prompt) ask(msg string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", msg)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", services.Wrap(services.ErrValidation, "batch", "review", "input closed during review", nil)
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// CommandPlayer runs command with the file path appended, e.g.
// "ffplay -nodisp -autoexit".
func CommandPlayer(command string) PlayFunc {
	fields := strings.Fields(command)
	return func(ctx context.Context, path string) error {
		if len(fields) == 0 {
			return services.Wrap(services.ErrConfiguration, "batch", "play", "media.player_command is empty", nil)
		}
		args := append(append([]string{}, fields[1:]...), path)
		cmd := exec.CommandContext(ctx, fields[0], args...)
		if err := cmd.Run(); err != nil {
			return services.Wrap(services.ErrExternalTool, "batch", "play", fields[0], err)
		}
		return nil
	}
}

func displayEnd(end string) string {
	if end == "" {
		return "end of media"
	}
	return end
}
