package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 22

// statusReport accumulates sectioned "label: [KIND] message" lines.
type statusReport struct {
	colorize bool
	lines    []string
	errors   int
}

func newStatusReport(w io.Writer) *statusReport {
	return &statusReport{colorize: shouldColorize(w)}
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	r.lines = append(r.lines, r.paint(ansiBlue, fmt.Sprintf("== %s ==", strings.TrimSpace(title))))
}

func (r *statusReport) add(label string, kind statusKind, message string) {
	if kind == statusError {
		r.errors++
	}
	tag := "[" + kind.label() + "]"
	if message != "" {
		tag += " " + message
	}
	r.lines = append(r.lines, r.paint(kind.color(), fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", tag)))
}

func (r *statusReport) String() string {
	return strings.Join(r.lines, "\n")
}

func (r *statusReport) paint(color, line string) string {
	if !r.colorize || color == "" {
		return line
	}
	return color + line + ansiReset
}

func (k statusKind) label() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (k statusKind) color() string {
	switch k {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
