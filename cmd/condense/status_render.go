package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusError
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

func statusColor(kind statusKind, colorize bool) *color.Color {
	c := color.New(color.FgGreen)
	if kind == statusError {
		c = color.New(color.FgRed, color.Bold)
	}
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := "[OK]"
	if kind == statusError {
		statusText = "[FAIL]"
	}
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return statusColor(kind, colorize).Sprint(base)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
