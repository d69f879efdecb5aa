package main

import (
	"fmt"
	"io"
	"os"
	"time"

	pretty "github.com/jedib0t/go-pretty/v6/progress"
	"github.com/mattn/go-isatty"

	"reelsmith/internal/progress"
)

// renderStream consumes one operation's event stream, drawing a live bar on
// a terminal and falling back to plain lines otherwise. The terminal
// failure, if any, is returned for the command to surface.
func renderStream(out io.Writer, label string, stream progress.Stream) error {
	if isTerminal(out) {
		return renderStreamBar(out, label, stream)
	}
	return renderStreamLines(out, label, stream)
}

func renderStreamBar(out io.Writer, label string, stream progress.Stream) error {
	writer := pretty.NewWriter()
	writer.SetOutputWriter(out)
	writer.SetTrackerLength(30)
	writer.SetUpdateFrequency(100 * time.Millisecond)
	writer.SetAutoStop(false)

	tracker := &pretty.Tracker{Message: label, Total: 100}
	writer.AppendTracker(tracker)
	go writer.Render()
	defer writer.Stop()

	var failure error
	for ev := range stream {
		switch ev.Type {
		case progress.TypeProgress:
			tracker.SetValue(int64(ev.Percent))
			if ev.Message != "" {
				tracker.UpdateMessage(fmt.Sprintf("%s: %s", label, ev.Message))
			}
		case progress.TypeReady:
			tracker.UpdateMessage(fmt.Sprintf("%s: partial result available", label))
		case progress.TypeCompleted:
			tracker.SetValue(100)
			tracker.MarkAsDone()
		case progress.TypeFailed:
			failure = ev.Err
			tracker.MarkAsErrored()
		}
	}
	// Give the renderer one cycle to paint the terminal state.
	time.Sleep(120 * time.Millisecond)
	return failure
}

func renderStreamLines(out io.Writer, label string, stream progress.Stream) error {
	var failure error
	for ev := range stream {
		switch ev.Type {
		case progress.TypeProgress:
			fmt.Fprintf(out, "%s: %3.0f%% %s\n", label, ev.Percent, ev.Message)
		case progress.TypeReady:
			fmt.Fprintf(out, "%s: partial result available\n", label)
		case progress.TypeCompleted:
			fmt.Fprintf(out, "%s: done %s\n", label, ev.Message)
		case progress.TypeFailed:
			failure = ev.Err
			fmt.Fprintf(out, "%s: failed: %v\n", label, ev.Err)
		}
	}
	return failure
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
