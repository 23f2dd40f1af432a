package ui

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar wraps a progressbar for counted work. It is a no-op when output
// is not a terminal.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a bar over total items.
func NewProgressBar(total int64, description string) *ProgressBar {
	if !interactive {
		return &ProgressBar{}
	}
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(errOut),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("entries"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(errOut, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressBar{bar: bar}
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// SetTotal changes the bar maximum.
func (p *ProgressBar) SetTotal(total int64) {
	if p.bar != nil {
		p.bar.ChangeMax64(total)
	}
}

// Finish completes the bar.
func (p *ProgressBar) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Spinner wraps a spinner for work of unknown length. It is a no-op when
// output is not a terminal.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner showing message.
func NewSpinner(message string) *Spinner {
	if !interactive {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = errOut
	return &Spinner{spinner: s}
}

// Start starts the animation.
func (s *Spinner) Start() {
	if s.spinner != nil {
		s.spinner.Start()
	}
}

// Stop stops the animation and clears its line.
func (s *Spinner) Stop() {
	if s.spinner != nil {
		s.spinner.Stop()
	}
}

// UpdateMessage replaces the spinner message.
func (s *Spinner) UpdateMessage(message string) {
	if s.spinner != nil {
		s.spinner.Suffix = " " + message
	}
}
