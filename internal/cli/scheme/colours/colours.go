// Package colours is the terminal palette shared by every command.
package colours

import "github.com/fatih/color"

var (
	Title   = color.New(color.FgCyan, color.Bold)
	Section = color.New(color.FgMagenta)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)
	Muted   = color.New(color.Faint)

	// Preferred highlights the voice speech falls back to.
	Preferred = color.New(color.FgYellow, color.Bold)
)
