// Package ui provides terminal output helpers for wgjoin's commands.
//
// # Components Overview
//
//	Spinner         - Step indicator for the network calls and activation
//	ConfigureColors - Picks the lipgloss color profile (NO_COLOR, --no-color, pipes)
//	IsTerminal      - TTY detection for prompts and animation
//
// # Color Scheme
//
// Colors are defined as ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Successful steps
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Degraded steps, manual action needed
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Fetching server info")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Warn(), s.Fail(), s.Skip()
//
// When stdout is not a terminal the spinner prints only the final line.
package ui
