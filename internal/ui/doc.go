// Package ui holds the terminal pieces of the CLI: the artist/year prompt and the color palette.
//
// [Prompt] runs two charmbracelet/bubbles text inputs as a small bubbletea program for commands
// started without an artist. [Styles] is shared with the CLI for its banner and status lines.
package ui
