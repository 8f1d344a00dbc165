package ui

import "strings"

const (
	reset      = "\033[0m"
	bold       = "\033[1m"
	mint       = "\033[38;5;121m"
	seafoam    = "\033[38;5;49m"
	cobalt     = "\033[38;5;33m"
	deepIndigo = "\033[38;5;61m"
)

// Banner renders a colored ures wordmark.
func Banner() string {
	var b strings.Builder

	uresLetters := [][]string{
		{"██╗   ██╗", "██║   ██║", "██║   ██║", "██║   ██║", "╚██████╔╝", " ╚═════╝ "},
		{"██████╗ ", "██╔══██╗", "██████╔╝", "██╔══██╗", "██║  ██║", "╚═╝  ╚═╝"},
		{"███████╗", "██╔════╝", "█████╗  ", "██╔══╝  ", "███████╗", "╚══════╝"},
		{"███████╗", "██╔════╝", "███████╗", "╚════██║", "███████║", "╚══════╝"},
	}
	uresGradient := []string{seafoam, mint, cobalt, deepIndigo}
	uresRows := make([]string, len(uresLetters[0]))
	for i, letter := range uresLetters {
		color := uresGradient[i%len(uresGradient)]
		for row := 0; row < len(letter); row++ {
			uresRows[row] += color + letter[row] + "  "
		}
	}
	for _, line := range uresRows {
		b.WriteString(bold + line + reset + "\n")
	}

	b.WriteString("\n")
	b.WriteString(bold + seafoam + "ures" + reset + "  •  unique resident memory lens\n\n")

	return b.String()
}
