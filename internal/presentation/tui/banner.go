package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`  ____  _____ ____ _______  __`,
	` |  _ \| ____/ ___|_   _\ \/ /`,
	` | |_) |  _| \___ \ | |  \  / `,
	` |  _ <| |___ ___) || |  /  \ `,
	` |_| \_\_____|____/ |_| /_/\_\`,
}

var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

// PrintBanner writes the restx banner and version to w.
// Colors follow the terminal profile of w and are dropped when w is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(out.Color(bannerColors[i])))
	}
	fmt.Fprintln(w, out.String(" v"+version).Faint())
	fmt.Fprintln(w)
}
