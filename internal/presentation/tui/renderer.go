package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/restx/pkg/router"
	"github.com/charmbracelet/glamour"
)

// RoutesMarkdown renders the route table as a markdown table.
func RoutesMarkdown(rt *router.Router) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rt.Name())
	b.WriteString("| # | Route |\n|---|---|\n")
	for i, route := range rt.Routes() {
		fmt.Fprintf(&b, "| %d | `%s` |\n", i+1, route.String())
	}
	return b.String()
}

// RenderRoutes styles the route table for a terminal.
func RenderRoutes(rt *router.Router) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return "", err
	}
	return r.Render(RoutesMarkdown(rt))
}
