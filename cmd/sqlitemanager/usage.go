package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"strings"
)

// CommandHelp is the content of a help screen.
type CommandHelp struct {
	Usage       string
	Description string
	Commands    []Command
	Options     *flag.FlagSet
	Examples    []string
}

type Command struct {
	Name        string
	Description string
}

// Print writes h to w, one blank line between sections.
func (h *CommandHelp) Print(w io.Writer) {
	first := true
	section := func(title string) {
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		fmt.Fprintf(w, "%s:\n", title)
	}

	if h.Usage != "" {
		section("Usage")
		fmt.Fprintf(w, "  %s\n", h.Usage)
	}

	if h.Description != "" {
		section("Description")
		scanner := bufio.NewScanner(strings.NewReader(h.Description))
		for scanner.Scan() {
			fmt.Fprintf(w, "  %s\n", scanner.Text())
		}
	}

	if len(h.Commands) > 0 {
		section("Commands")
		for _, c := range h.Commands {
			fmt.Fprintf(w, "  %-28s %s\n", c.Name, c.Description)
		}
	}

	if h.Options != nil {
		section("Options")
		var buf bytes.Buffer
		h.Options.SetOutput(&buf)
		h.Options.PrintDefaults()
		h.Options.SetOutput(w)
		scanner := bufio.NewScanner(&buf)
		for scanner.Scan() {
			fmt.Fprintf(w, "  %s\n", scanner.Text())
		}
	}

	if len(h.Examples) > 0 {
		section("Examples")
		for _, example := range h.Examples {
			fmt.Fprintf(w, "  %s\n", example)
		}
	}
}
