package repl

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap binds the editing keys the REPL handles itself. Other keys go to the
// text input.
type keyMap struct {
	Cancel      key.Binding
	Exit        key.Binding
	Submit      key.Binding
	Next        key.Binding
	Prev        key.Binding
	Older       key.Binding
	Newer       key.Binding
	OlderInMode key.Binding
	NewerInMode key.Binding
	OlderCmd    key.Binding
	NewerCmd    key.Binding
	Mode        key.Binding
}

var keys = keyMap{
	Cancel: key.NewBinding(key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "clear the line; exit on an empty line")),
	Exit: key.NewBinding(key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "exit on an empty line")),
	Submit: key.NewBinding(key.WithKeys("enter"),
		key.WithHelp("enter", "run the line, or keep the selected candidate")),
	Next: key.NewBinding(key.WithKeys("tab"),
		key.WithHelp("tab", "next candidate")),
	Prev: key.NewBinding(key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous candidate")),
	Older: key.NewBinding(key.WithKeys("up"),
		key.WithHelp("up", "older history entry, switching mode to match")),
	Newer: key.NewBinding(key.WithKeys("down"),
		key.WithHelp("down", "newer history entry, switching mode to match")),
	OlderInMode: key.NewBinding(key.WithKeys("shift+up"),
		key.WithHelp("shift+up", "older entry of the current mode")),
	NewerInMode: key.NewBinding(key.WithKeys("shift+down"),
		key.WithHelp("shift+down", "newer entry of the current mode")),
	OlderCmd: key.NewBinding(key.WithKeys("alt+up"),
		key.WithHelp("alt+up", "older command; returns to the line past either end")),
	NewerCmd: key.NewBinding(key.WithKeys("alt+down"),
		key.WithHelp("alt+down", "newer command")),
	Mode: key.NewBinding(key.WithKeys("esc"),
		key.WithHelp("esc", "cancel completion, or toggle eval and command mode")),
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{
		k.Submit, k.Next, k.Prev, k.Mode,
		k.Older, k.Newer, k.OlderInMode, k.NewerInMode, k.OlderCmd, k.NewerCmd,
		k.Cancel, k.Exit,
	}
}

// commands describes the control-mode commands in the order listed by help.
var commands = []struct{ name, desc string }{
	{"help", "print this help"},
	{"list", "list variables, globals, functions, and classes in scope"},
	{"edit", "edit the script in $EDITOR and recompile it"},
	{"reset", "prepare the script again, rerunning global initializers"},
	{"clear", "clear the screen"},
	{"quit", "exit"},
}

// helpMessage renders the commands and key bindings.
func helpMessage() string {
	var b strings.Builder

	b.WriteString("\nEvaluate an expression (Fib(10), $\"{name}!\") or statements ending in ';'\n")
	b.WriteString("(count += 2;). Completions appear as you type.\n\nCommands:\n")

	for _, c := range commands {
		fmt.Fprintf(&b, "  %-8s %s\n", c.name, c.desc)
	}

	b.WriteString("\nKeys:\n")

	for _, k := range keys.bindings() {
		h := k.Help()
		fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
	}

	return b.String()
}
