package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

// app carries the terminal streams and the core factory into commands.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	plain  bool
	open   func() (*cryptochat.Core, func(), error)
}

func appFrom(args []interface{}) *app {
	for _, arg := range args {
		if a, ok := arg.(*app); ok {
			return a
		}
	}
	return nil
}

// printMarkdown writes md styled for the terminal, or raw in plain mode.
func (a *app) printMarkdown(md string) {
	if a.plain {
		fmt.Fprintln(a.out, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Fprintln(a.out, md)
		return
	}
	styled, err := r.Render(md)
	if err != nil {
		fmt.Fprintln(a.out, md)
		return
	}
	fmt.Fprint(a.out, styled)
}

func (a *app) errorf(format string, args ...any) {
	fmt.Fprintf(a.errOut, format+"\n", args...)
}
