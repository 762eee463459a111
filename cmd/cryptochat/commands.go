package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"strings"

	"github.com/google/subcommands"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

type askCmd struct{}

func (*askCmd) Name() string     { return "ask" }
func (*askCmd) Synopsis() string { return "send one message to the assistant and print the reply" }
func (*askCmd) Usage() string {
	return `cryptochat ask <message>

  Example: cryptochat ask "what's BTC trading at?"
`
}

func (*askCmd) SetFlags(*flag.FlagSet) {}

func (*askCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	text := strings.TrimSpace(strings.Join(f.Args(), " "))
	if text == "" {
		a.errorf("a message is required")
		return subcommands.ExitUsageError
	}
	core, closeCore, err := a.open()
	if err != nil {
		a.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer closeCore()

	resp, err := core.Process(ctx, text)
	if err != nil {
		a.errorf("%v", err)
		return subcommands.ExitFailure
	}
	a.printMarkdown(responseMarkdown(resp))
	return subcommands.ExitSuccess
}

type chatCmd struct {
	voice bool
}

func (*chatCmd) Name() string     { return "chat" }
func (*chatCmd) Synopsis() string { return "start an interactive chat session" }
func (*chatCmd) Usage() string {
	return `cryptochat chat [-voice]

  Reads one message per line. Type :voice to toggle voice mode, where each
  line is taken as a speech transcript and replies are also spoken.
  Type :quit or send EOF to leave.
`
}

func (c *chatCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.voice, "voice", false, "Start in voice mode.")
}

func (c *chatCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	core, closeCore, err := a.open()
	if err != nil {
		a.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer closeCore()

	speech := cryptochat.NewTranscriptSpeech(a.in, a.out)
	defer speech.Close()
	voice := c.voice
	setVoice := func(on bool) {
		voice = on
		if on {
			core.SetSpeech(speech)
		} else {
			core.SetSpeech(nil)
		}
	}
	setVoice(voice)

	a.printMarkdown(responseMarkdown(core.Welcome()))
	for {
		line, err := speech.Listen(ctx)
		switch {
		case errors.Is(err, cryptochat.ErrNoSpeech):
			if voice {
				a.printMarkdown(textNoSpeech)
			}
			continue
		case errors.Is(err, io.EOF):
			return subcommands.ExitSuccess
		case err != nil:
			a.errorf("%v", err)
			return subcommands.ExitFailure
		}

		switch strings.ToLower(line) {
		case ":quit", ":q", ":exit":
			return subcommands.ExitSuccess
		case ":voice":
			setVoice(!voice)
			if voice {
				a.printMarkdown(textVoiceOn)
			} else {
				a.printMarkdown(textVoiceOff)
			}
			continue
		}

		resp, err := core.Process(ctx, line)
		if err != nil {
			a.errorf("%v", err)
			continue
		}
		a.printMarkdown(responseMarkdown(resp))
	}
}

type snapshotCmd struct{}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "value the portfolio and record today's snapshot" }
func (*snapshotCmd) Usage() string {
	return `cryptochat snapshot

  Prices every holding and stores today's entry in the portfolio history.
`
}

func (*snapshotCmd) SetFlags(*flag.FlagSet) {}

func (*snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	core, closeCore, err := a.open()
	if err != nil {
		a.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer closeCore()

	value, err := core.Snapshot(ctx)
	if err != nil {
		a.errorf("%v", err)
		return subcommands.ExitFailure
	}
	if len(value.Holdings) == 0 {
		a.printMarkdown(textEmptySnapshot)
		return subcommands.ExitSuccess
	}
	a.printMarkdown("# Snapshot recorded\n\n" + portfolioValueMarkdown(value))
	return subcommands.ExitSuccess
}

type historyCmd struct {
	all bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show the recorded portfolio history" }
func (*historyCmd) Usage() string {
	return `cryptochat history [-all]

  Shows the last 7 days of snapshots, oldest first, or every stored
  snapshot with -all.
`
}

func (h *historyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&h.all, "all", false, "Show every stored snapshot instead of the last 7 days.")
}

func (h *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	core, closeCore, err := a.open()
	if err != nil {
		a.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer closeCore()

	var history []cryptochat.PortfolioSnapshot
	if h.all {
		history, err = core.History(ctx)
	} else {
		history, err = core.History7Days(ctx)
	}
	if err != nil {
		a.errorf("%v", err)
		return subcommands.ExitFailure
	}
	if len(history) == 0 {
		a.printMarkdown(textNoHistory)
		return subcommands.ExitSuccess
	}
	a.printMarkdown("# Portfolio history\n\n" + historyMarkdown(history))
	return subcommands.ExitSuccess
}
