package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lox/holdem-engine/internal/fileutil"
	"github.com/lox/holdem-engine/internal/phh"
)

// HandHistoryCmd is the root command for PHH utilities.
type HandHistoryCmd struct {
	Show   HandHistoryShowCmd   `cmd:"" help:"Print the hands of a PHH session file"`
	Export HandHistoryExportCmd `cmd:"" help:"Write one hand of a session file as a standalone .phh file"`
}

// HandHistoryShowCmd prints hands from a session file.
type HandHistoryShowCmd struct {
	File  string `arg:"" name:"file" help:"Path to a .phhs session file" type:"existingfile"`
	Limit int    `help:"Maximum number of hands to show (0 = all)"`
}

func (cmd HandHistoryShowCmd) Run() error {
	hands, err := loadSession(cmd.File)
	if err != nil {
		return err
	}
	limit := cmd.Limit
	if limit <= 0 || limit > len(hands) {
		limit = len(hands)
	}
	for i, hand := range hands[:limit] {
		if i > 0 {
			fmt.Println()
		}
		renderHand(os.Stdout, i+1, hand)
	}
	return nil
}

// HandHistoryExportCmd extracts one hand.
type HandHistoryExportCmd struct {
	File string `arg:"" name:"file" help:"Path to a .phhs session file" type:"existingfile"`
	Hand int    `default:"1" help:"1-based hand number within the session"`
	Out  string `short:"o" required:"" help:"Output .phh path"`
}

func (cmd HandHistoryExportCmd) Run() error {
	hands, err := loadSession(cmd.File)
	if err != nil {
		return err
	}
	if cmd.Hand < 1 || cmd.Hand > len(hands) {
		return fmt.Errorf("hand %d out of range, %s holds %d hands", cmd.Hand, cmd.File, len(hands))
	}
	hand := hands[cmd.Hand-1]
	return fileutil.WriteAtomic(cmd.Out, 0o644, func(w io.Writer) error {
		return phh.Encode(w, hand)
	})
}

func loadSession(path string) ([]*phh.HandHistory, error) {
	if path == "" {
		return nil, errors.New("hand-history requires a file path")
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hands, err := phh.DecodeSession(f)
	if err != nil {
		return nil, err
	}
	if len(hands) == 0 {
		return nil, fmt.Errorf("no hands found in %s", path)
	}
	return hands, nil
}

func renderHand(w io.Writer, n int, hand *phh.HandHistory) {
	title := fmt.Sprintf(" Hand #%d ", n)
	if hand.HandID != "" {
		title = fmt.Sprintf(" Hand #%d · %s ", n, hand.HandID)
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	if hand.Table != "" || hand.Time != "" {
		fmt.Fprintln(w, dimStyle.Render(strings.TrimSpace(hand.Table+" "+hand.Time)))
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-3s %-14s %8s %8s", "#", "player", "start", "net")))
	for i := range hand.StartingStacks {
		name := fmt.Sprintf("p%d", i+1)
		if i < len(hand.Players) {
			name = hand.Players[i]
		}
		net := 0
		if i < len(hand.FinishingStacks) {
			net = hand.FinishingStacks[i] - hand.StartingStacks[i]
		}
		line := fmt.Sprintf("p%-2d %-14s %8d %+8d", i+1, name, hand.StartingStacks[i], net)
		switch {
		case net > 0:
			line = winStyle.Render(line)
		case net < 0:
			line = lossStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}

	for _, a := range hand.Actions {
		fmt.Fprintln(w, "  "+a)
	}
}
