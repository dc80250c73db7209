package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plotdeck/plotdeck/internal/session"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive session prompt",
	Long: `Read gnuplot commands from stdin and send them to the current session.
Lines starting with ':' are meta commands:

  :new              start a new session and make it current
  :use <id>         switch to session <id>
  :close [id]       close a session (default: current)
  :sessions         list live sessions
  :dump [data|full] print the session's reconstructed script
  :save <path>      write the reconstructed script to a file
  :reset            reset the current session
  :quit             close all sessions and exit`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, cleanup, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		scanner := bufio.NewScanner(os.Stdin)
		for {
			prompt(reg)
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, ":") {
				quit, err := runMeta(reg, line)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				}
				if quit {
					return nil
				}
				continue
			}

			out, err := reg.Exec(line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			for _, l := range out {
				fmt.Println(l)
			}
		}
		return scanner.Err()
	},
}

func prompt(reg *session.Registry) {
	if id := reg.CurrentID(); id != 0 {
		fmt.Fprintf(os.Stderr, "gp:%d> ", id)
	} else {
		fmt.Fprint(os.Stderr, "gp> ")
	}
}

// parseMeta splits a ":name arg" line into its parts.
func parseMeta(line string) (name, arg string) {
	line = strings.TrimPrefix(line, ":")
	name, arg, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(arg)
}

func runMeta(reg *session.Registry, line string) (quit bool, err error) {
	name, arg := parseMeta(line)
	switch name {
	case "new":
		id, err := reg.NewSession("")
		if err != nil {
			return false, err
		}
		fmt.Fprintf(os.Stderr, "session %d\n", id)

	case "use":
		id, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("usage: :use <id>")
		}
		return false, reg.SetCurrent(id)

	case "close":
		if arg == "" {
			code, ok, err := reg.CloseCurrent()
			if err != nil {
				return false, err
			}
			if ok {
				fmt.Fprintf(os.Stderr, "exit code %d\n", code)
			}
			return false, nil
		}
		id, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("usage: :close [id]")
		}
		code, err := reg.Close(id)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(os.Stderr, "exit code %d\n", code)

	case "sessions":
		current := reg.CurrentID()
		for _, id := range reg.SessionIDs() {
			marker := " "
			if id == current {
				marker = "*"
			}
			fmt.Printf("%s %d\n", marker, id)
		}

	case "dump":
		mode := session.DumpMode{Dry: true}
		switch arg {
		case "", "data":
			mode.Data = arg == "data"
		case "full":
			mode.Full = true
		default:
			return false, fmt.Errorf("usage: :dump [data|full]")
		}
		lines, err := reg.Dump(mode)
		if err != nil {
			return false, err
		}
		for _, l := range lines {
			fmt.Println(l)
		}

	case "save":
		if arg == "" {
			return false, fmt.Errorf("usage: :save <path>")
		}
		f, err := os.Create(arg)
		if err != nil {
			return false, err
		}
		defer f.Close()
		return false, reg.Save(f)

	case "reset":
		return false, reg.Reset()

	case "quit", "q", "exit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown meta command :%s", name)
	}
	return false, nil
}
