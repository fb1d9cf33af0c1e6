// Package main is the field-worker shell for missiond: it logs in, lists the
// worker's missions, opens and updates them, manages push tokens and
// announces newly assigned missions while it runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/pflag"

	"github.com/fieldops/missiond/internal/client"
	"github.com/fieldops/missiond/internal/models"
)

var (
	version   string
	buildDate string
)

const helpText = `Available commands:
  login                      sign in and remember the session
  logout                     forget the session
  list [status] [page]       list your missions
  get <id>                   show one mission
  open <id>                  start an unopened mission
  update <id>                mark tasks done and leave a comment
  token add|rm <token>       manage this device's push token
  exit`

var (
	okColor   = color.New(color.FgHiGreen)
	errColor  = color.New(color.FgRed)
	newColor  = color.New(color.FgHiMagenta)
	infoColor = color.New(color.FgCyan)
)

// shell holds the state of one interactive session.
type shell struct {
	api         *client.Client
	prompt      *client.Prompter
	out         io.Writer
	sessionFile string
}

// repl runs the interactive shell loop until exit or end of input.
func (s *shell) repl(ctx context.Context) {
	for {
		line, ok := s.prompt.Line("missiond> ")
		if !ok || ctx.Err() != nil {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(s.out, "Bye")
			return
		}
		if err := s.run(ctx, args); err != nil {
			errColor.Fprintln(s.out, "error:", err)
		}
	}
}

func (s *shell) run(ctx context.Context, args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "login":
		username := s.prompt.Ask("Username: ")
		password := s.prompt.Ask("Password: ")
		resp, err := s.api.Login(ctx, username, password)
		if err != nil {
			return err
		}
		if err := s.api.Session().Save(s.sessionFile); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		okColor.Fprintf(s.out, "Logged in as %s\n", resp.User.Username)
	case "logout":
		s.api.Session().Clear()
		if err := os.Remove(s.sessionFile); err != nil && !os.IsNotExist(err) {
			return err
		}
		fmt.Fprintln(s.out, "Logged out")
	case "list":
		var status models.Status
		page := 1
		for _, a := range args[1:] {
			if n, err := strconv.Atoi(a); err == nil {
				page = n
				continue
			}
			status = models.Status(a)
		}
		result, err := s.api.ListMine(ctx, page, 0, status)
		if err != nil {
			return err
		}
		s.printPage(result)
	case "get", "open", "update":
		if len(args) < 2 {
			return fmt.Errorf("usage: %s <id>", args[0])
		}
		return s.mission(ctx, args[0], args[1])
	case "token":
		if len(args) < 3 || (args[1] != "add" && args[1] != "rm") {
			return fmt.Errorf("usage: token add|rm <token>")
		}
		register := s.api.RegisterPushToken
		if args[1] == "rm" {
			register = s.api.RemovePushToken
		}
		n, err := register(ctx, args[2])
		if err != nil {
			return err
		}
		okColor.Fprintf(s.out, "%d push tokens registered\n", n)
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (s *shell) mission(ctx context.Context, cmd, id string) error {
	var (
		m   *models.Mission
		err error
	)
	switch cmd {
	case "get":
		m, err = s.api.Get(ctx, id)
	case "open":
		m, err = s.api.Open(ctx, id)
		if client.IsConflict(err) {
			infoColor.Fprintln(s.out, "Mission already opened:", err)
			return nil
		}
	case "update":
		m, err = s.api.Get(ctx, id)
		if err != nil {
			return err
		}
		upd := s.prompt.PromptUpdate(m)
		if client.Empty(upd) {
			fmt.Fprintln(s.out, "Nothing to update")
			return nil
		}
		m, err = s.api.Update(ctx, id, upd)
	}
	if err != nil {
		return err
	}
	b, _ := json.MarshalIndent(m, "", "  ")
	fmt.Fprintln(s.out, string(b))
	return nil
}

func (s *shell) printPage(p *models.MissionPage) {
	tw := table.NewWriter()
	tw.SetOutputMirror(s.out)
	tw.AppendHeader(table.Row{"ID", "Date", "Machine", "Status"})
	for _, m := range p.Missions {
		tw.AppendRow(table.Row{m.MissionID, m.Payload.Date, m.Payload.MachineName, m.Status})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("page %d/%d", p.Page, p.TotalPages), p.Total})
	tw.Render()
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		baseURL     string
		caFile      string
		sessionFile string
		pollEvery   time.Duration
		showVer     bool
	)

	pflag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	pflag.StringVar(&caFile, "ca", "", "path to a CA cert for HTTPS servers")
	pflag.StringVar(&sessionFile, "session", "session.json", "where the login session is kept")
	pflag.DurationVar(&pollEvery, "poll", 30*time.Second, "new mission check interval, 0 disables")
	pflag.BoolVar(&showVer, "version", false, "show build version and date")
	pflag.Parse()

	if showVer {
		fmt.Printf("missiond client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	httpClient, err := client.NewHTTPClient(caFile, 10*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	session, err := client.LoadSession(sessionFile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := client.New(baseURL, httpClient, session)
	if pollEvery > 0 {
		client.NewWatcher(api, 0).Start(ctx, pollEvery, func(m models.Mission) {
			newColor.Printf("\nNew mission %s at %s (%s)\n", m.MissionID, m.Payload.MachineName, m.Payload.Date)
		}, func(err error) {
			errColor.Println("\nmission check failed:", err)
		})
	}

	sh := &shell{
		api:         api,
		prompt:      client.NewPrompter(os.Stdin, os.Stdout),
		out:         os.Stdout,
		sessionFile: sessionFile,
	}
	if session.LoggedIn() {
		infoColor.Printf("Signed in as %s\n", session.Username)
	}
	sh.repl(ctx)
}
