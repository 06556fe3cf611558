package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/chat"
	"github.com/xhad/docchat/pkg/scraper"
	"github.com/xhad/docchat/pkg/session"
)

const chatHelp = `Commands:
  /upload <file>...     ingest documents and answer from them
  /url <url>            crawl a site and ingest its pages
  /image <file> [q]     ask about an image
  /audio <file>         summarize a recording
  /voice <file>         ask a spoken question
  /sessions             list saved sessions
  /load <id>            resume a saved session
  /new                  start a new session
  /mode                 show the answering mode
  exit                  quit`

func chatCMD(opts *globalOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat [file...]",
		Short: "Start an interactive chat, optionally ingesting files first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			r := &repl{app: a}
			if sessionID != "" {
				if r.session, err = a.sessions.Load(sessionID); err != nil {
					return err
				}
				color.Green("Resumed session %s (%d messages)", r.session.ID, r.session.Memory.Len())
			} else {
				r.session = session.New(a.config.Chat.MemoryWindow)
			}

			if len(args) > 0 {
				r.upload(ctx, args)
			}
			return r.run(ctx)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume a saved session")
	return cmd
}

type repl struct {
	app     *app
	session *session.Session
}

func (r *repl) run(ctx context.Context) error {
	color.Cyan("\nChat with your documents (type /help for commands, 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if l := strings.ToLower(line); l == "exit" || l == "quit" {
			break
		}

		if strings.HasPrefix(line, "/") {
			r.command(ctx, line)
			continue
		}
		r.ask(ctx, line)
	}

	return scanner.Err()
}

func (r *repl) command(ctx context.Context, line string) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/help":
		fmt.Println(chatHelp)
	case "/upload":
		if len(args) == 0 {
			color.Red("usage: /upload <file>...")
			return
		}
		r.upload(ctx, args)
	case "/url":
		if len(args) != 1 {
			color.Red("usage: /url <url>")
			return
		}
		r.crawl(ctx, args[0])
	case "/image":
		if len(args) == 0 {
			color.Red("usage: /image <file> [question]")
			return
		}
		r.image(ctx, args[0], strings.Join(args[1:], " "))
	case "/audio", "/voice":
		if len(args) != 1 {
			color.Red("usage: %s <file>", name)
			return
		}
		r.audio(ctx, args[0], name == "/voice")
	case "/sessions":
		r.listSessions()
	case "/load":
		if len(args) != 1 {
			color.Red("usage: /load <id>")
			return
		}
		sess, err := r.app.sessions.Load(args[0])
		if err != nil {
			color.Red("Error: %v", err)
			return
		}
		r.session = sess
		color.Green("Loaded session %s (%s mode)", sess.ID, sess.Mode())
		for _, t := range sess.Memory.History() {
			fmt.Printf("%s: %s\n", t.Role, snippet(t.Content, 200))
		}
	case "/new":
		r.session = session.New(r.app.config.Chat.MemoryWindow)
		color.Green("Started session %s", r.session.ID)
	case "/mode":
		fmt.Printf("Session %s is in %s mode\n", r.session.ID, r.session.Mode())
	default:
		color.Red("Unknown command %s (try /help)", name)
	}
}

func (r *repl) ask(ctx context.Context, question string) {
	ctx, cancel := r.app.turnContext(ctx)
	defer cancel()

	spinner := getSpinner("🤖 Generating response...")
	reply, err := r.app.chat.Answer(ctx, r.session, question)
	spinner.Finish()
	fmt.Print("\r")

	r.show(reply, err)
}

func (r *repl) show(reply *chat.Reply, err error) {
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	printReply(reply)
	if err := r.app.sessions.Save(r.session); err != nil {
		color.Yellow("Could not save session: %v", err)
	}
}

func (r *repl) upload(ctx context.Context, paths []string) {
	uploads, err := readUploads(paths)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	r.ingest(ctx, uploads)
}

func (r *repl) ingest(ctx context.Context, uploads []models.Upload) {
	progress := &ingestProgress{}
	report, err := r.app.pipeline.Ingest(ctx, uploads, progress.update)
	progress.finish()
	printReport(report)
	if err != nil {
		color.Red("Error: %v", err)
	}
	if report != nil && len(report.Committed) > 0 {
		r.session.EnableGrounded()
		if err := r.app.sessions.Save(r.session); err != nil {
			color.Yellow("Could not save session: %v", err)
		}
	}
}

func (r *repl) crawl(ctx context.Context, target string) {
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}
	cfg := r.app.config.Scraper

	spinner := getSpinner("📄 Scraping " + target)
	pages := 0
	sc, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:           target,
		MaxDepth:          cfg.MaxDepth,
		RateLimit:         cfg.RateLimit,
		IgnorePatterns:    cfg.IgnorePatterns,
		AllowedExtensions: cfg.AllowedExtensions,
		OnProgress: func(url string) {
			pages++
			spinner.Describe(color.CyanString("📄 Scraping documentation... (%d pages)", pages))
		},
	})
	if err != nil {
		spinner.Finish()
		color.Red("Failed to initialize scraper: %v", err)
		return
	}

	uploads, err := sc.Scrape(ctx, target)
	spinner.Finish()
	fmt.Println()
	if err != nil && len(uploads) == 0 {
		color.Red("Failed to scrape %s: %v", target, err)
		return
	}
	color.Green("✓ Scraped %d pages", len(uploads))
	r.ingest(ctx, uploads)
}

func (r *repl) image(ctx context.Context, path, question string) {
	data, err := os.ReadFile(path)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	ctx, cancel := r.app.turnContext(ctx)
	defer cancel()

	spinner := getSpinner("🖼  Looking at the image...")
	reply, err := r.app.chat.DescribeImage(ctx, r.session, data, mime.TypeByExtension(filepath.Ext(path)), question)
	spinner.Finish()
	fmt.Print("\r")
	r.show(reply, err)
}

func (r *repl) audio(ctx context.Context, path string, voice bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	ctx, cancel := r.app.turnContext(ctx)
	defer cancel()

	if !voice {
		spinner := getSpinner("🎧 Transcribing and summarizing...")
		reply, err := r.app.chat.AnswerAudio(ctx, r.session, filepath.Base(path), data)
		spinner.Finish()
		fmt.Print("\r")
		r.show(reply, err)
		return
	}

	text, err := r.app.chat.Transcribe(ctx, filepath.Base(path), data)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	fmt.Printf("You said: %s\n", text)
	r.ask(ctx, text)
}

func (r *repl) listSessions() {
	ids, err := r.app.sessions.List()
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	if len(ids) == 0 {
		fmt.Println("No saved sessions.")
		return
	}
	for _, id := range ids {
		marker := " "
		if id == r.session.ID {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, id)
	}
}
