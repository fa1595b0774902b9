package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"learncards/internal/client"
	"learncards/internal/logger"
	"learncards/internal/models"
	"learncards/internal/quiz"
	"learncards/internal/util"

	"github.com/joho/godotenv"
)

type options struct {
	server   string
	text     string
	file     string
	video    string
	document string
	count    int
	filter   string
	query    string
	watch    bool
	report   string
}

func main() {
	_ = godotenv.Load(".env")
	var o options
	flag.StringVar(&o.server, "server", envOr("LEARNCARDS_SERVER", "http://localhost:3000"), "learncards API base URL")
	flag.StringVar(&o.text, "text", "", "source text")
	flag.StringVar(&o.file, "file", "", "read source text from a plain text file")
	flag.StringVar(&o.video, "video", "", "video file to upload")
	flag.StringVar(&o.document, "document", "", "PDF or text document to upload")
	flag.IntVar(&o.count, "count", 0, "number of cards (server default when 0)")
	flag.StringVar(&o.filter, "filter", "all", "card filter: all, choice, boolean, fill")
	flag.StringVar(&o.query, "query", "", "only show questions matching this pattern")
	flag.BoolVar(&o.watch, "watch", false, "follow video progress over a websocket instead of polling")
	flag.StringVar(&o.report, "report", "", "write the final report as JSON to this path")
	flag.Parse()

	log, err := logger.New("cli")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cards, err := fetchCards(ctx, client.New(o.server), o)
	if err != nil {
		var nc *client.NoCardsError
		if errors.As(err, &nc) {
			fmt.Println("The model did not return cards. Raw reply:")
			fmt.Println(nc.Text)
			os.Exit(2)
		}
		log.Fatal("generate cards failed", "error", err)
	}

	session := quiz.NewSession(cards)
	if session.Len() == 0 {
		fmt.Println("No usable cards were generated.")
		return
	}
	play(bufio.NewReader(os.Stdin), os.Stdout, session, quiz.Filter{Type: o.filter, Query: o.query})

	r := session.Report()
	fmt.Println()
	_ = r.WriteText(os.Stdout)
	if o.report != "" {
		if err := util.WriteJSONAtomic(o.report, r); err != nil {
			log.Error("write report failed", "path", o.report, "error", err)
		}
	}
}

func fetchCards(ctx context.Context, c *client.Client, o options) ([]models.Card, error) {
	switch {
	case o.video != "":
		id, err := c.UploadVideo(ctx, o.video, o.count)
		if err != nil {
			return nil, err
		}
		show := func(t models.Task) { fmt.Printf("\r%s (%d%%)   ", t.Message, t.Progress) }
		var task models.Task
		if o.watch {
			task, err = c.WatchTask(ctx, id, show)
		} else {
			task, err = c.WaitForTask(ctx, id, show)
		}
		fmt.Println()
		if err != nil {
			return nil, err
		}
		if task.Status == models.TaskFailed {
			return nil, fmt.Errorf("task %s failed: %s", id, task.Error)
		}
		return task.Result, nil
	case o.document != "":
		return c.GenerateFromDocument(ctx, o.document, o.count)
	case o.file != "":
		data, err := os.ReadFile(o.file)
		if err != nil {
			return nil, err
		}
		return c.GenerateCards(ctx, string(data), o.count)
	default:
		return c.GenerateCards(ctx, o.text, o.count)
	}
}

// play asks every filtered card once. An empty line skips the card.
func play(in *bufio.Reader, out io.Writer, s *quiz.Session, f quiz.Filter) {
	cards := s.Filtered(f)
	for n, c := range cards {
		fmt.Fprintf(out, "\n[%d/%d] %s\n%s\n", n+1, len(cards), c.Card.TypeLabel(), c.Card.Question)
		if c.Card.Timestamp != nil {
			fmt.Fprintf(out, "(at %s)\n", quiz.FormatTimestamp(*c.Card.Timestamp))
		}
		opts := c.Card.DisplayOptions()
		for i, opt := range opts {
			fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprint(out, "> ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		line = strings.TrimSpace(line)

		var st quiz.CardState
		if c.Card.Type == models.CardFill {
			st, err = s.SubmitFill(c.Index, line)
		} else {
			choice := -1
			if num, convErr := strconv.Atoi(line); convErr == nil {
				choice = num - 1
			}
			st, err = s.SubmitOption(c.Index, choice)
		}
		if errors.Is(err, quiz.ErrNoAnswer) {
			fmt.Fprintln(out, "skipped")
			continue
		}
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if st.Status == quiz.StatusCorrect {
			fmt.Fprintln(out, "correct")
		} else {
			fmt.Fprintf(out, "wrong, expected %s\n", c.Card.ExpectedAnswer())
		}
		if c.Card.Explanation != "" {
			fmt.Fprintln(out, c.Card.Explanation)
		}
		stats := s.Stats()
		fmt.Fprintf(out, "progress %d%%, accuracy %d%%\n", stats.Progress, stats.Accuracy)
	}
}

func envOr(k, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return fallback
}
