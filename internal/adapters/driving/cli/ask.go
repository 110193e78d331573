package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	askJSON bool
	askTopK int
	askPing bool
)

var askCmd = &cobra.Command{
	Use:   "ask FILE [QUESTION...]",
	Short: "Answer questions about a document",
	Long: `Index FILE and answer each QUESTION in turn.

Every argument after FILE is one question, so quote questions that contain
spaces. With no questions, one question is read per line from standard input
until EOF. Blank lines are skipped.

Examples:
  docqa ask handbook.pdf "How many days of leave do I get?"
  cat questions.txt | docqa ask handbook.pdf --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print one JSON object per answer")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks retrieved per question (default from settings)")
	askCmd.Flags().BoolVar(&askPing, "ping", false, "check both providers are reachable before indexing")
	rootCmd.AddCommand(askCmd)
}

// answerJSON is the --json output for one answered question.
type answerJSON struct {
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Pages    []int        `json:"pages"`
	Sources  []sourceJSON `json:"sources"`
}

type sourceJSON struct {
	Page  int     `json:"page"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	session, cleanup, err := openSession(ctx, args[0], SessionOptions{Ping: askPing, TopK: askTopK})
	if err != nil {
		return err
	}
	defer cleanup()

	info := session.Info()
	logger.Info("indexed %s: %d pages, %d chunks", info.Document, info.Pages, info.Chunks)

	out := cmd.OutOrStdout()
	if questions := args[1:]; len(questions) > 0 {
		for _, q := range questions {
			if err := askOne(ctx, session, q, out); err != nil {
				return err
			}
		}
		return nil
	}
	return askFromReader(ctx, session, cmd.InOrStdin(), out, cmd.ErrOrStderr())
}

// maxQuestionBytes bounds a single question line read from stdin.
const maxQuestionBytes = 1 << 20

// askFromReader answers one question per input line. A failed question is
// reported and the loop continues; the session keeps its earlier answers.
func askFromReader(ctx context.Context, session driving.SessionService, in io.Reader, out, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxQuestionBytes)
	var asked, failed int
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		asked++
		if err := askOne(ctx, session, q, out); err != nil {
			failed++
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading questions: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d questions failed", failed, asked)
	}
	return nil
}

func askOne(ctx context.Context, session driving.SessionService, question string, out io.Writer) error {
	entry, err := session.Ask(ctx, question)
	if err != nil {
		return err
	}
	if askJSON {
		return json.NewEncoder(out).Encode(newAnswerJSON(entry))
	}
	printEntry(out, entry)
	return nil
}

func newAnswerJSON(entry domain.TranscriptEntry) answerJSON {
	a := answerJSON{
		Question: entry.Question,
		Answer:   entry.Answer,
		Pages:    entry.Sources.Pages(),
		Sources:  make([]sourceJSON, len(entry.Sources)),
	}
	if a.Pages == nil {
		a.Pages = []int{}
	}
	for i, sc := range entry.Sources {
		a.Sources[i] = sourceJSON{Page: sc.Chunk.PageNumber(), Score: sc.Score, Text: sc.Chunk.Text}
	}
	return a
}

// printEntry writes a question, its answer and the cited pages.
func printEntry(out io.Writer, entry domain.TranscriptEntry) {
	fmt.Fprintf(out, "Q: %s\n", entry.Question)
	fmt.Fprintf(out, "A: %s\n", entry.Answer)

	pages := entry.Sources.Pages()
	if len(pages) == 0 {
		fmt.Fprintln(out, "Sources: none")
		fmt.Fprintln(out)
		return
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprint(p)
	}
	fmt.Fprintf(out, "Sources: pages %s\n", strings.Join(parts, ", "))
	if logger.IsVerbose() {
		for i, sc := range entry.Sources {
			fmt.Fprintf(out, "  [%d] page %d, score %.3f: %s\n", i+1, sc.Chunk.PageNumber(), sc.Score,
				logger.Preview(strings.Join(strings.Fields(sc.Chunk.Text), " "), 80))
		}
	}
	fmt.Fprintln(out)
}
