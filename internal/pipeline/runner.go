// Package pipeline turns staged report documents into delivered messages.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ukaji3/cashreport-go/internal/delivery"
	"github.com/ukaji3/cashreport-go/internal/log"
	"github.com/ukaji3/cashreport-go/internal/state"
	"github.com/ukaji3/cashreport-go/pkg/cashreport"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/report"
	"golang.org/x/sync/errgroup"
)

// FailureNotice prefixes the message sent for a document that cannot be read.
const FailureNotice = "Relatório recebido, mas não consegui ler a planilha: "

// Ledger records processed documents and the carried balance.
type Ledger interface {
	IsProcessed(ctx context.Context, sha string) (bool, error)
	MarkProcessed(ctx context.Context, doc state.Document) error
	LoadCarry(ctx context.Context) (report.Carry, error)
	SaveCarry(ctx context.Context, c report.Carry) error
}

// Config configures a Runner.
type Config struct {
	Dir         string
	Destination string
	Workers     int
	Options     cashreport.Options
}

// Result counts what one pass did.
type Result struct {
	Scanned  int
	Skipped  int
	Reported int
	Empty    int
	Failed   int
}

type Runner struct {
	cfg     Config
	ledger  Ledger
	sender  delivery.Sender
	logger  *log.Logger
	extract func(path string, opts cashreport.Options) (*models.Report, error)

	// unhashable holds names of files already reported as unreadable that
	// have no content hash to record.
	unhashable map[string]bool
}

func New(cfg Config, ledger Ledger, sender delivery.Sender, logger *log.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{
		cfg:     cfg,
		ledger:  ledger,
		sender:  sender,
		logger:  logger.WithComponent(log.ComponentPipeline),
		extract: cashreport.Extract,

		unhashable: make(map[string]bool),
	}
}

// job is one staged document and what extraction produced for it.
type job struct {
	name    string
	path    string
	sha     string
	size    int64
	skip    bool
	report  *models.Report
	readErr error
}

// RunOnce processes every new document in the staging directory. Documents
// are read concurrently and then reported one by one in name order, so the
// carried balance chains the same way on every run.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	jobs, err := r.scan()
	if err != nil {
		return res, err
	}
	res.Scanned = len(jobs)
	if len(jobs) == 0 {
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, j := range jobs {
		g.Go(func() error {
			return r.prepare(gctx, j)
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	carry, err := r.ledger.LoadCarry(ctx)
	if err != nil {
		return res, err
	}

	seen := make(map[string]bool)
	for _, j := range jobs {
		key := j.sha
		if key == "" {
			key = "name:" + j.name
		} else {
			delete(r.unhashable, j.name)
		}
		if j.skip || seen[key] || (j.sha == "" && r.unhashable[j.name]) {
			res.Skipped++
			continue
		}
		seen[key] = true

		if err := ctx.Err(); err != nil {
			return res, err
		}
		carry, err = r.deliver(ctx, j, carry, &res)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *Runner) scan() ([]*job, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read staging directory: %w", err)
	}

	// ReadDir returns entries sorted by name.
	var jobs []*job
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		jobs = append(jobs, &job{name: name, path: filepath.Join(r.cfg.Dir, name)})
	}
	return jobs, nil
}

// prepare hashes j and extracts it unless it was processed before. Only
// ledger failures and cancellation are returned; a bad document is kept on j.
func (r *Runner) prepare(ctx context.Context, j *job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sha, size, err := hashFile(j.path)
	if err != nil {
		j.readErr = err
		return nil
	}
	j.sha, j.size = sha, size

	done, err := r.ledger.IsProcessed(ctx, sha)
	if err != nil {
		return err
	}
	if done {
		j.skip = true
		return nil
	}

	j.report, j.readErr = r.extract(j.path, r.cfg.Options)
	return nil
}

func (r *Runner) deliver(ctx context.Context, j *job, carry report.Carry, res *Result) (report.Carry, error) {
	logger := r.logger.With(
		log.FieldDocument, j.name,
		log.FieldSHA256, j.sha,
		log.FieldSize, humanize.Bytes(uint64(j.size)))
	doc := state.Document{SHA256: j.sha, Name: j.name}

	if j.readErr != nil {
		logger.WarnContext(ctx, "Document could not be read", log.FieldError, j.readErr)
		if err := r.send(ctx, FailureNotice+j.name, j.name); err != nil {
			return carry, err
		}
		res.Failed++
		if j.sha == "" {
			r.unhashable[j.name] = true
			return carry, nil
		}
		doc.Status = state.StatusFailed
		return carry, r.ledger.MarkProcessed(ctx, doc)
	}

	for _, issue := range j.report.Issues {
		logger.WarnContext(ctx, "Total unavailable",
			log.FieldCell, issue.Cell,
			"field", issue.Field,
			log.FieldError, issue.Message)
	}

	body, next := report.Render(j.report.Summaries, carry)
	doc.Summaries = len(j.report.Summaries)
	if body == "" {
		logger.InfoContext(ctx, "Document has no day-slots")
		res.Empty++
		doc.Status = state.StatusEmpty
		return carry, r.ledger.MarkProcessed(ctx, doc)
	}

	if err := r.send(ctx, body, j.name); err != nil {
		return carry, err
	}
	if err := r.ledger.SaveCarry(ctx, next); err != nil {
		return carry, err
	}
	doc.Status = state.StatusReported
	if err := r.ledger.MarkProcessed(ctx, doc); err != nil {
		return next, err
	}

	res.Reported++
	logger.InfoContext(ctx, "Document reported",
		log.FieldSlots, doc.Summaries,
		log.FieldIssues, len(j.report.Issues))
	return next, nil
}

func (r *Runner) send(ctx context.Context, text, document string) error {
	err := r.sender.Send(ctx, delivery.Message{
		Destination: r.cfg.Destination,
		Text:        text,
		Document:    document,
	})
	if err != nil {
		return fmt.Errorf("deliver %s: %w", document, err)
	}
	return nil
}

// Watch runs RunOnce immediately and then on every tick until ctx ends.
// Pass errors are logged; the loop keeps going.
func (r *Runner) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		res, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Failure(ctx, "Pass failed", err)
		} else if res.Scanned > 0 {
			r.logger.InfoContext(ctx, "Pass complete",
				log.FieldCount, res.Scanned,
				"reported", res.Reported,
				"skipped", res.Skipped,
				"failed", res.Failed,
				log.FieldDuration, time.Since(start))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
