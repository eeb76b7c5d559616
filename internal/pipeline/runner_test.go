package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ukaji3/cashreport-go/internal/delivery"
	"github.com/ukaji3/cashreport-go/internal/log"
	"github.com/ukaji3/cashreport-go/internal/state"
	"github.com/ukaji3/cashreport-go/pkg/cashreport"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/report"
	"github.com/xuri/excelize/v2"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []delivery.Message
	err      error
	onSend   func()
}

func (s *recordingSender) Send(ctx context.Context, msg delivery.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	if s.onSend != nil {
		s.onSend()
	}
	return nil
}

func f64(v float64) *float64 {
	return &v
}

// writeDay saves a one-slot export sheet.
func writeDay(t *testing.T, dir, name string, serial, entries, payments, vouchers float64) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	f.SetCellValue(sheet, "A2", "data_movimento")
	f.SetCellValue(sheet, "A3", serial)
	f.SetCellValue(sheet, "B3", entries)
	f.SetCellValue(sheet, "C3", payments)
	f.SetCellValue(sheet, "F3", vouchers)

	if err := f.SaveAs(filepath.Join(dir, name)); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}
}

func newRunner(t *testing.T, dir string, sender delivery.Sender, opening report.Carry) (*Runner, *state.Store) {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"), opening)
	if err != nil {
		t.Fatalf("state.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := Config{Dir: dir, Destination: "ops", Workers: 2, Options: cashreport.DefaultOptions()}
	return New(cfg, store, sender, log.Discard()), store
}

func TestRunOnce(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "2026-01-02.xlsx", 46024, 100, 40, 500)
	writeDay(t, dir, "2026-01-03.xlsx", 46025, 50, 10, 520)
	writeDay(t, dir, "~$2026-01-03.xlsx", 46025, 1, 1, 1)
	if err := os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a workbook"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	sender := &recordingSender{}
	runner, store := newRunner(t, dir, sender, report.Carry{Vouchers: f64(400), FlowBase: f64(1000)})
	ctx := t.Context()

	res, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if res.Scanned != 3 || res.Reported != 2 || res.Failed != 1 || res.Skipped != 0 {
		t.Errorf("result = %+v", res)
	}

	if len(sender.messages) != 3 {
		t.Fatalf("got %d messages, expected 3", len(sender.messages))
	}
	first := sender.messages[0]
	if first.Destination != "ops" || first.Document != "2026-01-02.xlsx" {
		t.Errorf("first message = %+v", first)
	}
	if !strings.HasPrefix(first.Text, "Relatório 02/01/2026\n") {
		t.Errorf("first heading: %q", first.Text)
	}
	if !strings.Contains(first.Text, "• Fluxo de caixa após pagamentos: R$ 1.160,00") {
		t.Errorf("first flow:\n%s", first.Text)
	}
	second := sender.messages[1]
	if !strings.Contains(second.Text, "• Entrada no voucher (Δ): R$ 20,00") ||
		!strings.Contains(second.Text, "• Fluxo de caixa no início do dia: R$ 1.160,00") ||
		!strings.Contains(second.Text, "• Fluxo de caixa após pagamentos: R$ 1.220,00") {
		t.Errorf("second message:\n%s", second.Text)
	}
	if sender.messages[2].Text != FailureNotice+"broken.xlsx" {
		t.Errorf("failure notice = %q", sender.messages[2].Text)
	}

	carry, err := store.LoadCarry(ctx)
	if err != nil {
		t.Fatalf("LoadCarry failed: %v", err)
	}
	if carry.Vouchers == nil || *carry.Vouchers != 520 || carry.FlowBase == nil || *carry.FlowBase != 1220 {
		t.Errorf("carry = %+v", carry)
	}

	docs, err := store.Documents(ctx)
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if len(docs) != 3 || docs[2].Status != state.StatusFailed {
		t.Errorf("documents = %+v", docs)
	}

	// A second pass finds nothing new.
	res, err = runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce failed: %v", err)
	}
	if res.Skipped != 3 || len(sender.messages) != 3 {
		t.Errorf("second pass result = %+v, messages = %d", res, len(sender.messages))
	}
}

func TestRunOnceEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "sem movimento")
	if err := f.SaveAs(filepath.Join(dir, "vazio.xlsx")); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}
	f.Close()

	sender := &recordingSender{}
	runner, store := newRunner(t, dir, sender, report.Carry{})

	res, err := runner.RunOnce(t.Context())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if res.Empty != 1 || len(sender.messages) != 0 {
		t.Errorf("result = %+v, messages = %d", res, len(sender.messages))
	}

	docs, _ := store.Documents(t.Context())
	if len(docs) != 1 || docs[0].Status != state.StatusEmpty {
		t.Errorf("documents = %+v", docs)
	}
}

func TestRunOnceDuplicateContent(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "a.xlsx", 46024, 100, 40, 500)
	data, err := os.ReadFile(filepath.Join(dir, "a.xlsx"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.xlsx"), data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sender := &recordingSender{}
	runner, _ := newRunner(t, dir, sender, report.Carry{})

	res, err := runner.RunOnce(t.Context())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if res.Reported != 1 || res.Skipped != 1 || len(sender.messages) != 1 {
		t.Errorf("result = %+v, messages = %d", res, len(sender.messages))
	}
}

func TestRunOnceDeliveryFailure(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "a.xlsx", 46024, 100, 40, 500)

	sender := &recordingSender{err: errors.New("broker down")}
	runner, store := newRunner(t, dir, sender, report.Carry{})

	if _, err := runner.RunOnce(t.Context()); err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("error = %v, expected delivery failure", err)
	}

	docs, _ := store.Documents(t.Context())
	if len(docs) != 0 {
		t.Errorf("undelivered document should not be recorded: %+v", docs)
	}
	carry, _ := store.LoadCarry(t.Context())
	if carry.Vouchers != nil {
		t.Errorf("carry should not advance: %+v", carry)
	}
}

func TestRunOnceUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.xlsx", "b.xlsx"} {
		if err := os.Symlink(filepath.Join(dir, "gone", name), filepath.Join(dir, name)); err != nil {
			t.Fatalf("symlink: %v", err)
		}
	}

	sender := &recordingSender{}
	runner, store := newRunner(t, dir, sender, report.Carry{})

	res, err := runner.RunOnce(t.Context())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if res.Failed != 2 || res.Skipped != 0 || len(sender.messages) != 2 {
		t.Fatalf("result = %+v, messages = %d", res, len(sender.messages))
	}
	if sender.messages[0].Text != FailureNotice+"a.xlsx" || sender.messages[1].Text != FailureNotice+"b.xlsx" {
		t.Errorf("notices = %q, %q", sender.messages[0].Text, sender.messages[1].Text)
	}

	// Nothing can be recorded without a hash, and the notices are not repeated.
	res, err = runner.RunOnce(t.Context())
	if err != nil {
		t.Fatalf("second RunOnce failed: %v", err)
	}
	if res.Skipped != 2 || len(sender.messages) != 2 {
		t.Errorf("second pass result = %+v, messages = %d", res, len(sender.messages))
	}
	docs, _ := store.Documents(t.Context())
	if len(docs) != 0 {
		t.Errorf("documents = %+v", docs)
	}
}

func TestRunOnceMissingDirectory(t *testing.T) {
	runner, _ := newRunner(t, filepath.Join(t.TempDir(), "missing"), &recordingSender{}, report.Carry{})
	if _, err := runner.RunOnce(t.Context()); err == nil {
		t.Error("expected error for missing staging directory")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "a.xlsx", 46024, 100, 40, 500)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	sender := &recordingSender{onSend: cancel}
	runner, _ := newRunner(t, dir, sender, report.Carry{})

	done := make(chan error, 1)
	go func() { done <- runner.Watch(ctx, time.Hour) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch returned %v, expected context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not stop after cancellation")
	}
	if len(sender.messages) != 1 {
		t.Errorf("got %d messages, expected 1", len(sender.messages))
	}
}
