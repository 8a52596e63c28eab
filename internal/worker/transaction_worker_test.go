package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthly/internal/amqp"
	"monthly/internal/config"
	"monthly/internal/core"
	applog "monthly/internal/log"
	"monthly/internal/monthly"
	"monthly/internal/registry"
	"monthly/internal/sheets/memory"
	"monthly/internal/storage"
	"monthly/internal/trace"
)

type fakeSource struct {
	mu     sync.Mutex
	txs    map[int64]core.Transaction
	status map[int64]string
	getErr error
	// processedErr fails every MarkProcessed call.
	processedErr error
}

func newFakeSource(txs ...core.Transaction) *fakeSource {
	s := &fakeSource{txs: map[int64]core.Transaction{}, status: map[int64]string{}}
	for _, tx := range txs {
		s.txs[tx.ID] = tx
		s.status[tx.ID] = statusPending
	}
	return s
}

func (s *fakeSource) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return core.Transaction{}, s.getErr
	}
	return s.txs[id], nil
}

func (s *fakeSource) Status(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", storage.ErrTransactionNotFound, id)
	}
	return st, nil
}

func (s *fakeSource) PendingTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for id := int64(1); id <= int64(len(s.txs)) && len(out) < limit; id++ {
		if s.status[id] == statusPending {
			out = append(out, s.txs[id])
		}
	}
	return out, nil
}

func (s *fakeSource) MarkProcessed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processedErr != nil {
		return s.processedErr
	}
	s.status[id] = "processed"
	return nil
}

func (s *fakeSource) MarkFailed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = "failed"
	return nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	applied []int64
	failFor map[int64]error
	active  int
	overlap bool
}

func (d *fakeDispatcher) ProcessSpend(_ context.Context, tx core.Transaction) error {
	d.mu.Lock()
	d.active++
	if d.active > 1 {
		d.overlap = true
	}
	d.mu.Unlock()

	time.Sleep(time.Millisecond)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.active--
	if err := d.failFor[tx.ID]; err != nil {
		return err
	}
	d.applied = append(d.applied, tx.ID)
	return nil
}

func spend(id int64, cents int64) core.Transaction {
	return core.Transaction{
		ID: id, Kind: core.Spend, Date: core.NewDate(2024, 1, 15), Amount: core.Money{Cents: cents},
		Category: "Food", SubCategory: "Groceries", Account: "Visa",
	}
}

func TestHandleMessage_AppliesPendingTransaction(t *testing.T) {
	src := newFakeSource(spend(1, 100))
	disp := &fakeDispatcher{}
	w := NewTransactionWorker(src, disp, 10, applog.Discard())

	require.NoError(t, w.HandleMessage(context.Background(), &amqp.TransactionMessage{ID: 1}))
	assert.Equal(t, []int64{1}, disp.applied)
	assert.Equal(t, "processed", src.status[1])

	require.NoError(t, w.HandleMessage(context.Background(), &amqp.TransactionMessage{ID: 1}))
	assert.Equal(t, []int64{1}, disp.applied, "redelivery is ignored")
}

func TestHandleMessage_DispatchErrorMarksFailed(t *testing.T) {
	src := newFakeSource(spend(1, 100))
	disp := &fakeDispatcher{failFor: map[int64]error{1: monthly.ErrUnknownColumn}}
	w := NewTransactionWorker(src, disp, 10, applog.Discard())

	require.NoError(t, w.HandleMessage(context.Background(), &amqp.TransactionMessage{ID: 1}))
	assert.Equal(t, "failed", src.status[1])
}

func TestHandleMessage_LedgerErrorIsRetried(t *testing.T) {
	src := newFakeSource(spend(1, 100))
	src.getErr = errors.New("database is locked")
	w := NewTransactionWorker(src, &fakeDispatcher{}, 10, applog.Discard())

	err := w.HandleMessage(context.Background(), &amqp.TransactionMessage{ID: 1})
	require.Error(t, err)
	assert.Equal(t, statusPending, src.status[1])
}

func TestHandleMessage_UnknownTransactionIsDropped(t *testing.T) {
	src := newFakeSource(spend(1, 100))
	disp := &fakeDispatcher{}
	w := NewTransactionWorker(src, disp, 10, applog.Discard())

	require.NoError(t, w.HandleMessage(context.Background(), amqp.NewTransactionMessage(999)),
		"a message for a missing transaction is acked, not requeued")
	assert.Empty(t, disp.applied)
}

func TestMarkProcessedFailureDoesNotReapply(t *testing.T) {
	src := newFakeSource(spend(1, 100))
	src.processedErr = errors.New("disk I/O error")
	disp := &fakeDispatcher{}
	w := NewTransactionWorker(src, disp, 10, applog.Discard())

	n, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "failed", src.status[1])

	_, err = w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, disp.applied, "the sweep does not apply it again")
}

func TestProcessPending_Batches(t *testing.T) {
	src := newFakeSource(spend(1, 100), spend(2, 200), spend(3, 300))
	disp := &fakeDispatcher{failFor: map[int64]error{2: errors.New("boom")}}
	w := NewTransactionWorker(src, disp, 2, applog.Discard())

	n, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "processed", src.status[1])
	assert.Equal(t, "failed", src.status[2])
	assert.Equal(t, statusPending, src.status[3])

	n, err = w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1, 3}, disp.applied)
}

type traceRecorder struct {
	ids []string
}

func (d *traceRecorder) ProcessSpend(ctx context.Context, _ core.Transaction) error {
	d.ids = append(d.ids, trace.ID(ctx))
	return nil
}

func TestApplyTagsEachDispatchAndCounts(t *testing.T) {
	src := newFakeSource(spend(1, 100), spend(2, 200))
	disp := &traceRecorder{}
	w := NewTransactionWorker(src, disp, 10, applog.Discard())

	n, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, disp.ids, 2)
	assert.NotEmpty(t, disp.ids[0])
	assert.NotEqual(t, disp.ids[0], disp.ids[1])

	m := w.Metrics()
	assert.Equal(t, int64(2), m.Applied)
	assert.Equal(t, int64(0), m.Failed)
}

func TestWorkerSerializesDispatch(t *testing.T) {
	var txs []core.Transaction
	for i := int64(1); i <= 8; i++ {
		txs = append(txs, spend(i, i*100))
	}
	src := newFakeSource(txs...)
	disp := &fakeDispatcher{}
	w := NewTransactionWorker(src, disp, 4, applog.Discard())

	var wg sync.WaitGroup
	for i := int64(1); i <= 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = w.HandleMessage(context.Background(), &amqp.TransactionMessage{ID: id})
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = w.ProcessPending(context.Background())
	}()
	wg.Wait()

	assert.False(t, disp.overlap, "two transactions were dispatched at once")
	assert.Len(t, disp.applied, 8, "each transaction is applied exactly once")
}

func TestRunStopsOnCancel(t *testing.T) {
	src := newFakeSource(spend(1, 100))
	w := NewTransactionWorker(src, &fakeDispatcher{}, 10, applog.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool {
		st, _ := src.Status(context.Background(), 1)
		return st == "processed"
	}, time.Second, 5*time.Millisecond, "first sweep runs immediately")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

const layoutYAML = `
spreadsheets:
  budget:
    id: budget
    class: Monthly
    sheets:
      all:
        name: All
        class: AllCategories
        columns: {Food: 2, Rent: 3, Total: 4}
`

func TestEndToEndWithSQLiteLedger(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), applog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	layout, err := config.ParseSpreadsheets([]byte(layoutYAML))
	require.NoError(t, err)
	store := memory.New()
	store.CreateSheet("budget", "All", "Date", "Food", "Rent", "Total")
	reg, err := registry.New(ctx, layout, monthly.Deps{Store: store, Ledger: repo, Logger: applog.Discard()})
	require.NoError(t, err)

	w := NewTransactionWorker(repo, reg, 10, applog.Discard())

	food, err := repo.Record(ctx, spend(0, 2000))
	require.NoError(t, err)
	travel := spend(0, 900)
	travel.Category = "Travel"
	travel, err = repo.Record(ctx, travel)
	require.NoError(t, err)

	require.NoError(t, w.HandleMessage(ctx, &amqp.TransactionMessage{ID: food.ID}))
	n, err := w.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "Travel has no column")

	status, err := repo.Status(ctx, travel.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed", status)

	rows, err := store.ReadAllRows(ctx, "budget", "All")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 20.0, rows[1][1])
	assert.Equal(t, 20.0, rows[1][3])

	// A message for an id the ledger never recorded is dropped.
	require.NoError(t, w.HandleMessage(ctx, amqp.NewTransactionMessage(999)))
	after, err := store.ReadAllRows(ctx, "budget", "All")
	require.NoError(t, err)
	assert.Equal(t, rows, after)
}
