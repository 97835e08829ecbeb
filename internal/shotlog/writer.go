package shotlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairwaylabs/gsproxy/internal/proxy"
)

// Config controls batching for the shot writer.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1024,
	}
}

// Metrics holds cumulative writer counters.
type Metrics struct {
	Recorded  int64
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// shotRow is the flattened insert form of a proxy.ShotRecord.
type shotRow struct {
	ID         string
	Monitor    string
	Player     string
	ShotNumber int
	Decision   string
	ReceivedAt int64
}

// Writer batches shot records into PostgreSQL. It implements
// proxy.ShotRecorder.
type Writer struct {
	cfg    Config
	logger *slog.Logger
	db     *pgxpool.Pool

	input *spool[proxy.ShotRecord]

	batch   []shotRow
	batchMu sync.Mutex

	metrics   Metrics
	metricsMu sync.Mutex

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	flushTicker *time.Ticker
}

// NewWriter builds a batch writer on the given pool. The pool must
// already be connected; see database.Connect.
func NewWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	return &Writer{
		cfg:    cfg,
		logger: logger,
		db:     db,
		input:  newSpool[proxy.ShotRecord](cfg.BufferSize),
		batch:  make([]shotRow, 0, cfg.BatchSize),
	}
}

// Record implements proxy.ShotRecorder. It never blocks: the spool
// grows under pressure and rejects records only after Stop.
func (w *Writer) Record(rec proxy.ShotRecord) {
	if !w.input.Send(rec) {
		return
	}
	w.metricsMu.Lock()
	w.metrics.Recorded++
	w.metricsMu.Unlock()
}

// Start launches the consume and flush loops. The writer runs until
// Stop or ctx cancellation.
func (w *Writer) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("shot writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval)
}

// Stop halts intake, waits for the loops, then drains and flushes
// whatever remains. Bounded by ctx.
func (w *Writer) Stop(ctx context.Context) error {
	w.input.Close()
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	w.flushTicker.Stop()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if rest := w.input.DrainTo(0); len(rest) > 0 {
		w.batchMu.Lock()
		for _, rec := range rest {
			w.batch = append(w.batch, transform(rec))
		}
		w.batchMu.Unlock()
	}
	w.flush(ctx)

	w.logger.Info("shot writer stopped")
	return nil
}

// Metrics returns a snapshot of the writer counters.
func (w *Writer) Metrics() Metrics {
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics
}

func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		rec, ok := w.input.TryReceive()
		if !ok {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		w.handleRecord(rec)
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *Writer) handleRecord(rec proxy.ShotRecord) {
	row := transform(rec)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	full := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if full {
		w.flush(w.ctx)
	}
}

// transform flattens a record for insertion. Timestamps are stored as
// microseconds since the epoch.
func transform(rec proxy.ShotRecord) shotRow {
	return shotRow{
		ID:         rec.ID.String(),
		Monitor:    rec.Monitor,
		Player:     rec.Player,
		ShotNumber: rec.ShotNumber,
		Decision:   rec.Decision,
		ReceivedAt: rec.ReceivedAt.UnixMicro(),
	}
}

// flush takes ownership of the current batch and inserts it.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]shotRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	inserted, conflicts, err := w.batchInsert(ctx, batch)

	w.metricsMu.Lock()
	w.metrics.Flushes++
	w.metrics.Inserts += int64(inserted)
	w.metrics.Conflicts += int64(conflicts)
	if err != nil {
		w.metrics.Errors++
	}
	w.metricsMu.Unlock()

	if err != nil {
		w.logger.Error("shot batch insert failed", "count", len(batch), "error", err)
		return
	}

	w.logger.Debug("flushed shot batch", "inserted", inserted, "conflicts", conflicts)
}

const insertShotSQL = `
	INSERT INTO shots (id, monitor, player, shot_number, decision, received_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING`

func (w *Writer) batchInsert(ctx context.Context, rows []shotRow) (inserted, conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertShotSQL, r.ID, r.Monitor, r.Player, r.ShotNumber, r.Decision, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		tag, execErr := results.Exec()
		if execErr != nil {
			return inserted, conflicts, fmt.Errorf("insert shot: %w", execErr)
		}
		if tag.RowsAffected() == 0 {
			conflicts++
		} else {
			inserted++
		}
	}
	return inserted, conflicts, nil
}
