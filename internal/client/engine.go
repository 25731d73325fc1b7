package client

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"sheetsync/api/internal/edit"
	"sheetsync/api/internal/grid"
	"sheetsync/api/internal/realtime"
	"sheetsync/api/internal/transfer"
)

// ErrStopped is returned by engine calls made after Run has returned.
var ErrStopped = errors.New("client: engine stopped")

// Status is the realtime connection state.
type Status int32

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Disconnected"
	}
}

// Subscriber opens the change stream.
type Subscriber interface {
	Subscribe(ctx context.Context) (*realtime.Subscription, error)
}

// Options configures an Engine. Records is required.
type Options struct {
	Records  Records
	Events   Subscriber
	Notifier Notifier
	// Initial is shown until the stored record loads. Defaults to the demo table.
	Initial *grid.Table
}

// EditState describes the edit session after an event.
type EditState struct {
	State  edit.State
	Row    int
	Col    int
	Buffer string
}

// View is a filtered read of the table.
type View struct {
	Data    grid.Grid
	Columns []grid.Column
	Stats   grid.Stats
}

type action struct {
	fn   func()
	done chan struct{}
}

type saveJob struct {
	seq   uint64
	table grid.Table
}

type loadResult struct {
	rec Record
	err error
}

type subscribeResult struct {
	sub *realtime.Subscription
	err error
}

// Engine owns the grid store and edit session for one client. Every state
// change happens on the goroutine running Run; other methods hand work to
// it and wait.
type Engine struct {
	store    *grid.Store
	session  edit.Session
	gateway  *Gateway
	events   Subscriber
	notifier Notifier

	actions chan action
	saves   chan saveJob
	ready   chan struct{}
	stopped chan struct{}
	status  atomic.Int32

	loadErr error

	saveMu  sync.Mutex
	queued  uint64
	written uint64
	saveErr error
	saved   chan struct{}
}

// New builds an engine. Nothing happens until Run is called.
func New(opts Options) *Engine {
	initial := grid.DefaultTable()
	if opts.Initial != nil {
		initial = opts.Initial.Clone()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	e := &Engine{
		gateway:  NewGateway(opts.Records),
		events:   opts.Events,
		notifier: notifier,
		actions:  make(chan action),
		saves:    make(chan saveJob, 1),
		ready:    make(chan struct{}),
		stopped:  make(chan struct{}),
		saved:    make(chan struct{}),
	}
	e.store = grid.NewStore(initial, grid.PersisterFunc(e.enqueueSave))
	return e
}

// Run loads the stored table, subscribes to changes and processes work until
// ctx ends. Pending saves are abandoned on return; call Flush first.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.writeLoop(ctx)
	}()

	loaded := make(chan loadResult, 1)
	go func() {
		rec, err := e.gateway.Load(ctx)
		loaded <- loadResult{rec: rec, err: err}
	}()

	var subscribed chan subscribeResult
	if e.events != nil {
		subscribed = make(chan subscribeResult, 1)
		e.status.Store(int32(Connecting))
		go func() {
			sub, err := e.events.Subscribe(ctx)
			subscribed <- subscribeResult{sub: sub, err: err}
		}()
	}

	var sub *realtime.Subscription
	var events <-chan realtime.Event
	defer func() {
		if sub != nil {
			sub.Close()
		}
		if pending := subscribed; pending != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if res := <-pending; res.sub != nil {
					res.sub.Close()
				}
			}()
		}
		e.status.Store(int32(Disconnected))
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-loaded:
			loaded = nil
			e.applyLoad(res)
			close(e.ready)

		case res := <-subscribed:
			subscribed = nil
			if res.err != nil {
				log.Printf("client: subscribe: %v", res.err)
				e.status.Store(int32(Disconnected))
				e.notifier.Notify(NoticeLost)
				continue
			}
			sub = res.sub
			events = sub.C
			e.status.Store(int32(Connected))
			e.notifier.Notify(NoticeConnected)

		case ev, ok := <-events:
			if !ok {
				events = nil
				e.status.Store(int32(Disconnected))
				e.notifier.Notify(NoticeLost)
				continue
			}
			e.applyRemote(ev)

		case act := <-e.actions:
			act.fn()
			close(act.done)
		}
	}
}

func (e *Engine) applyLoad(res loadResult) {
	if res.err != nil {
		if !errors.Is(res.err, ErrNoRecord) {
			e.loadErr = res.err
			log.Printf("client: load: %v", res.err)
			e.notifier.Notify(NoticeLoadFailed)
		}
		return
	}
	if data, ok := grid.ParseData(res.rec.Data); ok {
		e.store.ReplaceData(data)
	}
	if cols, ok := grid.ParseColumns(res.rec.Columns); ok {
		e.store.SetColumnsLocal(cols)
	}
	e.store.NormalizeLocal()
}

// applyRemote reconciles an UPDATE from the change stream. Each field is
// taken only if it validates; an open edit session is left alone.
func (e *Engine) applyRemote(ev realtime.Event) {
	if ev.Type != realtime.Update || !ev.HasRecord() {
		return
	}
	id, data, columns, ok := recordFields(ev.New)
	if !ok {
		return
	}
	if g, ok := grid.ParseData(data); ok {
		e.store.ReplaceData(g)
	}
	if cols, ok := grid.ParseColumns(columns); ok {
		e.store.SetColumnsLocal(cols)
	}
	e.store.NormalizeLocal()
	e.gateway.Adopt(id)
	e.notifier.Notify(NoticeRemote)
}

// enqueueSave runs on the reducer goroutine. The queue holds one snapshot;
// a newer one replaces any that has not been picked up yet.
func (e *Engine) enqueueSave(t grid.Table) {
	e.saveMu.Lock()
	e.queued++
	job := saveJob{seq: e.queued, table: t}
	e.saveMu.Unlock()

	select {
	case <-e.saves:
	default:
	}
	e.saves <- job
}

func (e *Engine) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.saves:
			_, err := e.gateway.Save(ctx, job.table)
			if err != nil {
				log.Printf("client: save: %v", err)
				e.notifier.Notify(NoticeSaveFailed)
			} else {
				e.notifier.Notify(NoticeSaved)
			}
			e.markSaved(job.seq, err)
		}
	}
}

func (e *Engine) markSaved(seq uint64, err error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	e.written = seq
	e.saveErr = err
	close(e.saved)
	e.saved = make(chan struct{})
}

// Flush waits until every change made so far has been written and returns
// the result of the last write.
func (e *Engine) Flush(ctx context.Context) error {
	e.saveMu.Lock()
	target := e.queued
	e.saveMu.Unlock()

	for {
		e.saveMu.Lock()
		written, err, signal := e.written, e.saveErr, e.saved
		e.saveMu.Unlock()
		if written >= target {
			return err
		}
		select {
		case <-signal:
		case <-e.stopped:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) do(ctx context.Context, fn func()) error {
	act := action{fn: fn, done: make(chan struct{})}
	select {
	case e.actions <- act:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-act.done
	return nil
}

func query[T any](ctx context.Context, e *Engine, fn func() T) (T, error) {
	var out T
	err := e.do(ctx, func() { out = fn() })
	return out, err
}

// LoadErr is the error that made the initial load fail. It is set before
// Ready is closed; a missing record is not an error.
func (e *Engine) LoadErr() error {
	return e.loadErr
}

// Ready is closed once the initial load has been applied, successfully or not.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Status returns the realtime connection state.
func (e *Engine) Status() Status {
	return Status(e.status.Load())
}

// RecordID returns the record saves are written to, or "" before the first insert.
func (e *Engine) RecordID() string {
	return e.gateway.RecordID()
}

// Snapshot returns a copy of the current table.
func (e *Engine) Snapshot(ctx context.Context) (grid.Table, error) {
	return query(ctx, e, e.store.Snapshot)
}

// SetCell writes a text value into one cell.
func (e *Engine) SetCell(ctx context.Context, row, col int, value string) (bool, error) {
	return query(ctx, e, func() bool { return e.store.SetCell(row, col, value) })
}

// AddRow appends an empty row.
func (e *Engine) AddRow(ctx context.Context) error {
	return e.do(ctx, e.store.AddRow)
}

// AddColumn appends a column and returns its descriptor.
func (e *Engine) AddColumn(ctx context.Context, name string) (grid.Column, error) {
	return query(ctx, e, func() grid.Column { return e.store.AddColumn(name) })
}

// DeleteRow removes a data row. The header row is never removed.
func (e *Engine) DeleteRow(ctx context.Context, index int) (bool, error) {
	return query(ctx, e, func() bool { return e.store.DeleteRow(index) })
}

// RemoveColumn removes a column and its cells.
func (e *Engine) RemoveColumn(ctx context.Context, index int) (bool, error) {
	return query(ctx, e, func() bool { return e.store.RemoveColumn(index) })
}

// MoveColumn moves a column and its cells.
func (e *Engine) MoveColumn(ctx context.Context, from, to int) (bool, error) {
	return query(ctx, e, func() bool { return e.store.MoveColumn(from, to) })
}

// SetColumnVisible shows or hides a column.
func (e *Engine) SetColumnVisible(ctx context.Context, index int, visible bool) (bool, error) {
	return query(ctx, e, func() bool { return e.store.SetColumnVisible(index, visible) })
}

// RenameColumn changes a column's display name.
func (e *Engine) RenameColumn(ctx context.Context, index int, name string) (bool, error) {
	return query(ctx, e, func() bool { return e.store.RenameColumn(index, name) })
}

// BeginResize starts a resize gesture.
func (e *Engine) BeginResize(ctx context.Context, index int) (bool, error) {
	return query(ctx, e, func() bool { return e.store.BeginResize(index) })
}

// DragResize moves the resize handle by dx from where the gesture started.
func (e *Engine) DragResize(ctx context.Context, dx int) (int, error) {
	return query(ctx, e, func() int { return e.store.DragResize(dx) })
}

// EndResize finishes the gesture and persists the final width.
func (e *Engine) EndResize(ctx context.Context) error {
	return e.do(ctx, e.store.EndResize)
}

// Resize runs a whole gesture: begin, one drag by dx, release.
func (e *Engine) Resize(ctx context.Context, index, dx int) (int, error) {
	return query(ctx, e, func() int {
		if !e.store.BeginResize(index) {
			return 0
		}
		width := e.store.DragResize(dx)
		e.store.EndResize()
		return width
	})
}

// Edit feeds one event to the edit session.
func (e *Engine) Edit(ctx context.Context, ev edit.Event) (EditState, error) {
	return query(ctx, e, func() EditState {
		state := e.session.Handle(ev, e.store)
		row, col, _ := e.session.Active()
		return EditState{State: state, Row: row, Col: col, Buffer: e.session.Buffer()}
	})
}

// Import replaces the table with the contents of a file. On failure the
// table is left untouched.
func (e *Engine) Import(ctx context.Context, filename string, r io.Reader) error {
	table, err := transfer.Import(filename, r)
	if err != nil {
		log.Printf("client: import: %v", err)
		e.notifier.Notify(NoticeImportFail)
		return err
	}
	if err := e.do(ctx, func() { e.store.UpdateBoth(table.Data, table.Columns) }); err != nil {
		return err
	}
	e.notifier.Notify(NoticeImported)
	return nil
}

// Export writes the full grid as a workbook.
func (e *Engine) Export(ctx context.Context, w io.Writer) error {
	data, err := query(ctx, e, e.store.Data)
	if err != nil {
		return err
	}
	return transfer.WriteWorkbook(w, data)
}

// Search filters rows by term. The header row is always kept.
func (e *Engine) Search(ctx context.Context, term string) (View, error) {
	table, err := e.Snapshot(ctx)
	if err != nil {
		return View{}, err
	}
	filtered := grid.Filter(table.Data, term)
	return View{
		Data:    filtered,
		Columns: table.Columns,
		Stats:   grid.Summarize(filtered, table.Columns),
	}, nil
}
