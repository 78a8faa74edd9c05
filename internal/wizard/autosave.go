package wizard

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// AutosaveConfig tunes the save scheduler. Zero values take the defaults.
type AutosaveConfig struct {
	// Debounce is how long after the last content edit a save fires.
	Debounce time.Duration
	// Interval is the unconditional safety-net save period.
	Interval time.Duration
	// SaveTimeout bounds one save attempt.
	SaveTimeout time.Duration
}

const (
	defaultDebounce    = 3 * time.Second
	defaultInterval    = 30 * time.Second
	defaultSaveTimeout = 10 * time.Second
)

// Autosaver owns all persistence scheduling for a session. Three trigger
// kinds feed one goroutine: stage transitions save immediately, content
// edits save after a debounce window that each new edit resets, and an
// interval tick saves unconditionally. A trigger arriving while a save is
// in flight is dropped, not queued.
type Autosaver struct {
	cfg    AutosaveConfig
	save   func(context.Context) error
	logger *log.Logger

	edits       chan struct{}
	transitions chan struct{}
	stop        chan struct{}
	done        chan struct{}
	inFlight    atomic.Bool
}

// NewAutosaver starts the scheduler goroutine.
func NewAutosaver(cfg AutosaveConfig, save func(context.Context) error, logger *log.Logger) *Autosaver {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaultSaveTimeout
	}
	a := &Autosaver{
		cfg:         cfg,
		save:        save,
		logger:      logger,
		edits:       make(chan struct{}, 1),
		transitions: make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go a.run()
	return a
}

// NoteEdit signals a content change. The debounced save timer restarts.
func (a *Autosaver) NoteEdit() {
	if a.inFlight.Load() {
		return
	}
	select {
	case a.edits <- struct{}{}:
	default:
	}
}

// NoteTransition signals a stage transition. Saves immediately.
func (a *Autosaver) NoteTransition() {
	if a.inFlight.Load() {
		return
	}
	select {
	case a.transitions <- struct{}{}:
	default:
	}
}

// Stop shuts down the scheduler and waits for it to exit. No final save is
// attempted.
func (a *Autosaver) Stop() {
	close(a.stop)
	<-a.done
}

func (a *Autosaver) run() {
	defer close(a.done)

	debounce := time.NewTimer(a.cfg.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	interval := time.NewTicker(a.cfg.Interval)
	defer interval.Stop()

	for {
		select {
		case <-a.edits:
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(a.cfg.Debounce)
		case <-a.transitions:
			a.attempt()
		case <-debounce.C:
			a.attempt()
		case <-interval.C:
			a.attempt()
		case <-a.stop:
			return
		}
	}
}

// attempt runs one save under the in-flight flag. Failures are logged only;
// auto-save never interrupts the editing flow.
func (a *Autosaver) attempt() {
	if !a.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer a.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.SaveTimeout)
	defer cancel()

	if err := a.save(ctx); err != nil {
		a.logger.Warn("auto-save failed", "err", err)
	}
}
