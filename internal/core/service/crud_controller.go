package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

// Status is the CrudController lifecycle position.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// View is a consistent snapshot of a controller.
type View struct {
	Status  Status          `json:"status"`
	Records []domain.Record `json:"records"`
	// Error is the user-facing message of the last failed load.
	Error string `json:"error,omitempty"`
	// MutationError is the user-facing message of the last failed submit or remove.
	MutationError string        `json:"mutation_error,omitempty"`
	Form          domain.Record `json:"form"`
	EditingID     string        `json:"editing_id,omitempty"`
}

// ControllerOption configures a CrudController.
type ControllerOption func(*CrudController)

// WithClock overrides the clock used for date defaults.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *CrudController) { c.now = now }
}

// WithViewListener registers fn to receive a View after every change.
func WithViewListener(fn func(View)) ControllerOption {
	return func(c *CrudController) { c.listener = fn }
}

// CrudController drives one module's list and form.
//
// The visible record set is only ever replaced wholesale by a List result;
// when loads overlap the last one to finish wins. Results that arrive after
// Unmount are discarded.
type CrudController struct {
	module   domain.Module
	store    ports.RecordStore
	log      zerolog.Logger
	now      func() time.Time
	listener func(View)

	mu            sync.Mutex
	status        Status
	records       []domain.Record
	loadErr       string
	mutationErr   string
	form          domain.Record
	editingID     string
	unmounted     bool
	unsubscribe   func()
	subscribeOnce sync.Once
}

func NewCrudController(module domain.Module, store ports.RecordStore, log zerolog.Logger, opts ...ControllerOption) *CrudController {
	c := &CrudController{
		module:  module,
		store:   store,
		log:     log.With().Str("module", module.Key()).Logger(),
		now:     time.Now,
		status:  StatusIdle,
		records: []domain.Record{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.form = c.defaults()
	return c
}

// Mount subscribes to pushed changes and performs the first load. Every
// pushed change triggers another load in the background.
func (c *CrudController) Mount(ctx context.Context) error {
	c.subscribeOnce.Do(func() {
		unsubscribe := c.store.Subscribe(ctx, func(ev domain.ChangeEvent) {
			c.log.Debug().Str("op", string(ev.Op)).Str("id", ev.RecordID).Msg("change pushed, reloading")
			// Reload off the feed's delivery goroutine; overlapping loads resolve
			// to the last one to finish.
			go func() { _ = c.LoadAll(ctx) }()
		})
		c.mu.Lock()
		c.unsubscribe = unsubscribe
		unmounted := c.unmounted
		c.mu.Unlock()
		if unmounted {
			unsubscribe()
		}
	})
	return c.LoadAll(ctx)
}

// Unmount ends the subscription synchronously. Later results are dropped.
func (c *CrudController) Unmount() {
	c.mu.Lock()
	c.unmounted = true
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// LoadAll replaces the record set with a fresh List result. The controller
// always ends in READY or ERROR; the error is returned for callers that care.
func (c *CrudController) LoadAll(ctx context.Context) error {
	if !c.update(func() { c.status = StatusLoading }) {
		return nil
	}

	records, err := c.store.List(ctx)
	c.update(func() {
		if err != nil {
			c.status = StatusError
			c.loadErr = domain.UserMessage(err)
			return
		}
		c.status = StatusReady
		c.records = records
		c.loadErr = ""
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("load failed")
		return fmt.Errorf("load %s: %w", c.module.Key(), err)
	}
	return nil
}

// SetField stores a form value. Values of typed columns given as text are
// parsed by the column.
func (c *CrudController) SetField(name string, value any) error {
	if raw, ok := value.(string); ok {
		if col, found := c.module.Column(name); found {
			parsed, err := col.Parse(raw)
			if err != nil {
				return err
			}
			value = parsed
		}
	}
	v, err := domain.NormalizeValue(value)
	if err != nil {
		return err
	}
	c.update(func() { c.form[name] = v })
	return nil
}

// Submit validates the form and creates a record, or updates the record
// being edited. A ValidationError leaves every piece of state untouched.
func (c *CrudController) Submit(ctx context.Context) error {
	c.mu.Lock()
	form := c.form.Clone()
	editingID := c.editingID
	c.mu.Unlock()

	if err := CheckRequired(c.module, form); err != nil {
		return err
	}

	var err error
	if editingID != "" {
		_, err = c.store.Update(ctx, editingID, form)
	} else {
		_, err = c.store.Create(ctx, form)
	}
	if err != nil {
		c.update(func() { c.mutationErr = domain.UserMessage(err) })
		c.log.Warn().Err(err).Str("editing_id", editingID).Msg("submit failed")
		return fmt.Errorf("submit %s: %w", c.module.Key(), err)
	}

	if !c.update(func() {
		c.form = c.defaults()
		c.editingID = ""
		c.mutationErr = ""
	}) {
		return nil
	}
	return c.LoadAll(ctx)
}

// Edit copies record into the form and selects it for update. A later call
// replaces the selection.
func (c *CrudController) Edit(record domain.Record) {
	c.update(func() {
		c.form = record.Clone()
		c.editingID = record.ID()
	})
}

// EditByID selects a record from the visible set.
func (c *CrudController) EditByID(id string) error {
	c.mu.Lock()
	var found domain.Record
	for _, r := range c.records {
		if r.ID() == id {
			found = r
			break
		}
	}
	c.mu.Unlock()

	if found == nil {
		return fmt.Errorf("edit %s/%s: %w", c.module.Key(), id, domain.ErrNotFound)
	}
	c.Edit(found)
	return nil
}

// Remove deletes the record and reloads.
func (c *CrudController) Remove(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.update(func() { c.mutationErr = domain.UserMessage(err) })
		c.log.Warn().Err(err).Str("id", id).Msg("remove failed")
		return fmt.Errorf("remove %s/%s: %w", c.module.Key(), id, err)
	}
	if !c.update(func() { c.mutationErr = "" }) {
		return nil
	}
	return c.LoadAll(ctx)
}

// CancelEdit clears the selection and resets the form. It is idempotent.
func (c *CrudController) CancelEdit() {
	c.update(func() {
		c.editingID = ""
		c.form = c.defaults()
	})
}

// View returns a snapshot of the controller.
func (c *CrudController) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Module returns the module the controller drives.
func (c *CrudController) Module() domain.Module {
	return c.module
}

func (c *CrudController) viewLocked() View {
	records := make([]domain.Record, len(c.records))
	for i, r := range c.records {
		records[i] = r.Clone()
	}
	return View{
		Status:        c.status,
		Records:       records,
		Error:         c.loadErr,
		MutationError: c.mutationErr,
		Form:          c.form.Clone(),
		EditingID:     c.editingID,
	}
}

// update applies fn under the lock unless the controller is unmounted and
// notifies the listener. It reports whether fn ran.
func (c *CrudController) update(fn func()) bool {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return false
	}
	fn()
	view := c.viewLocked()
	listener := c.listener
	c.mu.Unlock()

	if listener != nil {
		listener(view)
	}
	return true
}

var validate = validator.New()

// CheckRequired enforces that every required column of m holds a non-falsy
// value in r: not nil, not empty, not zero and not false.
func CheckRequired(m domain.Module, r domain.Record) error {
	var missing []string
	for _, col := range m.Columns {
		if !col.Required {
			continue
		}
		if err := validate.Var(r[col.Name], "required"); err != nil {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Fields: missing}
	}
	return nil
}

func (c *CrudController) defaults() domain.Record {
	now := c.now()
	form := make(domain.Record, len(c.module.Columns))
	for _, col := range c.module.Columns {
		form[col.Name] = col.DefaultValue(now)
	}
	return form
}
