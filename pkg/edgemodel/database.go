// pkg/edgemodel/database.go
package edgemodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chmenegatti/edgemodel/pkg/config"
	"github.com/chmenegatti/edgemodel/pkg/schema"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Database owns the single SQLite connection every record bound to it uses.
type Database struct {
	path     string
	logger   *slog.Logger
	registry *schema.Registry
	hooks    map[string]Hooks

	mu      sync.RWMutex
	db      *sql.DB
	created map[*schema.Model]bool
}

type options struct {
	logger   *slog.Logger
	registry *schema.Registry
	params   map[string]string
	hooks    map[string]Hooks
}

// Option configures a Database.
type Option func(*options)

// WithLogger sets the logger statements and failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry sets the registry NewRecord resolves model names against.
func WithRegistry(r *schema.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithForeignKeys toggles enforcement of FOREIGN KEY constraints.
func WithForeignKeys(enabled bool) Option {
	return func(o *options) {
		if enabled {
			o.params["_foreign_keys"] = "1"
		} else {
			o.params["_foreign_keys"] = "0"
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database file.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.params["_busy_timeout"] = strconv.FormatInt(d.Milliseconds(), 10) }
}

// WithDSNParams adds raw go-sqlite3 connection parameters such as
// "_journal_mode".
func WithDSNParams(params map[string]string) Option {
	return func(o *options) {
		for k, v := range params {
			o.params[k] = v
		}
	}
}

func buildOptions(opts []Option) *options {
	o := &options{params: map[string]string{}, hooks: map[string]Hooks{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.registry == nil {
		o.registry = schema.NewRegistry(nil)
	}
	return o
}

// Open opens the database file at path with a single connection. When
// override is set an existing file is removed first.
func Open(path string, override bool, opts ...Option) (*Database, error) {
	o := buildOptions(opts)
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	if override && path != MemoryPath {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			o.logger.Error("removing database file failed", "path", path, "error", err)
			return nil, fmt.Errorf("edgemodel: removing %s: %w", path, err)
		}
	}

	dsn := buildDSN(path, o.params)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		o.logger.Error("opening database failed", "path", path, "error", err)
		return nil, fmt.Errorf("edgemodel: opening %s: %w", path, err)
	}
	// One connection: an in-memory database lives as long as it does, and
	// statement execution is serialised.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		o.logger.Error("connecting to database failed", "path", path, "error", err)
		return nil, fmt.Errorf("edgemodel: connecting to %s: %w", path, err)
	}

	o.logger.Info("database opened", "path", path, "override", override)
	return newDatabase(path, db, o), nil
}

// OpenConfig opens the database described by cfg. Options given explicitly
// are applied after the ones derived from cfg.
func OpenConfig(cfg config.Config, opts ...Option) (*Database, error) {
	derived := []Option{
		WithForeignKeys(cfg.Database.ForeignKeys),
		WithDSNParams(cfg.Database.Options),
	}
	if cfg.Database.BusyTimeout > 0 {
		derived = append(derived, WithBusyTimeout(cfg.Database.BusyTimeout))
	}
	return Open(cfg.Database.Path, cfg.Database.Override, append(derived, opts...)...)
}

// NewDatabase wraps an already opened handle.
func NewDatabase(db *sql.DB, opts ...Option) *Database {
	return newDatabase("", db, buildOptions(opts))
}

func newDatabase(path string, db *sql.DB, o *options) *Database {
	return &Database{
		path:     path,
		logger:   o.logger,
		registry: o.registry,
		hooks:    o.hooks,
		db:       db,
		created:  make(map[*schema.Model]bool),
	}
}

func buildDSN(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + values.Encode()
}

// IsOpened reports whether the connection is available.
func (d *Database) IsOpened() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db != nil
}

// Path returns the database file path, empty for a wrapped handle.
func (d *Database) Path() string { return d.path }

// DB returns the underlying handle, nil once closed.
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Registry returns the registry NewRecord uses.
func (d *Database) Registry() *schema.Registry { return d.registry }

// Logger returns the database logger.
func (d *Database) Logger() *slog.Logger { return d.logger }

// Ping checks the connection.
func (d *Database) Ping(ctx context.Context) error {
	db, err := d.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes the connection. Closing twice is a no-op.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	d.logger.Info("database closed", "path", d.path)
	return err
}

func (d *Database) conn() (*sql.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, ErrNotOpened
	}
	return d.db, nil
}

// CreateTables runs each model's CREATE TABLE statement, in order.
func (d *Database) CreateTables(ctx context.Context, models ...*schema.Model) error {
	for _, model := range models {
		create := model.Statements().Create
		if _, err := d.exec(ctx, create, nil); err != nil {
			d.logger.Error("creating table failed", "model", model.Name, "table", model.Table, "error", err)
			return newQueryError(OpCreate, model.Name, create, err)
		}
		d.mu.Lock()
		d.created[model] = true
		d.mu.Unlock()
		d.logger.Info("table ready", "model", model.Name, "table", model.Table)
	}
	return nil
}

// HasTable reports whether CreateTables ran for model on this database.
func (d *Database) HasTable(model *schema.Model) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.created[model]
}

// New returns an empty record of model bound to this database.
func (d *Database) New(model *schema.Model) *Record {
	return newRecord(d, model)
}

// NewRecord is like New but resolves the model by name in the registry.
func (d *Database) NewRecord(name string) (*Record, error) {
	model, err := d.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return newRecord(d, model), nil
}

func (d *Database) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	d.logger.Debug("exec", "sql", query, "args", len(args))
	return db.ExecContext(ctx, query, args...)
}

func (d *Database) query(ctx context.Context, query string, args []any) (*sql.Rows, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	d.logger.Debug("query", "sql", query, "args", len(args))
	return db.QueryContext(ctx, query, args...)
}
