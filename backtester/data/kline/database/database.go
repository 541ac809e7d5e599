package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/common/file"
	"github.com/findwinds/QuantCode/log"
	// import postgres driver
	_ "github.com/lib/pq"
	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/goose"
	"github.com/volatiletech/null"
)

// Connect opens the database described by cfg
func Connect(cfg Config) (*Provider, error) {
	if cfg.DSN == "" {
		return nil, errNoDSN
	}
	p := &Provider{cfg: cfg}
	switch cfg.Driver {
	case DBSQLite3, "sqlite":
		p.cfg.Driver = DBSQLite3
		if dir := filepath.Dir(cfg.DSN); !file.Exists(dir) {
			if err := os.MkdirAll(dir, file.DefaultPermissionOctal); err != nil {
				return nil, err
			}
		}
		db, err := sql.Open(DBSQLite3, cfg.DSN)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		p.SQL = db
	case DBPostgreSQL, "postgresql", "psql":
		p.cfg.Driver = DBPostgreSQL
		db, err := sql.Open(DBPostgreSQL, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err = db.Ping(); err != nil {
			return nil, fmt.Errorf("database failed to connect: %w", err)
		}
		db.SetMaxOpenConns(2)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(time.Hour)
		p.SQL = db
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedDriver, cfg.Driver)
	}
	return p, nil
}

// Driver returns the normalised driver name
func (p *Provider) Driver() string {
	return p.cfg.Driver
}

// Close disconnects from the database
func (p *Provider) Close() error {
	if p == nil || p.SQL == nil {
		return nil
	}
	return p.SQL.Close()
}

// Migrate runs a goose command such as "up", "down" or "status" against the
// configured migration directory, or the embedded migrations when none is set
func (p *Provider) Migrate(command string) error {
	if p == nil || p.SQL == nil {
		return fmt.Errorf("%w database", gctcommon.ErrNilPointer)
	}
	dir := p.cfg.MigrationDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "backtester-migrations")
		if err != nil {
			return err
		}
		defer func() {
			if err := os.RemoveAll(tmp); err != nil {
				log.Errorln(log.Data, err)
			}
		}()
		if err := extractMigrations(tmp); err != nil {
			return err
		}
		dir = tmp
	}
	log.Debugf(log.Data, "running migration %q from %s", command, dir)
	return goose.Run(command, p.SQL, p.cfg.Driver, dir, "")
}

func extractMigrations(dir string) error {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		return err
	}
	for i := range entries {
		data, err := migrations.ReadFile("migrations/" + entries[i].Name())
		if err != nil {
			return err
		}
		if err = file.Write(filepath.Join(dir, entries[i].Name()), data); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores bars, replacing any existing bar for the same symbol and
// timestamp
func (p *Provider) Insert(ctx context.Context, bars ...*kline.Kline) error {
	if p == nil || p.SQL == nil {
		return fmt.Errorf("%w database", gctcommon.ErrNilPointer)
	}
	query := p.rebind(`INSERT INTO candle (symbol, timestamp, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (symbol, timestamp) DO UPDATE SET open = excluded.open, high = excluded.high, low = excluded.low, close = excluded.close, volume = excluded.volume`)
	tx, err := p.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return rollback(tx, err)
	}
	defer stmt.Close()
	for i := range bars {
		if err = bars[i].Validate(); err != nil {
			return rollback(tx, err)
		}
		volume := null.Float64{Float64: bars[i].Volume.InexactFloat64(), Valid: !bars[i].Volume.IsZero()}
		if _, err = stmt.ExecContext(ctx,
			strings.ToUpper(bars[i].Symbol),
			bars[i].Time.UTC(),
			bars[i].Open.InexactFloat64(),
			bars[i].High.InexactFloat64(),
			bars[i].Low.InexactFloat64(),
			bars[i].Close.InexactFloat64(),
			volume); err != nil {
			return rollback(tx, err)
		}
	}
	return tx.Commit()
}

// Load returns the bars for a symbol within [start, end] ordered by time
func (p *Provider) Load(ctx context.Context, symbol string, start, end time.Time) ([]*kline.Kline, error) {
	if p == nil || p.SQL == nil {
		return nil, fmt.Errorf("%w database", gctcommon.ErrNilPointer)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	query := `SELECT timestamp, open, high, low, close, volume FROM candle WHERE symbol = ?`
	args := []any{symbol}
	if !start.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, start.UTC())
	}
	if !end.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, end.UTC())
	}
	query += ` ORDER BY timestamp ASC`
	rows, err := p.SQL.QueryContext(ctx, p.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resp []*kline.Kline
	for rows.Next() {
		var (
			t                      time.Time
			open, high, low, closePrice float64
			volume                 null.Float64
		)
		if err = rows.Scan(&t, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, err
		}
		resp = append(resp, kline.New(symbol, t.UTC(),
			decimal.NewFromFloat(open),
			decimal.NewFromFloat(high),
			decimal.NewFromFloat(low),
			decimal.NewFromFloat(closePrice),
			decimal.NewFromFloat(volume.Float64)))
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	log.Debugf(log.Data, "loaded %d %s bars from %s", len(resp), symbol, p.cfg.Driver)
	return resp, nil
}

// rebind converts ? placeholders to the numbered form postgres expects
func (p *Provider) rebind(query string) string {
	if p.cfg.Driver != DBPostgreSQL {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return gctcommon.AppendError(err, rbErr)
	}
	return err
}
