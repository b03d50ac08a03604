// Package store zapouzdřuje práci s databázemi: historie odeslaných barev
// v PostgreSQL (tabulka led_colors) a poslední barva ve Valkey.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
)

// Record je jeden řádek tabulky led_colors.
// Color je JSON seznam bloků (nebo jméno barvy u legacy zpráv),
// Timestamp je ISO-8601 text, tak jak ho posílá ovladač.
type Record struct {
	ID        int64  `json:"id,omitempty"`
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"`
}

// LastColorCache drží nejnovější uložené barvy (hot path).
// Last vrací záznam s nejvyšším timestampem bez ohledu na pořadí volání Add.
type LastColorCache interface {
	Add(ctx context.Context, rec Record) error
	Last(ctx context.Context) (Record, bool, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS led_colors (
	id        BIGSERIAL PRIMARY KEY,
	color     TEXT NOT NULL,
	timestamp TEXT NOT NULL
)`

// Repository je jediné místo, kde se píše SQL.
// Tabulka je append-only: žádný UPDATE ani DELETE.
// Cache plní jen Insert, čtení z PG ji nezapisuje.
type Repository struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	cache  LastColorCache
	logger *slog.Logger

	cacheErrors *prometheus.CounterVec
}

// NewRepository obalí existující *sql.DB. cache může být nil.
func NewRepository(db *sql.DB, cache LastColorCache, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		cache:  cache,
		logger: logger,
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socket_store_cache_errors_total",
			Help: "Chyby Valkey cache podle operace.",
		}, []string{"op"}),
	}
}

// Instrument zaregistruje metriky repozitáře.
func (r *Repository) Instrument(reg prometheus.Registerer) error {
	return reg.Register(r.cacheErrors)
}

// cacheError zaloguje a započítá chybu cache. Volající pokračuje bez ní.
func (r *Repository) cacheError(op string, err error) {
	r.cacheErrors.WithLabelValues(op).Inc()
	r.logger.Warn("Chyba Valkey cache, pokračuji přes PG", "op", op, "error", err)
}

// Connect otevře pool do Postgresu, ověří spojení a vrátí repozitář
// nad database/sql rozhraním poolu.
func Connect(ctx context.Context, postgresURL string, cache LastColorCache, logger *slog.Logger) (*Repository, error) {
	pool, err := pgxpool.New(ctx, postgresURL)
	if err != nil {
		return nil, fmt.Errorf("chyba konfigurace DB: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("DB není dostupná: %w", err)
	}

	repo := NewRepository(stdlib.OpenDBFromPool(pool), cache, logger)
	repo.pool = pool
	return repo, nil
}

// Close uzavře spojení při ukončení aplikace.
func (r *Repository) Close() {
	r.db.Close()
	if r.pool != nil {
		r.pool.Close()
	}
}

// EnsureSchema vytvoří tabulku, pokud ještě neexistuje.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create led_colors: %w", err)
	}
	return nil
}

// Insert přidá jeden záznam a vloží ho i s přiděleným id do cache.
// Chyba cache po úspěšném insertu se zaloguje, záznam v PG platí.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	query := `INSERT INTO led_colors (color, timestamp) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, rec.Color, rec.Timestamp).Scan(&rec.ID); err != nil {
		return fmt.Errorf("chyba insertu do PG: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Add(ctx, rec); err != nil {
			r.cacheError("add", err)
		}
	}
	return nil
}

// Latest vrátí nejnovější záznam podle timestamp. ok == false pro prázdnou tabulku.
// Nejdřív se ptá cache, při chybě nebo chybějícím klíči jde do PG.
func (r *Repository) Latest(ctx context.Context) (Record, bool, error) {
	if r.cache != nil {
		rec, ok, err := r.cache.Last(ctx)
		if err != nil {
			r.cacheError("last", err)
		} else if ok {
			return rec, true, nil
		}
	}

	query := `SELECT id, color, timestamp FROM led_colors ORDER BY timestamp DESC LIMIT 1`

	var rec Record
	err := r.db.QueryRowContext(ctx, query).Scan(&rec.ID, &rec.Color, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("chyba načítání poslední barvy: %w", err)
	}
	return rec, true, nil
}

// Recent vrátí až limit nejnovějších záznamů, od nejnovějšího.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, color, timestamp FROM led_colors ORDER BY timestamp DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("chyba načítání historie: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Color, &rec.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ErrorAttrs vrátí diagnostiku chyby pro slog. U chyb z Postgresu
// přidá kód, nápovědu a detail.
func ErrorAttrs(err error) []any {
	attrs := []any{"error", err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		attrs = append(attrs,
			"pg_message", pgErr.Message,
			"pg_code", pgErr.Code,
			"pg_hint", pgErr.Hint,
			"pg_detail", pgErr.Detail,
		)
	}
	return attrs
}
