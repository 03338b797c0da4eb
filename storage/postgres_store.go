package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"price-monitor/models"
	"price-monitor/utils"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	sessionRunning   = "running"
	sessionCompleted = "completed"
	sessionFailed    = "failed"

	batchSize = 50
)

// ErrNoSnapshot is returned when no completed scrape session exists yet.
var ErrNoSnapshot = errors.New("no completed snapshot")

// PostgresStore persists price snapshots to PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 8 * time.Second, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db, logger: logger}
	if err := ps.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ps, nil
}

// Migrate applies the embedded schema migrations.
func (ps *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{ps.logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	if err := goose.UpContext(ctx, ps.db, "migrations"); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// SaveSnapshot stores records as one scrape session. Records without an id
// cannot be keyed and are skipped.
func (ps *PostgresStore) SaveSnapshot(ctx context.Context, source string, records []*models.PriceRecord) (string, error) {
	sessionID := uuid.New()
	if _, err := ps.db.ExecContext(ctx,
		`INSERT INTO scrape_sessions (id, source, status) VALUES ($1, $2, $3)`,
		sessionID, source, sessionRunning,
	); err != nil {
		return "", fmt.Errorf("postgres: start session: %w", err)
	}

	keyed := make([]*models.PriceRecord, 0, len(records))
	for _, r := range records {
		if r != nil && strings.TrimSpace(r.ID) != "" {
			keyed = append(keyed, r)
		}
	}
	if skipped := len(records) - len(keyed); skipped > 0 {
		ps.logger.Warn("[postgres] Skipping %d records without an id", skipped)
	}

	if err := ps.writeSnapshot(ctx, sessionID, keyed); err != nil {
		ps.finishSession(sessionID, sessionFailed, 0)
		return "", err
	}
	if err := ps.finishSession(sessionID, sessionCompleted, len(keyed)); err != nil {
		return "", err
	}

	ps.logger.Info("[postgres] Session %s stored %d products", sessionID, len(keyed))
	return sessionID.String(), nil
}

func (ps *PostgresStore) writeSnapshot(ctx context.Context, sessionID uuid.UUID, records []*models.PriceRecord) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := upsertProducts(ctx, tx, records[i:end]); err != nil {
			return err
		}
		if err := insertPrices(ctx, tx, sessionID, records[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (ps *PostgresStore) finishSession(id uuid.UUID, status string, count int) error {
	// A cancelled request context must not leave the session marked running.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ps.db.ExecContext(ctx,
		`UPDATE scrape_sessions SET status = $2, product_count = $3, finished_at = NOW() WHERE id = $1`,
		id, status, count,
	)
	if err != nil {
		return fmt.Errorf("postgres: finish session: %w", err)
	}
	return nil
}

func upsertProducts(ctx context.Context, tx *sql.Tx, batch []*models.PriceRecord) error {
	// A product listed twice in one batch would make ON CONFLICT fail.
	seen := make(map[string]struct{}, len(batch))
	args := make([]any, 0, len(batch)*6)
	rows := 0
	for _, r := range batch {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		args = append(args, r.ID, r.Name, r.Category, r.Brand, r.URL, currencyOf(r))
		rows++
	}

	query := fmt.Sprintf(`
		INSERT INTO products (external_id, name, category, brand, url, currency)
		VALUES %s
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand,
			url = EXCLUDED.url,
			currency = EXCLUDED.currency,
			last_seen = NOW()
	`, placeholders(rows, 6))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: upsert products: %w", err)
	}
	return nil
}

func insertPrices(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID, batch []*models.PriceRecord) error {
	args := make([]any, 0, len(batch)*6)
	for _, r := range batch {
		args = append(args,
			sessionID,
			r.ID,
			decimal.NewFromFloat(r.CurrentPrice).Round(2),
			nullDecimal(r.OriginalPrice),
			nullDecimal(r.DiscountPercentage),
			scrapedAt(r),
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO price_history (session_id, external_id, current_price, original_price, discount_percentage, scraped_at)
		VALUES %s
	`, placeholders(len(batch), 6))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert prices: %w", err)
	}
	return nil
}

const selectSnapshot = `
	SELECT p.external_id, p.name, p.category, p.brand, p.url, p.currency,
	       h.current_price, h.original_price, h.discount_percentage, h.scraped_at
	FROM price_history h
	JOIN products p ON p.external_id = h.external_id
`

// FetchLatest returns every product observed in the most recent completed
// session, ordered by product id.
func (ps *PostgresStore) FetchLatest(ctx context.Context) ([]*models.PriceRecord, error) {
	session, err := ps.latestSession(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := ps.db.QueryContext(ctx, selectSnapshot+`
		WHERE h.session_id = $1
		ORDER BY p.external_id
	`, session)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch latest: %w", err)
	}
	defer rows.Close()

	var records []*models.PriceRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchPrevious returns each product's most recent observation from before
// the latest completed session.
func (ps *PostgresStore) FetchPrevious(ctx context.Context) (map[string]*models.PriceRecord, error) {
	session, err := ps.latestSession(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := ps.db.QueryContext(ctx, `
		SELECT DISTINCT ON (h.external_id)
		       p.external_id, p.name, p.category, p.brand, p.url, p.currency,
		       h.current_price, h.original_price, h.discount_percentage, h.scraped_at
		FROM price_history h
		JOIN products p ON p.external_id = h.external_id
		JOIN scrape_sessions s ON s.id = h.session_id
		WHERE s.status = $2
		  AND s.started_at < (SELECT started_at FROM scrape_sessions WHERE id = $1)
		ORDER BY h.external_id, h.scraped_at DESC
	`, session, sessionCompleted)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch previous: %w", err)
	}
	defer rows.Close()

	previous := make(map[string]*models.PriceRecord)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		previous[r.ID] = r
	}
	return previous, rows.Err()
}

func (ps *PostgresStore) latestSession(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := ps.db.QueryRowContext(ctx, `
		SELECT id FROM scrape_sessions
		WHERE status = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, sessionCompleted).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("postgres: %w", ErrNoSnapshot)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("postgres: latest session: %w", err)
	}
	return id, nil
}

func scanRecord(rows *sql.Rows) (*models.PriceRecord, error) {
	var (
		r                  models.PriceRecord
		current            decimal.Decimal
		original, discount decimal.NullDecimal
	)
	if err := rows.Scan(
		&r.ID, &r.Name, &r.Category, &r.Brand, &r.URL, &r.Currency,
		&current, &original, &discount, &r.ScrapedAt,
	); err != nil {
		return nil, fmt.Errorf("postgres: scan row: %w", err)
	}
	r.CurrentPrice = current.InexactFloat64()
	r.OriginalPrice = floatOrNil(original)
	r.DiscountPercentage = floatOrNil(discount)
	return &r, nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// placeholders renders "($1,$2),($3,$4)" for rows of cols parameters.
func placeholders(rows, cols int) string {
	var b strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "$%d", i*cols+j+1)
		}
		b.WriteByte(')')
	}
	return b.String()
}

func nullDecimal(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*f).Round(2), Valid: true}
}

func floatOrNil(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	return models.Float(d.Decimal.InexactFloat64())
}

func currencyOf(r *models.PriceRecord) string {
	if r.Currency == "" {
		return "DKK"
	}
	return r.Currency
}

func scrapedAt(r *models.PriceRecord) time.Time {
	if r.ScrapedAt.IsZero() {
		return time.Now().UTC()
	}
	return r.ScrapedAt
}

// gooseLogger routes migration output through the application logger.
type gooseLogger struct {
	logger *utils.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Info("[migrate] "+strings.TrimSuffix(format, "\n"), v...)
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Fatal("[migrate] "+strings.TrimSuffix(format, "\n"), v...)
}
