package kpi

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/watchmystocks/server/internal/database"
)

const kpiColumns = `id, symbol, pe_ratio, pb_ratio, beta, dividend_yield,
	market_cap, roe, debt_to_equity, price_momentum, risk_tolerance,
	batch_id, last_updated`

// Repository persists screen batches.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a KPI repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "kpi").Logger(),
	}
}

// InsertBatch writes a full screen run in one transaction and prunes old
// batches past the retention window.
func (r *Repository) InsertBatch(batchID int64, rows []StockKPI) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO stock_kpis (symbol, pe_ratio, pb_ratio, beta,
				dividend_yield, market_cap, roe, debt_to_equity,
				price_momentum, risk_tolerance, batch_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			_, err := stmt.Exec(row.Symbol, row.PERatio, row.PBRatio, row.Beta,
				row.DividendYield, row.MarketCap, row.ROE, row.DebtToEquity,
				row.PriceMomentum, row.RiskTolerance, batchID)
			if err != nil {
				return fmt.Errorf("inserting %s: %w", row.Symbol, err)
			}
		}

		_, err = tx.Exec(`
			DELETE FROM stock_kpis
			WHERE batch_id NOT IN (
				SELECT DISTINCT batch_id FROM stock_kpis
				ORDER BY batch_id DESC LIMIT ?
			)`, RetainedBatches)
		if err != nil {
			return fmt.Errorf("pruning old batches: %w", err)
		}
		return nil
	})
}

// LatestBatchID returns the most recent batch, or ErrNoBatches.
func (r *Repository) LatestBatchID() (int64, error) {
	var id sql.NullInt64
	err := r.db.QueryRow(`SELECT MAX(batch_id) FROM stock_kpis`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("querying latest batch: %w", err)
	}
	if !id.Valid {
		return 0, ErrNoBatches
	}
	return id.Int64, nil
}

// TopByRisk returns the bucket's candidates from one batch, strongest
// momentum first.
func (r *Repository) TopByRisk(batchID int64, risk string, limit int) ([]StockKPI, error) {
	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT %s FROM stock_kpis
		WHERE batch_id = ? AND risk_tolerance = ?
		ORDER BY price_momentum DESC
		LIMIT ?`, kpiColumns), batchID, risk, limit)
	if err != nil {
		return nil, fmt.Errorf("querying batch %d: %w", batchID, err)
	}
	defer rows.Close()

	var out []StockKPI
	for rows.Next() {
		kpi, err := scanKPI(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *kpi)
	}
	return out, rows.Err()
}

// CountBatches returns how many distinct screen runs are stored.
func (r *Repository) CountBatches() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(DISTINCT batch_id) FROM stock_kpis`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting batches: %w", err)
	}
	return n, nil
}

func scanKPI(rows *sql.Rows) (*StockKPI, error) {
	var kpi StockKPI
	err := rows.Scan(&kpi.ID, &kpi.Symbol, &kpi.PERatio, &kpi.PBRatio,
		&kpi.Beta, &kpi.DividendYield, &kpi.MarketCap, &kpi.ROE,
		&kpi.DebtToEquity, &kpi.PriceMomentum, &kpi.RiskTolerance,
		&kpi.BatchID, &kpi.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("scanning kpi row: %w", err)
	}
	return &kpi, nil
}
