package clickhouse

import (
	"context"
	"fmt"

	"rugwatch/internal/domain"
	"rugwatch/internal/storage"
)

// VerdictArchive implements storage.VerdictStore using ClickHouse. It is the
// analytical backend: verdicts accumulate here for offline heuristic tuning
// (red-flag hit rates, label distribution over time) while Postgres or the
// in-memory store serves the hot path.
type VerdictArchive struct {
	conn *Conn
}

// NewVerdictArchive creates a new VerdictArchive.
func NewVerdictArchive(conn *Conn) *VerdictArchive {
	return &VerdictArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.VerdictStore = (*VerdictArchive)(nil)

const verdictColumns = `signature, mint, label, good_signs, red_flags, unresolved, creator, name, symbol, slot, block_time, scored_at`

// Insert adds a new verdict. Returns ErrDuplicateKey if the signature exists.
func (s *VerdictArchive) Insert(ctx context.Context, v *domain.RiskVerdict) error {
	if v == nil || v.Signature == "" || v.Mint == "" || !v.Label.IsValid() {
		return storage.ErrInvalidInput
	}

	// MergeTree doesn't enforce uniqueness at insert time, so check first.
	exists, err := s.exists(ctx, v.Signature)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO verdicts (` + verdictColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		v.Signature, v.Mint, string(v.Label),
		signalStrings(v.GoodSigns), signalStrings(v.RedFlags), fieldStrings(v.Unresolved),
		v.Creator, v.Name, v.Symbol,
		v.Slot, v.BlockTime, v.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// InsertBulk adds multiple verdicts. Fails the entire batch on any duplicate.
func (s *VerdictArchive) InsertBulk(ctx context.Context, verdicts []*domain.RiskVerdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, v := range verdicts {
		if v == nil || v.Signature == "" || v.Mint == "" || !v.Label.IsValid() {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[v.Signature]; dup {
			return storage.ErrDuplicateKey
		}
		seen[v.Signature] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, v := range verdicts {
		exists, err := s.exists(ctx, v.Signature)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO verdicts (`+verdictColumns+`)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, v := range verdicts {
		err = batch.Append(
			v.Signature, v.Mint, string(v.Label),
			signalStrings(v.GoodSigns), signalStrings(v.RedFlags), fieldStrings(v.Unresolved),
			v.Creator, v.Name, v.Symbol,
			v.Slot, v.BlockTime, v.ScoredAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySignature retrieves a verdict. Returns ErrNotFound if not exists.
func (s *VerdictArchive) GetBySignature(ctx context.Context, signature string) (*domain.RiskVerdict, error) {
	query := `
		SELECT ` + verdictColumns + `
		FROM verdicts
		WHERE signature = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get verdict by signature: %w", err)
	}
	defer rows.Close()

	verdicts, err := scanArchivedVerdicts(rows)
	if err != nil {
		return nil, err
	}
	if len(verdicts) == 0 {
		return nil, storage.ErrNotFound
	}
	return verdicts[0], nil
}

// ListByMint retrieves all verdicts for a mint in scoring order, oldest first.
func (s *VerdictArchive) ListByMint(ctx context.Context, mint string) ([]*domain.RiskVerdict, error) {
	query := `
		SELECT ` + verdictColumns + `
		FROM verdicts
		WHERE mint = ?
		ORDER BY scored_at ASC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("list verdicts by mint: %w", err)
	}
	defer rows.Close()

	return scanArchivedVerdicts(rows)
}

// ListByLabel retrieves verdicts with the given label, newest first.
func (s *VerdictArchive) ListByLabel(ctx context.Context, label domain.Label, limit int) ([]*domain.RiskVerdict, error) {
	query := `
		SELECT ` + verdictColumns + `
		FROM verdicts
		WHERE label = ?
		ORDER BY scored_at DESC, signature ASC
	`
	args := []interface{}{string(label)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verdicts by label: %w", err)
	}
	defer rows.Close()

	return scanArchivedVerdicts(rows)
}

// Count returns the total number of archived verdicts.
func (s *VerdictArchive) Count(ctx context.Context) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM verdicts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count verdicts: %w", err)
	}
	return int64(count), nil
}

// CountByLabel returns the number of archived verdicts per label.
func (s *VerdictArchive) CountByLabel(ctx context.Context) (map[domain.Label]int64, error) {
	query := `
		SELECT label, count(*)
		FROM verdicts
		GROUP BY label
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count verdicts by label: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Label]int64)
	for rows.Next() {
		var label string
		var count uint64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("scan label count row: %w", err)
		}
		counts[domain.Label(label)] = int64(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label count rows: %w", err)
	}
	return counts, nil
}

// exists checks if a verdict with the given signature exists.
func (s *VerdictArchive) exists(ctx context.Context, signature string) (bool, error) {
	query := `
		SELECT count(*) FROM verdicts
		WHERE signature = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, signature).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows the scan helpers need.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanArchivedVerdicts scans multiple rows into a slice.
func scanArchivedVerdicts(rows chRows) ([]*domain.RiskVerdict, error) {
	var verdicts []*domain.RiskVerdict

	for rows.Next() {
		var v domain.RiskVerdict
		var label string
		var goodSigns, redFlags, unresolved []string

		err := rows.Scan(
			&v.Signature, &v.Mint, &label,
			&goodSigns, &redFlags, &unresolved,
			&v.Creator, &v.Name, &v.Symbol,
			&v.Slot, &v.BlockTime, &v.ScoredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verdict row: %w", err)
		}

		v.Label = domain.Label(label)
		v.GoodSigns = toSignals(goodSigns)
		v.RedFlags = toSignals(redFlags)
		v.Unresolved = toFields(unresolved)
		verdicts = append(verdicts, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdict rows: %w", err)
	}
	return verdicts, nil
}

func signalStrings(signals []domain.Signal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = string(s)
	}
	return out
}

func toSignals(values []string) []domain.Signal {
	if len(values) == 0 {
		return nil
	}
	out := make([]domain.Signal, len(values))
	for i, s := range values {
		out[i] = domain.Signal(s)
	}
	return out
}

func fieldStrings(fields []domain.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

func toFields(values []string) []domain.Field {
	if len(values) == 0 {
		return nil
	}
	out := make([]domain.Field, len(values))
	for i, f := range values {
		out[i] = domain.Field(f)
	}
	return out
}
