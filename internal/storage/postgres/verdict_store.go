package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rugwatch/internal/domain"
	"rugwatch/internal/storage"
)

// VerdictStore implements storage.VerdictStore using PostgreSQL.
type VerdictStore struct {
	pool *Pool
}

// NewVerdictStore creates a new VerdictStore.
func NewVerdictStore(pool *Pool) *VerdictStore {
	return &VerdictStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VerdictStore = (*VerdictStore)(nil)

const verdictColumns = `signature, mint, label, good_signs, red_flags, unresolved, creator, name, symbol, slot, block_time, scored_at`

// Insert adds a new verdict. Returns ErrDuplicateKey if the signature exists.
func (s *VerdictStore) Insert(ctx context.Context, v *domain.RiskVerdict) error {
	if v == nil || v.Signature == "" || v.Mint == "" || !v.Label.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO verdicts (` + verdictColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		v.Signature,
		v.Mint,
		string(v.Label),
		signalStrings(v.GoodSigns),
		signalStrings(v.RedFlags),
		fieldStrings(v.Unresolved),
		v.Creator,
		v.Name,
		v.Symbol,
		int64(v.Slot),
		v.BlockTime,
		v.ScoredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// GetBySignature retrieves a verdict. Returns ErrNotFound if not exists.
func (s *VerdictStore) GetBySignature(ctx context.Context, signature string) (*domain.RiskVerdict, error) {
	query := `
		SELECT ` + verdictColumns + `
		FROM verdicts
		WHERE signature = $1
	`

	row := s.pool.QueryRow(ctx, query, signature)
	v, err := scanVerdict(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get verdict by signature: %w", err)
	}
	return v, nil
}

// ListByMint retrieves all verdicts for a mint in scoring order, oldest first.
// A relaunched mint can carry one verdict per creation signature.
func (s *VerdictStore) ListByMint(ctx context.Context, mint string) ([]*domain.RiskVerdict, error) {
	query := `
		SELECT ` + verdictColumns + `
		FROM verdicts
		WHERE mint = $1
		ORDER BY scored_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("list verdicts by mint: %w", err)
	}
	defer rows.Close()

	return scanVerdicts(rows)
}

// ListByLabel retrieves verdicts with the given label, newest first.
func (s *VerdictStore) ListByLabel(ctx context.Context, label domain.Label, limit int) ([]*domain.RiskVerdict, error) {
	query := `
		SELECT ` + verdictColumns + `
		FROM verdicts
		WHERE label = $1
		ORDER BY scored_at DESC, signature ASC
	`
	args := []interface{}{string(label)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verdicts by label: %w", err)
	}
	defer rows.Close()

	return scanVerdicts(rows)
}

// Count returns the total number of stored verdicts.
func (s *VerdictStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM verdicts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count verdicts: %w", err)
	}
	return count, nil
}

// scanVerdict scans a single row into a RiskVerdict.
func scanVerdict(row pgx.Row) (*domain.RiskVerdict, error) {
	var v domain.RiskVerdict
	var label string
	var goodSigns, redFlags, unresolved []string
	var slot int64

	err := row.Scan(
		&v.Signature,
		&v.Mint,
		&label,
		&goodSigns,
		&redFlags,
		&unresolved,
		&v.Creator,
		&v.Name,
		&v.Symbol,
		&slot,
		&v.BlockTime,
		&v.ScoredAt,
	)
	if err != nil {
		return nil, err
	}

	v.Label = domain.Label(label)
	v.GoodSigns = toSignals(goodSigns)
	v.RedFlags = toSignals(redFlags)
	v.Unresolved = toFields(unresolved)
	v.Slot = uint64(slot)
	return &v, nil
}

// scanVerdicts scans multiple rows into a slice of RiskVerdict.
func scanVerdicts(rows pgx.Rows) ([]*domain.RiskVerdict, error) {
	var verdicts []*domain.RiskVerdict

	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verdict row: %w", err)
		}
		verdicts = append(verdicts, v)
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
