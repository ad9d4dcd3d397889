package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// ==================== Status Store ====================

// statusStore implements driven.StatusStore and driven.PositionStore.
type statusStore struct {
	store *Store
}

var (
	_ driven.StatusStore   = (*statusStore)(nil)
	_ driven.PositionStore = (*statusStore)(nil)
)

// GetStatus returns the recorded status, or domain.ErrNotFound when pending.
func (s *statusStore) GetStatus(ctx context.Context, documentID, categoryID int64) (*domain.ProcessingStatus, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, category_id, status, run_id, error_message, started_at, completed_at, updated_at
		FROM category_processing_status
		WHERE document_id = ? AND category_id = ?
	`, documentID, categoryID)

	var st domain.ProcessingStatus
	var state, updatedAt string
	var errMsg, startedAt, completedAt sql.NullString
	if err := row.Scan(&st.DocumentID, &st.CategoryID, &state, &st.RunID,
		&errMsg, &startedAt, &completedAt, &updatedAt); err != nil {
		return nil, scanError(err, "processing status")
	}
	st.State = domain.ProcessingState(state)
	st.ErrorMessage = errMsg.String
	st.StartedAt = parseNullableTime(startedAt)
	st.CompletedAt = parseNullableTime(completedAt)
	st.UpdatedAt = parseTime(updatedAt)
	return &st, nil
}

// Claim moves a pair to started for runID in a single statement.
// The conflict clause only overwrites failed rows and stale rows started by
// another run; zero affected rows means the claim was refused.
func (s *statusStore) Claim(ctx context.Context, runID string, documentID, categoryID int64) error {
	started := time.Now()
	now := formatTime(started)
	cutoff := formatTime(started.Add(-s.store.staleClaimAfter))
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO category_processing_status
			(document_id, category_id, status, run_id, error_message, started_at, completed_at, updated_at)
		VALUES (?, ?, 'started', ?, NULL, ?, NULL, ?)
		ON CONFLICT(document_id, category_id) DO UPDATE SET
			status = 'started',
			run_id = excluded.run_id,
			error_message = NULL,
			started_at = excluded.started_at,
			completed_at = NULL,
			updated_at = excluded.updated_at
		WHERE category_processing_status.status = 'failed'
			OR (category_processing_status.status = 'started'
				AND category_processing_status.run_id != excluded.run_id
				AND category_processing_status.started_at <= ?)
	`, documentID, categoryID, runID, now, now, cutoff)
	if err != nil {
		return fmt.Errorf("claiming pair: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	st, err := s.GetStatus(ctx, documentID, categoryID)
	if errors.Is(err, domain.ErrNotFound) {
		// Released between the upsert and the read.
		return domain.ErrAlreadyClaimed
	}
	if err != nil {
		return err
	}
	if st.State == domain.StateCompleted {
		return domain.ErrAlreadyCompleted
	}
	return domain.ErrAlreadyClaimed
}

// Complete writes the position and marks the pair completed in one transaction.
func (s *statusStore) Complete(ctx context.Context, runID string, pos *domain.PartyPosition, keepHistory bool) error {
	if pos == nil {
		return domain.ErrInvalidInput
	}
	proposals, err := domain.MarshalProposals(pos.KeyProposals)
	if err != nil {
		return fmt.Errorf("encoding proposals: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var state, owner string
	err = tx.QueryRowContext(ctx, `
		SELECT status, run_id FROM category_processing_status
		WHERE document_id = ? AND category_id = ?
	`, pos.DocumentID, pos.CategoryID).Scan(&state, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrInvalidTransition
	}
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	if domain.ProcessingState(state) != domain.StateStarted || owner != runID {
		return domain.ErrInvalidTransition
	}

	now := formatTime(time.Now())
	if keepHistory {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO party_position_history (position_id, `+positionFields+`, replaced_at)
			SELECT id, `+positionFields+`, ?
			FROM party_positions
			WHERE party_id = ? AND document_id = ? AND category_id = ?
		`, now, pos.PartyID, pos.DocumentID, pos.CategoryID)
		if err != nil {
			return fmt.Errorf("archiving position: %w", err)
		}
	}

	var createdAt string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO party_positions (`+positionFields+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(party_id, document_id, category_id) DO UPDATE SET
			summary = excluded.summary,
			key_proposals = excluded.key_proposals,
			ideology_position = excluded.ideology_position,
			budget_mentioned = excluded.budget_mentioned,
			confidence_score = excluded.confidence_score,
			chunks_used = excluded.chunks_used,
			avg_similarity = excluded.avg_similarity,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			cost_usd = excluded.cost_usd,
			model = excluded.model,
			raw_response = excluded.raw_response,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`, pos.PartyID, pos.DocumentID, pos.CategoryID, pos.Summary, proposals,
		nullString(pos.IdeologyPosition), nullString(pos.BudgetMentioned), nullableFloat(pos.ConfidenceScore),
		pos.ChunksUsed, pos.AvgSimilarity, pos.InputTokens, pos.OutputTokens, pos.CostUSD,
		pos.Model, nullString(pos.RawResponse), runID, now, now).Scan(&pos.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("saving position: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE category_processing_status
		SET status = 'completed', error_message = NULL, completed_at = ?, updated_at = ?
		WHERE document_id = ? AND category_id = ?
	`, now, now, pos.DocumentID, pos.CategoryID)
	if err != nil {
		return fmt.Errorf("completing pair: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing position: %w", err)
	}
	pos.RunID = runID
	pos.CreatedAt = parseTime(createdAt)
	pos.UpdatedAt = parseTime(now)
	return nil
}

// Fail marks a pair started by runID as failed with a message.
func (s *statusStore) Fail(ctx context.Context, runID string, documentID, categoryID int64, message string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE category_processing_status
		SET status = 'failed', error_message = ?, updated_at = ?
		WHERE document_id = ? AND category_id = ? AND status = 'started' AND run_id = ?
	`, message, formatTime(time.Now()), documentID, categoryID, runID)
	return ownedChange(res, err, "failing pair")
}

// Release returns a pair started by runID to pending.
func (s *statusStore) Release(ctx context.Context, runID string, documentID, categoryID int64) error {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM category_processing_status
		WHERE document_id = ? AND category_id = ? AND status = 'started' AND run_id = ?
	`, documentID, categoryID, runID)
	return ownedChange(res, err, "releasing pair")
}

// Reset deletes a completed pair's status. Other states are left alone.
func (s *statusStore) Reset(ctx context.Context, documentID, categoryID int64) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM category_processing_status
		WHERE document_id = ? AND category_id = ? AND status = 'completed'
	`, documentID, categoryID)
	if err != nil {
		return fmt.Errorf("resetting pair: %w", err)
	}
	return nil
}

// DocumentsNotCompleted returns IDs of documents whose pair with the
// category is not completed, ordered by ID.
func (s *statusStore) DocumentsNotCompleted(ctx context.Context, categoryID int64) ([]int64, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id
		FROM documents d
		LEFT JOIN category_processing_status s
			ON s.document_id = d.id AND s.category_id = ?
		WHERE s.status IS NULL OR s.status != 'completed'
		ORDER BY d.id
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("querying pending documents: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending documents: %w", err)
	}
	return ids, nil
}

// Progress counts states per active category across all documents.
func (s *statusStore) Progress(ctx context.Context) ([]domain.CategoryProgress, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.key, c.name, c.description, c.prompt_context, c.search_query,
			c.display_order, c.active, c.created_at,
			COALESCE(SUM(CASE WHEN s.status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN s.status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN s.status = 'started' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM documents)
		FROM categories c
		LEFT JOIN category_processing_status s ON s.category_id = c.id
		WHERE c.active = 1
		GROUP BY c.id
		ORDER BY c.display_order, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	var out []domain.CategoryProgress //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.CategoryProgress
		var active int
		var createdAt string
		c := &p.Category
		if err := rows.Scan(&c.ID, &c.Key, &c.Name, &c.Description, &c.PromptContext, &c.SearchQuery,
			&c.DisplayOrder, &active, &createdAt,
			&p.Completed, &p.Failed, &p.Started, &p.Total); err != nil {
			return nil, fmt.Errorf("scanning progress: %w", err)
		}
		c.Active = active == 1
		c.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating progress: %w", err)
	}
	return out, nil
}

// ==================== Position Store ====================

// positionColumns are shared by positions and their history.
var positionColumns = []string{
	"party_id", "document_id", "category_id", "summary", "key_proposals",
	"ideology_position", "budget_mentioned", "confidence_score", "chunks_used", "avg_similarity",
	"input_tokens", "output_tokens", "cost_usd", "model", "raw_response", "run_id", "created_at", "updated_at",
}

var positionFields = columnList("")

// GetPosition retrieves the position for (party, document, category).
func (s *statusStore) GetPosition(ctx context.Context, partyID, documentID, categoryID int64) (*domain.PartyPosition, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, `+positionFields+`
		FROM party_positions
		WHERE party_id = ? AND document_id = ? AND category_id = ?
	`, partyID, documentID, categoryID)
	return scanPosition(row)
}

// ListPositionsByParty returns a party's positions in category display order.
func (s *statusStore) ListPositionsByParty(ctx context.Context, partyID int64) ([]domain.PartyPosition, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT p.id, `+columnList("p.")+`
		FROM party_positions p
		JOIN categories c ON c.id = p.category_id
		WHERE p.party_id = ?
		ORDER BY c.display_order, c.id, p.document_id
	`, partyID)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	return collectPositions(rows)
}

// ListHistory returns replaced positions for a party and category, newest first.
func (s *statusStore) ListHistory(ctx context.Context, partyID, categoryID int64) ([]domain.PartyPosition, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT position_id, `+positionFields+`
		FROM party_position_history
		WHERE party_id = ? AND category_id = ?
		ORDER BY id DESC
	`, partyID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("querying position history: %w", err)
	}
	return collectPositions(rows)
}

// Totals aggregates count, tokens and cost over all positions.
func (s *statusStore) Totals(ctx context.Context) (domain.PositionTotals, error) {
	var t domain.PositionTotals
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(input_tokens + output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM party_positions
	`).Scan(&t.Positions, &t.TokensUsed, &t.CostUSD)
	if err != nil {
		return domain.PositionTotals{}, fmt.Errorf("summing positions: %w", err)
	}
	return t, nil
}

// ==================== Processing Log Store ====================

// logStore implements driven.ProcessingLogStore.
type logStore struct {
	store *Store
}

var _ driven.ProcessingLogStore = (*logStore)(nil)

// AppendLog inserts a log entry.
func (s *logStore) AppendLog(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var categoryID any
	if entry.CategoryID != 0 {
		categoryID = entry.CategoryID
	}
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO processing_log (run_id, document_id, category_id, stage, status,
			error_message, tokens_used, cost_usd, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.RunID, entry.DocumentID, categoryID, string(entry.Stage), string(entry.Status),
		nullString(entry.ErrorMessage), entry.TokensUsed, entry.CostUSD,
		entry.Duration.Milliseconds(), formatTime(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("appending log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading log id: %w", err)
	}
	entry.ID = id
	return nil
}

// RecentLogs returns the newest entries first.
func (s *logStore) RecentLogs(ctx context.Context, limit int) ([]domain.ProcessingLogEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, run_id, document_id, category_id, stage, status, error_message,
			tokens_used, cost_usd, duration_ms, created_at
		FROM processing_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.ProcessingLogEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.ProcessingLogEntry
		var categoryID sql.NullInt64
		var stage, status, createdAt string
		var errMsg sql.NullString
		var durationMs int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.DocumentID, &categoryID, &stage, &status, &errMsg,
			&e.TokensUsed, &e.CostUSD, &durationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		e.CategoryID = categoryID.Int64
		e.Stage = domain.Stage(stage)
		e.Status = domain.LogStatus(status)
		e.ErrorMessage = errMsg.String
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Timestamp = parseTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return entries, nil
}

// ==================== Helper Functions ====================

// ownedChange maps a conditional write on a started pair to its result.
func ownedChange(res sql.Result, err error, action string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// nullableFloat returns nil for a nil pointer, otherwise the value.
func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// columnList joins position columns, qualified with alias when set.
func columnList(alias string) string {
	cols := make([]string, len(positionColumns))
	for i, c := range positionColumns {
		cols[i] = alias + c
	}
	return strings.Join(cols, ", ")
}

// scanPosition scans a position row.
func scanPosition(row rowScanner) (*domain.PartyPosition, error) {
	var p domain.PartyPosition
	var proposals, createdAt, updatedAt string
	var ideology, budget, raw sql.NullString
	var confidence sql.NullFloat64

	if err := row.Scan(&p.ID, &p.PartyID, &p.DocumentID, &p.CategoryID, &p.Summary, &proposals,
		&ideology, &budget, &confidence, &p.ChunksUsed, &p.AvgSimilarity,
		&p.InputTokens, &p.OutputTokens, &p.CostUSD, &p.Model, &raw, &p.RunID,
		&createdAt, &updatedAt); err != nil {
		return nil, scanError(err, "position")
	}

	list, err := domain.UnmarshalProposals(proposals)
	if err != nil {
		return nil, fmt.Errorf("decoding proposals for position %d: %w", p.ID, err)
	}
	p.KeyProposals = list
	p.IdeologyPosition = ideology.String
	p.BudgetMentioned = budget.String
	if confidence.Valid {
		v := confidence.Float64
		p.ConfidenceScore = &v
	}
	p.RawResponse = raw.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// collectPositions drains rows of positions and closes them.
func collectPositions(rows *sql.Rows) ([]domain.PartyPosition, error) {
	defer rows.Close()

	var out []domain.PartyPosition //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating positions: %w", err)
	}
	return out, nil
}
