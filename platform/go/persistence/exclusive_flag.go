package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrFlagMemberNotFound indicates the target member does not belong to the group.
	ErrFlagMemberNotFound = errors.New("flag member not found in group")
	// ErrFlagConflict indicates a concurrent writer won the race for the flag.
	ErrFlagConflict = errors.New("flag conflict")
)

// ExclusiveFlag describes a boolean column where at most one row per group may be TRUE.
// The backing table should also carry a partial unique index on GroupColumn WHERE FlagColumn.
type ExclusiveFlag struct {
	Table        string
	GroupColumn  string
	MemberColumn string
	FlagColumn   string
}

// StudioMainImage marks the cover image of a studio.
var StudioMainImage = ExclusiveFlag{
	Table:        "studio_images",
	GroupColumn:  "studio_id",
	MemberColumn: "id",
	FlagColumn:   "is_main",
}

// SetTx makes memberID the only flagged row of groupID. It must run inside a transaction;
// on any error the caller's transaction rolls back, so no partial clear survives.
func (f ExclusiveFlag) SetTx(ctx context.Context, tx pgx.Tx, groupID, memberID int64) error {
	table := pgx.Identifier{f.Table}.Sanitize()
	group := pgx.Identifier{f.GroupColumn}.Sanitize()
	member := pgx.Identifier{f.MemberColumn}.Sanitize()
	flag := pgx.Identifier{f.FlagColumn}.Sanitize()

	// Writers on the same group queue here; other groups proceed in parallel.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`,
		f.Table, fmt.Sprintf("%d", groupID)); err != nil {
		return fmt.Errorf("lock flag group: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s = $2)`, table, member, group),
		memberID, groupID).Scan(&exists); err != nil {
		return fmt.Errorf("check flag member: %w", err)
	}
	if !exists {
		return ErrFlagMemberNotFound
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET %s = FALSE WHERE %s = $1 AND %s AND %s <> $2`, table, flag, group, flag, member),
		groupID, memberID); err != nil {
		if isUniqueViolation(err) {
			return ErrFlagConflict
		}
		return fmt.Errorf("clear flag: %w", err)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET %s = TRUE WHERE %s = $1 AND %s = $2`, table, flag, group, member),
		groupID, memberID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrFlagConflict
		}
		return fmt.Errorf("set flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagMemberNotFound
	}

	return nil
}

// FlaggedTx returns the flagged member of a group, if any.
func (f ExclusiveFlag) FlaggedTx(ctx context.Context, tx pgx.Tx, groupID int64) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s`,
		pgx.Identifier{f.MemberColumn}.Sanitize(),
		pgx.Identifier{f.Table}.Sanitize(),
		pgx.Identifier{f.GroupColumn}.Sanitize(),
		pgx.Identifier{f.FlagColumn}.Sanitize()), groupID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read flagged member: %w", err)
	}
	return id, true, nil
}
