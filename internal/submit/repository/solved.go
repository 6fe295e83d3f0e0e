package repository

import (
	"context"
	"errors"

	"codearena/internal/common/db"
)

// SolvedRepository keeps the set of problems each user has solved.
type SolvedRepository interface {
	// Add inserts the pair when absent. It reports whether a row was inserted;
	// adding an existing pair is a no-op.
	Add(ctx context.Context, tx db.Transaction, userID, problemID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]int64, error)
}

// MySQLSolvedRepository relies on the (user_id, problem_id) unique key for set semantics.
type MySQLSolvedRepository struct {
	db db.Database
}

func NewSolvedRepository(database db.Database) SolvedRepository {
	return &MySQLSolvedRepository{db: database}
}

func (r *MySQLSolvedRepository) Add(ctx context.Context, tx db.Transaction, userID, problemID int64) (bool, error) {
	if userID <= 0 {
		return false, errors.New("userID is required")
	}
	if problemID <= 0 {
		return false, errors.New("problemID is required")
	}
	query := "INSERT IGNORE INTO user_solved_problems (user_id, problem_id) VALUES (?, ?)"
	result, err := db.GetQuerier(r.db, tx).Exec(ctx, query, userID, problemID)
	if err != nil {
		if _, dup := db.UniqueViolation(err); dup {
			return false, nil
		}
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *MySQLSolvedRepository) ListByUser(ctx context.Context, userID int64) ([]int64, error) {
	query := "SELECT problem_id FROM user_solved_problems WHERE user_id = ? ORDER BY created_at ASC"
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
