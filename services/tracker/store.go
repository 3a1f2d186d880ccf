package tracker

import (
	"context"
	"database/sql"
	"time"
)

// Store archives each run's canonical collection so past datasets stay
// queryable after the JSON output has been overwritten.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Archive(ctx context.Context, at time.Time, subs []Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO runs (created_at) VALUES (?)`,
		at.Unix(),
	)
	if err != nil {
		return err
	}
	runId, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO submissions (
    run_id, platform, handle, contest_id, problem_id,
    rating, division, submission_id, time, solved, upsolved
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sub := range subs {
		_, err = stmt.ExecContext(
			ctx,
			runId, sub.Platform, sub.Handle, sub.ContestId, sub.ProblemId,
			sub.Rating, sub.Division, sub.SubmissionId, sub.Time, sub.Solved, sub.Upsolved,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LatestRun returns the most recently archived collection in output
// order, or an empty slice if nothing has been archived yet.
func (s Store) LatestRun(ctx context.Context) ([]Submission, error) {
	var runId int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&runId)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT platform, handle, contest_id, problem_id,
       rating, division, submission_id, time, solved, upsolved
FROM submissions WHERE run_id = ?`, runId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		err = rows.Scan(
			&sub.Platform, &sub.Handle, &sub.ContestId, &sub.ProblemId,
			&sub.Rating, &sub.Division, &sub.SubmissionId, &sub.Time, &sub.Solved, &sub.Upsolved,
		)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	SortSubmissions(subs)
	return subs, nil
}
