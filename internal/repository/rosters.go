package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
)

func insertStudents(ctx context.Context, tx *sql.Tx, rosterID int64, students []domain.Student) error {
	query := `
		INSERT INTO roster_students (roster_id, student_number, full_name, score, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for i := range students {
		// 下标即为算法中的个体编号
		students[i].Position = i
		args := []any{rosterID, students[i].StudentNumber, students[i].FullName, students[i].Score, i}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&students[i].ID); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) CreateRoster(ctx context.Context, roster *domain.Roster) error {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO rosters (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, roster.Name, roster.Description, roster.OwnerID).Scan(&roster.ID, &roster.CreatedAt, &roster.Version); err != nil {
		return err
	}

	if err := insertStudents(ctx, tx, roster.ID, roster.Students); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) GetRosterByID(ctx context.Context, id int64) (*domain.Roster, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT
			r.name,
			r.description,
			r.owner_id,
			r.created_at,
			r.version,
			rs.id,
			rs.student_number,
			rs.full_name,
			rs.score,
			rs.position
		FROM rosters r
		LEFT JOIN roster_students rs ON r.id = rs.roster_id
		WHERE r.id = $1
		ORDER BY rs.position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster *domain.Roster
	for rows.Next() {
		var row struct {
			Name        string
			Description string
			OwnerID     int64
			CreatedAt   time.Time
			Version     int32

			StudentID     sql.NullInt64
			StudentNumber sql.NullString
			FullName      sql.NullString
			Score         sql.NullFloat64
			Position      sql.NullInt32
		}

		dst := []any{
			&row.Name,
			&row.Description,
			&row.OwnerID,
			&row.CreatedAt,
			&row.Version,
			&row.StudentID,
			&row.StudentNumber,
			&row.FullName,
			&row.Score,
			&row.Position,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if roster == nil {
			roster = &domain.Roster{
				ID:          id,
				Name:        row.Name,
				Description: row.Description,
				OwnerID:     row.OwnerID,
				CreatedAt:   row.CreatedAt,
				Version:     row.Version,
				Students:    make([]domain.Student, 0),
			}
		}

		// 空名单
		if !row.StudentID.Valid {
			continue
		}

		roster.Students = append(roster.Students, domain.Student{
			ID:            row.StudentID.Int64,
			StudentNumber: row.StudentNumber.String,
			FullName:      row.FullName.String,
			Score:         row.Score.Float64,
			Position:      int(row.Position.Int32),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if roster == nil {
		return nil, sql.ErrNoRows
	}

	return roster, nil
}

// GetAllRosters 返回名单概要，ownerID 为 0 时返回全部名单
func (r *Repository) GetAllRosters(ctx context.Context, ownerID int64) ([]*domain.RosterMeta, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT r.id, r.name, r.description, r.owner_id, r.created_at, COUNT(rs.id)
		FROM rosters r
		LEFT JOIN roster_students rs ON r.id = rs.roster_id
		WHERE $1::bigint = 0 OR r.owner_id = $1
		GROUP BY r.id
		ORDER BY r.id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rosters := make([]*domain.RosterMeta, 0)
	for rows.Next() {
		meta := &domain.RosterMeta{}
		dst := []any{&meta.ID, &meta.Name, &meta.Description, &meta.OwnerID, &meta.CreatedAt, &meta.StudentCount}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		rosters = append(rosters, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rosters, nil
}

func (r *Repository) UpdateRoster(ctx context.Context, roster *domain.Roster) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		UPDATE rosters
		SET name = $1, description = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	args := []any{roster.Name, roster.Description, roster.ID, roster.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&roster.Version)
}

func (r *Repository) DeleteRoster(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM rosters WHERE id = $1`, id)
	return err
}

// ReplaceRosterStudents 整体替换名单中的学生，旧的分组结果会一并删除
func (r *Repository) ReplaceRosterStudents(ctx context.Context, roster *domain.Roster) error {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE rosters SET version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`
	if err := tx.QueryRowContext(ctx, query, roster.ID, roster.Version).Scan(&roster.Version); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM grouping_results WHERE roster_id = $1`, roster.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM roster_students WHERE roster_id = $1`, roster.ID); err != nil {
		return err
	}

	if err := insertStudents(ctx, tx, roster.ID, roster.Students); err != nil {
		return err
	}

	return tx.Commit()
}
