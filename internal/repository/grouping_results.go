package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
)

// InsertGroupingResult 保存一次分组结果，每个名单只保留最新的一份
func (r *Repository) InsertGroupingResult(ctx context.Context, result *domain.GroupingResult) error {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	parameters, err := json.Marshal(result.Parameters)
	if err != nil {
		return err
	}
	genes, err := json.Marshal(result.Genes)
	if err != nil {
		return err
	}

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM grouping_results WHERE roster_id = $1`, result.RosterID); err != nil {
		return err
	}

	query := `
		INSERT INTO grouping_results (roster_id, parameters, genes, best_fitness)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`
	args := []any{result.RosterID, string(parameters), string(genes), result.BestFitness}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&result.ID, &result.CreatedAt, &result.Version); err != nil {
		return err
	}

	groupQuery := `
		INSERT INTO grouping_result_groups (result_id, label, size, mean, variance, low_count, mid_count, high_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	memberQuery := `
		INSERT INTO grouping_result_members (group_id, student_id) VALUES ($1, $2)
	`
	for _, group := range result.Groups {
		var groupID int64
		args := []any{result.ID, group.Label, group.Size, group.Mean, group.Variance, group.LowCount, group.MidCount, group.HighCount}
		if err := tx.QueryRowContext(ctx, groupQuery, args...).Scan(&groupID); err != nil {
			return err
		}

		for _, studentID := range group.StudentIDs {
			if _, err := tx.ExecContext(ctx, memberQuery, groupID, studentID); err != nil {
				return err
			}
		}
	}

	generationQuery := `
		INSERT INTO grouping_result_generations (result_id, generation, best_fitness) VALUES ($1, $2, $3)
	`
	for generation, fitness := range result.FitnessHistory {
		if _, err := tx.ExecContext(ctx, generationQuery, result.ID, generation, fitness); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetGroupingResultByRosterID 名单尚未分组时返回 sql.ErrNoRows
func (r *Repository) GetGroupingResultByRosterID(ctx context.Context, rosterID int64) (*domain.GroupingResult, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result := &domain.GroupingResult{
		RosterID: rosterID,
	}

	var parameters, genes []byte
	query := `
		SELECT id, parameters, genes, best_fitness, created_at, version
		FROM grouping_results WHERE roster_id = $1
	`
	dst := []any{&result.ID, &parameters, &genes, &result.BestFitness, &result.CreatedAt, &result.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, rosterID).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(parameters, &result.Parameters); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(genes, &result.Genes); err != nil {
		return nil, err
	}

	groups, err := r.getGroupingResultGroups(ctx, result.ID)
	if err != nil {
		return nil, err
	}
	result.Groups = groups

	history, err := r.getGroupingResultHistory(ctx, result.ID)
	if err != nil {
		return nil, err
	}
	result.FitnessHistory = history

	return result, nil
}

func (r *Repository) getGroupingResultGroups(ctx context.Context, resultID int64) ([]domain.GroupingResultGroup, error) {
	query := `
		SELECT
			g.id,
			g.label,
			g.size,
			g.mean,
			g.variance,
			g.low_count,
			g.mid_count,
			g.high_count,
			m.student_id
		FROM grouping_result_groups g
		LEFT JOIN grouping_result_members m ON g.id = m.group_id
		LEFT JOIN roster_students rs ON m.student_id = rs.id
		WHERE g.result_id = $1
		ORDER BY g.id, rs.position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]domain.GroupingResultGroup, 0)
	var lastGroupID int64
	for rows.Next() {
		var (
			groupID   int64
			group     domain.GroupingResultGroup
			studentID sql.NullInt64
		)

		dst := []any{&groupID, &group.Label, &group.Size, &group.Mean, &group.Variance, &group.LowCount, &group.MidCount, &group.HighCount, &studentID}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		// 结果按组排序，组 ID 变化时说明进入了新的一组
		if len(groups) == 0 || groupID != lastGroupID {
			group.StudentIDs = make([]int64, 0, group.Size)
			groups = append(groups, group)
			lastGroupID = groupID
		}

		if studentID.Valid {
			last := &groups[len(groups)-1]
			last.StudentIDs = append(last.StudentIDs, studentID.Int64)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *Repository) getGroupingResultHistory(ctx context.Context, resultID int64) ([]float64, error) {
	query := `
		SELECT best_fitness FROM grouping_result_generations
		WHERE result_id = $1
		ORDER BY generation
	`

	rows, err := r.dbpool.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]float64, 0)
	for rows.Next() {
		var fitness float64
		if err := rows.Scan(&fitness); err != nil {
			return nil, err
		}
		history = append(history, fitness)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}
