package domain

import "time"

// Student: 名单中的一名学生，Position 决定其在分组算法中的下标
type Student struct {
	ID            int64   `json:"id"`
	StudentNumber string  `json:"studentNumber"`
	FullName      string  `json:"fullName"`
	Score         float64 `json:"score"`
	Position      int     `json:"position"`
}

type Roster struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"ownerID"`
	Students    []Student `json:"students"`
	CreatedAt   time.Time `json:"createdAt"`
	Version     int32     `json:"-"`
}

// RosterMeta: 不含学生列表的名单信息
type RosterMeta struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	OwnerID      int64     `json:"ownerID"`
	StudentCount int       `json:"studentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Scores 按 Position 顺序返回成绩
func (r *Roster) Scores() []float64 {
	scores := make([]float64, len(r.Students))
	for i, s := range r.Students {
		scores[i] = s.Score
	}
	return scores
}
