package domain

import "time"

// GroupingWeights: 适应度各项权重，为 nil 时使用编码方式对应的默认值
type GroupingWeights struct {
	Balance     float64 `json:"balance" validate:"min=0"`
	Homogeneity float64 `json:"homogeneity" validate:"min=0"`
	Diversity   float64 `json:"diversity" validate:"min=0"`
	Baseline    float64 `json:"baseline"`
}

// GroupingParameters: 发起一次自动分组时提交的参数
type GroupingParameters struct {
	Encoding       string           `json:"encoding" validate:"required,oneof=discrete continuous"`
	GroupCount     int              `json:"groupCount" validate:"required,min=2"`
	Tolerance      string           `json:"tolerance" validate:"required,oneof=exact band free"`
	PopulationSize int              `json:"populationSize" validate:"required,min=1"`
	MaxGenerations int              `json:"maxGenerations" validate:"required,min=1"`
	EliteFraction  float64          `json:"eliteFraction" validate:"min=0,lt=1"`
	Sigma          float64          `json:"sigma" validate:"min=0"`
	Weights        *GroupingWeights `json:"weights,omitempty"`
	Seed           *uint64          `json:"seed,omitempty"`
}

type GroupingResultGroup struct {
	Label      string  `json:"label"`
	StudentIDs []int64 `json:"studentIDs"`
	Size       int     `json:"size"`
	Mean       float64 `json:"mean"`
	Variance   float64 `json:"variance"`
	LowCount   int     `json:"lowCount"`
	MidCount   int     `json:"midCount"`
	HighCount  int     `json:"highCount"`
}

type GroupingResult struct {
	ID             int64                 `json:"id"`
	RosterID       int64                 `json:"rosterID"`
	Parameters     GroupingParameters    `json:"parameters"`
	BestFitness    float64               `json:"bestFitness"`
	FitnessHistory []float64             `json:"fitnessHistory"`
	Genes          []float64             `json:"genes"`
	Groups         []GroupingResultGroup `json:"groups"`
	CreatedAt      time.Time             `json:"createdAt"`
	Version        int32                 `json:"-"`
}

type GroupingJobStatus string

const (
	GroupingJobPending  GroupingJobStatus = "pending"
	GroupingJobRunning  GroupingJobStatus = "running"
	GroupingJobFinished GroupingJobStatus = "finished"
	GroupingJobFailed   GroupingJobStatus = "failed"
)

// GroupingJob: 异步分组任务的状态，保存在 redis 中
type GroupingJob struct {
	ID          string            `json:"id"`
	RosterID    int64             `json:"rosterID"`
	RequestedBy int64             `json:"requestedBy"`
	Status      GroupingJobStatus `json:"status"`
	ResultID    int64             `json:"resultID,omitempty"`
	BestFitness *float64          `json:"bestFitness,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// GroupingJobMessage: 投递到分组队列中的消息
type GroupingJobMessage struct {
	JobID       string             `json:"jobID"`
	RosterID    int64              `json:"rosterID"`
	RequestedBy int64              `json:"requestedBy"`
	Parameters  GroupingParameters `json:"parameters"`
}

// SigmaSweepEntry: 不同变异强度的对比结果
type SigmaSweepEntry struct {
	Sigma          float64               `json:"sigma"`
	FinalFitness   float64               `json:"finalFitness"`
	FitnessHistory []float64             `json:"fitnessHistory"`
	Groups         []GroupingResultGroup `json:"groups"`
}
