package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const (
	MailTypeCreateUser       = "create_user"
	MailTypeResetPassword    = "reset_password"
	MailTypeGroupingFinished = "grouping_finished"
	MailTypeGroupingFailed   = "grouping_failed"
)

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type GroupingMailGroup struct {
	Label    string  `json:"label"`
	Size     int     `json:"size"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

type GroupingFinishedMailData struct {
	FullName    string              `json:"fullName"`
	RosterName  string              `json:"rosterName"`
	JobID       string              `json:"jobID"`
	BestFitness float64             `json:"bestFitness"`
	Groups      []GroupingMailGroup `json:"groups"`
}

type GroupingFailedMailData struct {
	FullName   string `json:"fullName"`
	RosterName string `json:"rosterName"`
	JobID      string `json:"jobID"`
	Reason     string `json:"reason"`
}
