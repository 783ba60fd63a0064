package event

// Outbound publish payloads. The start command has an empty body and needs
// no struct here.

type JoinCommand struct {
	InviteCode string `json:"inviteCode"`
}

type AnswerCommand struct {
	QuestionIndex int `json:"questionIndex"`
	Index         int `json:"index"`
}
