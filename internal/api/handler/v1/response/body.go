package response

type Health struct {
	Status string `json:"status"`
}

type VotedOptions struct {
	PollID    uint   `json:"poll_id"`
	OptionIDs []uint `json:"option_ids"`
}
