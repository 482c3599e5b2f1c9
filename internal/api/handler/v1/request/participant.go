package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const maxBatch = 500

type AddParticipantsRequest struct {
	Emails []string `json:"emails"`
}

func (req *AddParticipantsRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Emails, validation.Length(0, maxBatch), validation.Each(validation.Required, is.Email)),
	)
}

type RemoveParticipantsRequest struct {
	UserIDs []uint `json:"user_ids"`
}

func (req *RemoveParticipantsRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.UserIDs, validation.Required, validation.Length(1, maxBatch), validation.Each(validation.Required)),
	)
}
