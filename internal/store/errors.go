package store

import "github.com/GoSim-25-26J-441/clicksim/pkg/models"

var (
	ErrNotFound  = models.ErrRecordNotFound
	ErrMalformed = models.ErrMalformedRecord
)
