package rest

import (
	"encoding/json"
	"errors"
	"time"

	pkgError "github.com/nivaro/postpilot/pkg/error"
	"github.com/nivaro/postpilot/pkg/utils"
	"github.com/nivaro/postpilot/scheduling/domain"
)

// schedulePayload is the wire shape for recurring schedules:
// {"kind":"weekly","config":{"days":[1,3,5],"at":{"hour":9}}}
type schedulePayload struct {
	Kind   domain.ScheduleKind `json:"kind"`
	Config json.RawMessage     `json:"config"`
}

func (p schedulePayload) decode() (domain.Schedule, error) {
	if p.Kind == "" {
		return nil, nil
	}
	return domain.DecodeSchedule(p.Kind, string(p.Config))
}

type createJobPayload struct {
	Name      string                    `json:"name"`
	TargetIDs []string                  `json:"target_ids"`
	Schedule  schedulePayload           `json:"schedule"`
	Settings  domain.GenerationSettings `json:"settings"`
}

// jobResponse re-attaches the schedule, which the entity does not
// marshal itself.
type jobResponse struct {
	domain.RecurringJob
	Schedule *schedulePayload `json:"schedule,omitempty"`
}

func toJobResponse(job domain.RecurringJob) jobResponse {
	resp := jobResponse{RecurringJob: job}
	if kind, payload, err := domain.EncodeSchedule(job.Schedule); err == nil {
		resp.Schedule = &schedulePayload{Kind: kind, Config: json.RawMessage(payload)}
	}
	return resp
}

type mediaUploadResponse struct {
	MediaPath string    `json:"media_path"`
	Size      int64     `json:"size"`
	Uploaded  time.Time `json:"uploaded"`
}

// panicIfErr translates domain sentinel errors into typed HTTP errors
// before handing them to the recovery middleware.
func panicIfErr(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, domain.ErrPostNotFound), errors.Is(err, domain.ErrJobNotFound):
		panic(pkgError.NotFoundError(err.Error()))
	case errors.Is(err, domain.ErrPostNotEditable):
		panic(pkgError.ConflictError(err.Error()))
	default:
		var generic pkgError.GenericError
		if errors.As(err, &generic) {
			utils.PanicIfNeeded(err)
		}
		panic(pkgError.InternalServerError(err.Error()))
	}
}
