package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/offnote/internal/models"
	"github.com/starford/offnote/internal/noteservice"
	"github.com/starford/offnote/internal/syncengine"
)

// maxTitle is the longest title either API accepts, in characters.
const maxTitle = models.MaxTitleLength

// NoteBody is the remote endpoint's request body for create and update.
// Timestamps sent by clients are ignored: the server stamps every write.
type NoteBody struct {
	ID      string `json:"id" example:"0e7b6f0a-8d3c-4c1e-9f2a-1b2c3d4e5f60"`
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"milk, eggs"`
}

// Validate checks a create body.
func (b NoteBody) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ID, validation.Required, is.UUID),
		validation.Field(&b.Title, validation.RuneLength(0, maxTitle)),
	)
}

func (b NoteBody) remote() models.RemoteNote {
	return models.RemoteNote{ID: b.ID, Title: b.Title, Content: b.Content}
}

// CreateNoteRequest is the local API body for creating a note. A blank title
// becomes the default one.
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"milk, eggs"`
}

// Validate checks a local create body.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.RuneLength(0, maxTitle)),
	)
}

// UpdateNoteRequest is the local API body for editing a note. Omitted fields
// are left unchanged; at least one must be present.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty" example:"Groceries"`
	Content *string `json:"content,omitempty" example:"milk, eggs, bread"`
}

// Validate checks a local update body.
func (r UpdateNoteRequest) Validate() error {
	if r.Title == nil && r.Content == nil {
		return validation.NewError("validation_empty_update", "title or content is required")
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.RuneLength(0, maxTitle)),
	)
}

// NoteView is a local note with its sync status (aliased from the domain layer).
type NoteView = noteservice.NoteView

// LocalListResponse wraps a local note listing.
type LocalListResponse struct {
	Notes []NoteView `json:"notes" validate:"required"`
	Total int        `json:"total" example:"42" validate:"required"`
}

// SyncNoteResponse reports the status of a note after a targeted push.
type SyncNoteResponse struct {
	ID     string            `json:"id" validate:"required"`
	Status models.SyncStatus `json:"status" validate:"required"`
}

// SyncResponse summarises one reconcile pass.
type SyncResponse struct {
	Ran         bool   `json:"ran"`
	Skipped     string `json:"skipped,omitempty" example:"offline"`
	PullFailed  bool   `json:"pullFailed"`
	Inserted    int    `json:"inserted"`
	Overwritten int    `json:"overwritten"`
	KeptLocal   int    `json:"keptLocal"`
	Pushed      int    `json:"pushed"`
	Requeued    int    `json:"requeued"`
	Failed      int    `json:"failed"`
	DurationMS  int64  `json:"durationMs"`
}

func syncResponse(res syncengine.Result) SyncResponse {
	return SyncResponse{
		Ran:         res.Ran(),
		Skipped:     res.Skipped,
		PullFailed:  res.PullFailed,
		Inserted:    res.Inserted,
		Overwritten: res.Overwritten,
		KeptLocal:   res.KeptLocal,
		Pushed:      res.Pushed,
		Requeued:    res.Requeued,
		Failed:      res.Failed,
		DurationMS:  res.Duration.Milliseconds(),
	}
}

// StatusReport is the aggregate sync state (aliased from the domain layer).
type StatusReport = noteservice.StatusReport
