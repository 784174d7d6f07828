package domain

import "time"

// Draft form field names.
const (
	FieldProviderID    = "provider_id"
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldInfringingURL = "infringing_url"
	FieldOriginalURL   = "original_url"
	FieldSignature     = "signature"
	FieldName          = "name"
	FieldEmail         = "email"
	FieldRecipient     = "recipient"
	FieldDate          = "date"
)

// Draft is the raw, validated form input held in the session between
// confirm and store.
type Draft map[string]string

// Clone returns a shallow copy so callers can add keys without touching the
// stored draft.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Fill sets key to value only when the draft does not already carry it.
func (d Draft) Fill(key, value string) {
	if _, ok := d[key]; !ok {
		d[key] = value
	}
}

// NoticeForm is the typed view of a draft used for validation.
type NoticeForm struct {
	ProviderID    string `json:"provider_id" validate:"required"`
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description" validate:"required"`
	InfringingURL string `json:"infringing_url" validate:"required,url"`
	OriginalURL   string `json:"original_url" validate:"required,url"`
	Signature     string `json:"signature" validate:"required,max=255"`
}

// Form extracts the fields the notice schema requires.
func (d Draft) Form() NoticeForm {
	return NoticeForm{
		ProviderID:    d[FieldProviderID],
		Title:         d[FieldTitle],
		Description:   d[FieldDescription],
		InfringingURL: d[FieldInfringingURL],
		OriginalURL:   d[FieldOriginalURL],
		Signature:     d[FieldSignature],
	}
}

// Notice is a persisted DMCA takedown notice. Content is immutable once
// stored; only ContentRemoved (and UpdatedAt) change afterwards.
type Notice struct {
	NoticeID       string    `json:"id" dynamodbav:"notice_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	ProviderID     string    `json:"provider_id" dynamodbav:"provider_id"`
	Title          string    `json:"title" dynamodbav:"title"`
	Description    string    `json:"description" dynamodbav:"description"`
	InfringingURL  string    `json:"infringing_url" dynamodbav:"infringing_url"`
	OriginalURL    string    `json:"original_url" dynamodbav:"original_url"`
	Template       string    `json:"template" dynamodbav:"template"`
	Content        string    `json:"content" dynamodbav:"content"`
	ContentRemoved bool      `json:"content_removed" dynamodbav:"content_removed"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// OpenNotice builds an unsaved notice from a confirmed draft.
func OpenNotice(d Draft) *Notice {
	return &Notice{
		ProviderID:    d[FieldProviderID],
		Title:         d[FieldTitle],
		Description:   d[FieldDescription],
		InfringingURL: d[FieldInfringingURL],
		OriginalURL:   d[FieldOriginalURL],
	}
}

// UseTemplate records the template the content was rendered from.
func (n *Notice) UseTemplate(name, content string) *Notice {
	n.Template = name
	n.Content = content
	return n
}

// NoticeFilter narrows a per-owner listing.
type NoticeFilter struct {
	ExcludeRemoved bool
}
