package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDraft_FillKeepsExistingKeys(t *testing.T) {
	d := Draft{FieldName: "Pen Name"}
	d.Fill(FieldName, "Jane Doe")
	d.Fill(FieldEmail, "jane@example.com")

	assert.Equal(t, "Pen Name", d[FieldName])
	assert.Equal(t, "jane@example.com", d[FieldEmail])
}

func TestDraft_FillKeepsExplicitEmptyValue(t *testing.T) {
	d := Draft{FieldEmail: ""}
	d.Fill(FieldEmail, "jane@example.com")
	assert.Equal(t, "", d[FieldEmail])
}

func TestDraft_CloneIsIndependent(t *testing.T) {
	d := Draft{FieldTitle: "X"}
	c := d.Clone()
	c[FieldRecipient] = "Host"

	_, ok := d[FieldRecipient]
	assert.False(t, ok)
}

func TestOpenNotice_UseTemplate(t *testing.T) {
	d := Draft{
		FieldProviderID:    "42",
		FieldTitle:         "X",
		FieldDescription:   "Y",
		FieldInfringingURL: "https://pirate.example/x",
		FieldOriginalURL:   "https://mine.example/x",
		FieldSignature:     "Jane Doe",
	}
	n := OpenNotice(d).UseTemplate("standard", "body")

	assert.Equal(t, "42", n.ProviderID)
	assert.Equal(t, "X", n.Title)
	assert.Equal(t, "https://pirate.example/x", n.InfringingURL)
	assert.Equal(t, "standard", n.Template)
	assert.Equal(t, "body", n.Content)
	assert.False(t, n.ContentRemoved)
	assert.Empty(t, n.UserID)
}
