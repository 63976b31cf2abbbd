package home

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractZip(t *testing.T) {
	cases := map[string]string{
		"1200 Main St, Dallas, TX 75201":       "75201",
		"Suite 12345, Plano TX 75024":          "75024",
		"no zip here":                          "",
		"75201-1234 is zip plus four, 75230 x": "75230",
		"":                                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractZip(in), in)
	}
}

func TestDeriveFileName(t *testing.T) {
	assert.Equal(t, "given.pdf", DeriveFileName("given.pdf", "https://x.test/a/b.pdf", "Title"))
	assert.Equal(t, "Site Plan", DeriveFileName("", "https://cdn.example.com/homes/plan-v2.pdf", " Site Plan "))
	assert.Equal(t, "plan set.pdf", DeriveFileName("", "https://x.test/a/plan%20set.pdf?sig=1", ""))
	assert.Equal(t, "plan-v2.pdf", DeriveFileName("", "https://cdn.example.com/homes/plan-v2.pdf", "  "))
	assert.Equal(t, "Title", DeriveFileName("", "", " Title "))
	assert.Equal(t, "", DeriveFileName("", "https://x.test/", ""))
}

func TestNewDocumentFileNameFromTitle(t *testing.T) {
	doc := NewDocument("Site Plan", "https://cdn.example.com/homes/plan-v2.pdf", "", CategoryOther, PinnedTo{}, Uploader{}, time.Now())
	assert.Equal(t, "Site Plan", doc.FileName)

	doc = NewDocument("Site Plan", "https://cdn.example.com/homes/plan-v2.pdf", "plan-v2.pdf", CategoryOther, PinnedTo{}, Uploader{}, time.Now())
	assert.Equal(t, "plan-v2.pdf", doc.FileName)
}

func TestNormalizeContacts(t *testing.T) {
	out := NormalizeContacts([]Contact{{FullName: "A", IsPrimary: true}, {FullName: "B", IsPrimary: true}})
	assert.True(t, out[0].IsPrimary)
	assert.False(t, out[1].IsPrimary)
	assert.NotEmpty(t, out[1].ID)

	out = NormalizeContacts([]Contact{{FullName: "A"}, {FullName: "B"}})
	assert.True(t, out[0].IsPrimary)

	assert.Empty(t, NormalizeContacts(nil))
}

func TestApplyPatchesRemoveAndAppend(t *testing.T) {
	doc := []byte(`{"list":[1,2,3],"obj":{"k":"v"}}`)
	out, err := ApplyPatches(doc, []Patch{Remove("list", 0), Append(4, "list"), Set("w", "obj", "k"), Append("x", "fresh")})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"list":[2,3,4],"obj":{"k":"w"},"fresh":["x"]}`, string(out))

	_, err = ApplyPatches(doc, []Patch{Set(1, "list", 9)})
	assert.Error(t, err)
}
