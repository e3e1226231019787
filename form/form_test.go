package form

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/crowdsourcing/model"
)

func testQuestions() []model.Question {
	return []model.Question{
		{Fieldname: "name", Question: "Name", OptionType: model.OptionChar, Required: true},
		{Fieldname: "email", Question: "Email", OptionType: model.OptionEmail},
		{Fieldname: "age", Question: "Age", OptionType: model.OptionInteger},
		{Fieldname: "height", Question: "Height", OptionType: model.OptionFloat},
		{Fieldname: "agree", Question: "Agree?", OptionType: model.OptionBool},
		{Fieldname: "colour", Question: "Colour", OptionType: model.OptionRadio, Options: "red\nblue\ngreen"},
		{Fieldname: "pets", Question: "Pets", OptionType: model.OptionCheckbox, Options: "cat\ndog"},
		{Fieldname: "where", Question: "Where", OptionType: model.OptionLocation},
		{Fieldname: "clip", Question: "Clip", OptionType: model.OptionVideo},
		{Fieldname: "photo", Question: "Photo", OptionType: model.OptionPhoto},
	}
}

func TestFieldsFor(t *testing.T) {
	s := &model.Survey{Questions: testQuestions()}
	fields := FieldsFor(s)

	require.Len(t, fields, 10)
	assert.Equal(t, Field{Name: "name", Label: "Name", Required: true, Type: model.OptionChar, Widget: "text"}, fields[0])
	assert.Equal(t, "radio", fields[5].Widget)
	assert.Equal(t, []string{"red", "blue", "green"}, fields[5].Choices)
	assert.Equal(t, "checkbox-list", fields[6].Widget)
	assert.Equal(t, "file", fields[9].Widget)
	assert.Nil(t, fields[7].Choices)
}

func TestValidate_Valid(t *testing.T) {
	photo := &File{Filename: "me.png", Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("png")), nil
	}}
	entries, err := Validate(testQuestions(), map[string]any{
		"name":   " Ada ",
		"email":  "ada@example.com",
		"age":    float64(36),
		"height": "1.65",
		"agree":  "on",
		"colour": "blue",
		"pets":   []any{"cat", "dog"},
		"where":  "London",
		"clip":   "https://example.com/clip",
		"photo":  photo,
	})
	require.NoError(t, err)
	require.Len(t, entries, 10)

	want := []model.Value{
		model.Text("Ada"),
		model.Text("ada@example.com"),
		model.Integer(36),
		model.Float(1.65),
		model.Bool(true),
		model.Text("blue"),
		model.Text("cat\ndog"),
		model.Location{Text: "London"},
		model.Text("https://example.com/clip"),
		nil,
	}
	for i, w := range want {
		assert.Equal(t, w, entries[i].Value, entries[i].Question.Fieldname)
	}
	assert.Same(t, photo, entries[9].File)
}

func TestValidate_BlankOptionalFields(t *testing.T) {
	entries, err := Validate(testQuestions(), map[string]any{"name": "Ada", "pets": []string{}})
	require.NoError(t, err)

	assert.Nil(t, entries[2].Value, "blank integer")
	assert.Equal(t, model.Bool(false), entries[4].Value, "blank bool is false")
	assert.Nil(t, entries[6].Value)
	assert.Nil(t, entries[9].File)
}

func TestValidate_Errors(t *testing.T) {
	_, err := Validate(testQuestions(), map[string]any{
		"email":   "not-an-email",
		"age":     "4.5",
		"height":  "tall",
		"agree":   "perhaps",
		"colour":  "purple",
		"pets":    []string{"cat", "fish"},
		"clip":    "nope",
		"photo":   "a string",
		"unknown": "x",
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, msgRequired, verr.Fields["name"])
	assert.Equal(t, msgEmail, verr.Fields["email"])
	assert.Equal(t, msgInteger, verr.Fields["age"])
	assert.Equal(t, msgNumber, verr.Fields["height"])
	assert.Equal(t, msgBool, verr.Fields["agree"])
	assert.Contains(t, verr.Fields["colour"], "purple is not one of the available choices")
	assert.Contains(t, verr.Fields["pets"], "fish")
	assert.Equal(t, msgURL, verr.Fields["clip"])
	assert.Equal(t, msgFile, verr.Fields["photo"])
	assert.Contains(t, verr.Fields[NonField], "unknown")
	assert.Contains(t, err.Error(), "age: "+msgInteger)
}

func TestValidate_IntegerRange(t *testing.T) {
	qs := []model.Question{{Fieldname: "age", OptionType: model.OptionInteger}}

	for _, v := range []any{1e300, -1e300, float64(math.MaxInt64), 2.5, "9223372036854775808"} {
		_, err := Validate(qs, map[string]any{"age": v})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "%v", v)
		assert.Equal(t, msgInteger, verr.Fields["age"], "%v", v)
	}

	entries, err := Validate(qs, map[string]any{"age": float64(math.MinInt64)})
	require.NoError(t, err)
	assert.Equal(t, model.Integer(math.MinInt64), entries[0].Value)
	entries, err = Validate(qs, map[string]any{"age": 1e18})
	require.NoError(t, err)
	assert.Equal(t, model.Integer(1e18), entries[0].Value)
}

func TestValidate_RequiredBoolMustBeChecked(t *testing.T) {
	qs := []model.Question{{Fieldname: "tos", OptionType: model.OptionBool, Required: true}}

	_, err := Validate(qs, map[string]any{"tos": false})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgRequired, verr.Fields["tos"])

	entries, err := Validate(qs, map[string]any{"tos": true})
	require.NoError(t, err)
	assert.Equal(t, model.Bool(true), entries[0].Value)
}

func TestValidate_RequiredPhoto(t *testing.T) {
	qs := []model.Question{{Fieldname: "photo", OptionType: model.OptionPhoto, Required: true}}
	_, err := Validate(qs, map[string]any{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgRequired, verr.Fields["photo"])
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("email", ""))
	assert.NoError(t, Email("email", "a@b.io"))

	var verr *ValidationError
	require.ErrorAs(t, Email("email", "a@"), &verr)
	assert.Equal(t, msgEmail, verr.Fields["email"])
}

func TestCheck(t *testing.T) {
	s := model.Survey{
		Slug: "bad slug!",
		Questions: []model.Question{
			{Fieldname: "1st", Question: "ok", OptionType: model.OptionChar},
			{OptionType: model.OptionChar},
			{Fieldname: EmailField, Question: "ok", OptionType: model.OptionEmail},
		},
	}

	var verr *ValidationError
	require.ErrorAs(t, Check(&s), &verr)
	assert.Contains(t, verr.Fields, "questions[2].fieldname")
	assert.Equal(t, msgRequired, verr.Fields["title"])
	assert.Contains(t, verr.Fields["slug"], "slug")
	assert.Contains(t, verr.Fields, "questions[0].fieldname")
	assert.Equal(t, msgRequired, verr.Fields["questions[1].question"])

	ok := model.Survey{Title: "T", Slug: "colours-2024", Questions: []model.Question{
		{Question: "Name", OptionType: model.OptionChar},
	}}
	assert.NoError(t, Check(&ok))
}
