package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type questionList struct {
	Questions []struct {
		ID       string `json:"id"`
		Question string `json:"question"`
	} `json:"questions"`
}

type pageList struct {
	Pages []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"pages"`
}

func TestClean(t *testing.T) {
	t.Run("strips code fences", func(t *testing.T) {
		raw := "```json\n{\"a\": 1}\n```"
		assert.Equal(t, `{"a": 1}`, Clean(raw))
	})

	t.Run("clips surrounding commentary", func(t *testing.T) {
		raw := "Here is the JSON you asked for:\n{\"a\": 1}\nLet me know if you need changes."
		assert.Equal(t, `{"a": 1}`, Clean(raw))
	})

	t.Run("no braces passes through", func(t *testing.T) {
		assert.Equal(t, "not json at all", Clean("not json at all"))
	})
}

func TestJSONStrict(t *testing.T) {
	raw := "```json\n" + `{"questions": [{"id": "q1", "question": "Who is this for?"}]}` + "\n```"

	var out questionList
	outcome, err := JSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, StrictSuccess, outcome)
	require.Len(t, out.Questions, 1)
	assert.Equal(t, "q1", out.Questions[0].ID)
}

func TestJSONFencedWithCommentary(t *testing.T) {
	raw := "Sure! Here are the pages:\n```json\n" +
		`{"pages": [{"id": "p1", "name": "Home"}, {"id": "p2", "name": "Settings"}]}` +
		"\n```\nThat should cover the core flows."

	var out pageList
	outcome, err := JSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, StrictSuccess, outcome)
	assert.Len(t, out.Pages, 2)
}

func TestJSONRecoversTruncated(t *testing.T) {
	// Stream cut off mid-record: strict parsing fails, recovery should keep
	// the complete leading entries.
	raw := `{"pages": [{"id": "p1", "name": "Home"}, {"id": "p2", "name": "Sett`

	var out pageList
	outcome, err := JSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, RecoveredPartial, outcome)
	require.NotEmpty(t, out.Pages)
	assert.Equal(t, "p1", out.Pages[0].ID)
}

func TestJSONFailsOnGarbage(t *testing.T) {
	var out pageList
	outcome, err := JSON("the model had nothing useful to say", &out)
	assert.Equal(t, Failed, outcome)
	assert.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "strict-success", StrictSuccess.String())
	assert.Equal(t, "recovered-partial", RecoveredPartial.String())
	assert.Equal(t, "failed", Failed.String())
}
