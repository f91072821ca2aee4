package locales

import (
	"encoding/json"
	"testing"

	"feedbackbot/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestInitAndLocalize(t *testing.T) {
	require.NoError(t, Init("en"))
	assert.Equal(t, "en", GetDefaultLanguageTag().String())

	en := NewLocalizer("en")
	pt := NewLocalizer("pt-BR")

	assert.Equal(t, "Please enter your name.", GetMessage(en, "MsgNameRequired", nil, nil))
	assert.Equal(t, "Informe seu nome.", GetMessage(pt, "MsgNameRequired", nil, nil))
	assert.Equal(t, "Selecione uma nota entre 1 e 5.", GetMessage(pt, "MsgRatingRequired", nil, nil))

	thanks := GetMessage(en, "MsgFeedbackThanks", map[string]interface{}{"Name": "Ana", "Stars": "★★★★☆"}, nil)
	assert.Equal(t, "Thanks, Ana! Your ★★★★☆ feedback was saved.", thanks)
}

func TestNewLocalizer_FallsBackToDefault(t *testing.T) {
	require.NoError(t, Init("pt-BR"))
	t.Cleanup(func() { _ = Init("en") })

	// Unsupported and empty preferences resolve to the default language.
	assert.Equal(t, "Informe seu nome.", GetMessage(NewLocalizer("de"), "MsgNameRequired", nil, nil))
	assert.Equal(t, "Informe seu nome.", GetMessage(NewLocalizer(), "MsgNameRequired", nil, nil))
	// Regional variants match their base language.
	assert.Equal(t, "Please enter your name.", GetMessage(NewLocalizer("en-GB"), "MsgNameRequired", nil, nil))
}

func TestInit_BadDefaultFallsBackToEnglish(t *testing.T) {
	require.NoError(t, Init("not a language"))
	t.Cleanup(func() { _ = Init("en") })
	assert.Equal(t, "en", GetDefaultLanguageTag().String())
}

func TestGetMessage_UnknownIDReturnsID(t *testing.T) {
	require.NoError(t, Init("en"))
	assert.Equal(t, "MsgDoesNotExist", GetMessage(NewLocalizer("en"), "MsgDoesNotExist", nil, nil))
}

func TestMessageFilesShareKeys(t *testing.T) {
	read := func(name string) map[string]string {
		data, err := localeFS.ReadFile(name)
		require.NoError(t, err)
		var msgs map[string]string
		require.NoError(t, json.Unmarshal(data, &msgs))
		return msgs
	}
	en, pt := read("en.json"), read("pt-BR.json")

	for k := range en {
		assert.Contains(t, pt, k)
	}
	for k := range pt {
		assert.Contains(t, en, k)
	}
}
