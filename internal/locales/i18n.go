package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"feedbackbot/internal/logger"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "en"

//go:embed *.json
var localeFS embed.FS

var (
	mu              sync.RWMutex
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
)

// Init initializes the i18n bundle by loading the embedded message files and
// setting the default language.
func Init(defaultLangCode string) error {
	tag, err := language.Parse(defaultLangCode)
	if err != nil {
		logger.GetLogger().Warnw("Failed to parse default language code, falling back to English", "code", defaultLangCode, "error", err)
		tag = language.English
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read embedded locales: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if _, err := b.LoadMessageFileFS(localeFS, entry.Name()); err != nil {
			logger.GetLogger().Warnw("Failed to load message file", "file", entry.Name(), "error", err)
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no message files loaded")
	}

	mu.Lock()
	bundle = b
	defaultLanguage = tag
	mu.Unlock()

	logger.GetLogger().Infow("i18n bundle initialized", "files", loaded, "default_language", tag.String())
	return nil
}

// GetDefaultLanguageTag returns the configured default language tag.
func GetDefaultLanguageTag() language.Tag {
	mu.RLock()
	defer mu.RUnlock()
	if bundle == nil {
		logger.GetLogger().Panic("Attempted to get default language tag before i18n bundle initialization")
	}
	return defaultLanguage
}

// NewLocalizer creates a localizer for the given language preferences
// (tags such as "en", "pt-BR" or an Accept-Language string). The default
// language is always appended as the last preference.
func NewLocalizer(langPrefs ...string) *i18n.Localizer {
	mu.RLock()
	defer mu.RUnlock()
	if bundle == nil {
		logger.GetLogger().Panic("Attempted to create localizer before i18n bundle initialization")
	}
	prefs := append(append([]string{}, langPrefs...), defaultLanguage.String())
	return i18n.NewLocalizer(bundle, prefs...)
}

// GetMessage retrieves and formats a message by its ID.
// templateData holds template variables; pluralCount is optional.
// When the message is missing it falls back to English, then to the ID itself.
func GetMessage(localizer *i18n.Localizer, msgID string, templateData map[string]interface{}, pluralCount *int) string {
	config := &i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: templateData,
	}
	if pluralCount != nil {
		config.PluralCount = *pluralCount
	}

	localizedMsg, err := localizer.Localize(config)
	if err == nil {
		return localizedMsg
	}
	logger.GetLogger().Warnw("Failed to localize message, falling back to English", "message_id", msgID, "error", err)

	mu.RLock()
	b := bundle
	mu.RUnlock()
	fallbackMsg, fallbackErr := i18n.NewLocalizer(b, language.English.String()).Localize(config)
	if fallbackErr == nil {
		return fallbackMsg
	}

	logger.GetLogger().Errorw("Failed to localize message in English fallback as well, returning ID", "message_id", msgID)
	return msgID
}
