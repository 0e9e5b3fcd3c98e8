package locale

import (
	"embed"
	"io/fs"
	"strings"
	"sync"

	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/logger"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed translation/*.toml
var translationFS embed.FS

const langKey = "lang"

var (
	i18nBundle  *i18n.Bundle
	defaultLang = "pt-BR"
	initOnce    sync.Once
	initErr     error
)

// InitLocalizer loads the embedded translations. lang is used when a request states no
// preference or one that has no translation.
func InitLocalizer(lang string) error {
	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return err
		}
		defaultLang = tag.String()
	}
	initOnce.Do(func() {
		bundle := i18n.NewBundle(language.MustParse("pt-BR"))
		bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
		initErr = parseTranslationFiles(translationFS, bundle)
		i18nBundle = bundle
	})
	return initErr
}

func parseTranslationFiles(i18nFS fs.FS, bundle *i18n.Bundle) error {
	return fs.WalkDir(i18nFS, "translation", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(i18nFS, path)
		if err != nil {
			return err
		}
		_, err = bundle.ParseMessageFileBytes(data, path)
		return err
	})
}

func createTemplateData(params []string, separator ...string) map[string]any {
	sep := "=="
	if len(separator) > 0 {
		sep = separator[0]
	}

	templateData := make(map[string]any)
	for _, param := range params {
		parts := strings.SplitN(param, sep, 2)
		if len(parts) != 2 {
			continue
		}
		templateData[parts[0]] = parts[1]
	}
	return templateData
}

// I18n renders the message key in lang. params are "Name==value" template pairs.
// The key itself is returned when no translation exists.
func I18n(lang, key string, params ...string) string {
	if i18nBundle == nil {
		if err := InitLocalizer(""); err != nil {
			logger.Error("i18n init failed:", err)
			return key
		}
	}

	localizer := i18n.NewLocalizer(i18nBundle, lang, defaultLang)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: createTemplateData(params),
	})
	if err != nil {
		logger.Warningf("Failed to localize message %q: %v", key, err)
		return key
	}
	return msg
}

// StatusLabel returns the display label of a reading status.
func StatusLabel(lang string, status model.ReadingStatus) string {
	return I18n(lang, "status."+string(status))
}

// DefaultLang is the language used for output that is not tied to a request.
func DefaultLang() string {
	return defaultLang
}

// LocalizerMiddleware picks the request language from the lang cookie or Accept-Language.
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string
		if cookie, err := c.Request.Cookie(langKey); err == nil {
			lang = cookie.Value
		} else {
			lang = c.GetHeader("Accept-Language")
		}
		c.Set(langKey, lang)
		c.Next()
	}
}

// Lang returns the language selected for the request, falling back to the default.
func Lang(c *gin.Context) string {
	if lang := c.GetString(langKey); lang != "" {
		return lang
	}
	return defaultLang
}
