package wire

import (
	"golang.org/x/text/language"

	"github.com/photohub/photohub-saas/domains/events/be/service"
)

var supportedLanguages = []language.Tag{language.English, language.Russian}

var languageMatcher = language.NewMatcher(supportedLanguages)

var categoryLabels = map[language.Tag]map[service.Category]string{
	language.English: {
		service.CategoryPhotoshoot: "Photoshoot",
		service.CategoryPost:       "Social media post",
	},
	language.Russian: {
		service.CategoryPhotoshoot: "Фотосъемка",
		service.CategoryPost:       "Пост в соцсети",
	},
}

// MatchLanguage picks the supported label language for an Accept-Language header.
// Unparseable or unsupported values fall back to English.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return language.English
	}
	return supportedLanguages[index]
}

// CategoryLabel returns the display label of c. Unknown languages use English and
// unknown categories echo their key.
func CategoryLabel(c service.Category, lang language.Tag) string {
	labels, ok := categoryLabels[lang]
	if !ok {
		labels = categoryLabels[language.English]
	}
	if label, ok := labels[c]; ok {
		return label
	}
	return string(c)
}
