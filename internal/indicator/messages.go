package indicator

import (
	"os"
	"strings"
)

type locale string

const localeEnglish locale = "en"

type messages struct {
	nowPlaying string
	paused     string
	errorText  string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

// supportedLocales lists the languages with indicator translations.
var supportedLocales = map[locale]struct{}{
	localeEnglish: {},
}

// resolveLocale maps LANG to a supported locale, falling back to English.
func resolveLocale(raw string) locale {
	lang := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(lang, "_.@"); i >= 0 {
		lang = lang[:i]
	}
	if _, ok := supportedLocales[locale(lang)]; ok {
		return locale(lang)
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			nowPlaying: "♪ ",
			paused:     "Pandora paused",
			errorText:  "Pandora error",
		}
	}
}
