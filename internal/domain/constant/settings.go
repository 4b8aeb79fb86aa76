package constant

// Language is the user's display language. It is stored for clients only.
type Language string

const (
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
)

func (l Language) Valid() bool {
	return l == LanguageArabic || l == LanguageEnglish
}

// Theme is the user's display theme. It is stored for clients only.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// DefaultLeadMinutes is used when neither config nor the user sets offsets.
const DefaultLeadMinutes = 10
