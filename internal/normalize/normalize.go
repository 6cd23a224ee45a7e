package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"gothamist-news-parser/internal/config"
)

var (
	spacesPattern   = regexp.MustCompile(`\s+`)
	filenamePattern = regexp.MustCompile(`[^A-Za-z0-9\s]+`)
)

type Normalizer struct {
	cfg *config.Config
}

func NewNormalizer(cfg *config.Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Text очищает текст со страницы перед подсчётом метрик и записью в отчёт
func (n *Normalizer) Text(text string) string {
	if n.cfg.Normalize.TrimNBSP {
		// Заменяем NBSP (\u00A0) на обычный пробел
		text = strings.ReplaceAll(text, "\u00A0", " ")
	}

	if n.cfg.Normalize.CollapseSpaces {
		text = spacesPattern.ReplaceAllString(text, " ")
	}

	return strings.TrimSpace(text)
}

// TruncatePreview обрезает текст до maxPreviewChars (в рунах)
func (n *Normalizer) TruncatePreview(text string) string {
	limit := n.cfg.Normalize.MaxPreviewChars
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	truncated := string(runes[:limit-1])

	// Находим последний пробел перед лимитом
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		return truncated[:lastSpace] + "…"
	}

	return truncated + "…"
}

// SanitizeFilename оставляет в заголовке только ASCII буквы, цифры и пробелы:
// "NYC's $ Budget! 2024" -> "NYCs  Budget 2024". Разные заголовки могут дать одно имя.
func SanitizeFilename(title string) string {
	return filenamePattern.ReplaceAllString(title, "")
}
