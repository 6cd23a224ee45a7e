package checksum

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateContentHash генерирует SHA256 хеш статьи
// Формула: SHA256(title|description|picture_url), поля без крайних пробелов
func (g *Generator) GenerateContentHash(title, description, pictureURL string) string {
	content := strings.Join([]string{
		strings.TrimSpace(title),
		strings.TrimSpace(description),
		strings.TrimSpace(pictureURL),
	}, "|")

	hash := sha256.Sum256([]byte(content))

	return fmt.Sprintf("%x", hash)
}

// VerifyContentHash проверяет соответствие хеша
func (g *Generator) VerifyContentHash(expectedHash, title, description, pictureURL string) bool {
	return g.GenerateContentHash(title, description, pictureURL) == expectedHash
}
