package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gothamist-news-parser/internal/scraper"
)

// LoadLocators returns the built-in locator table, with any non-empty
// template from the YAML file at filePath replacing the default.
func LoadLocators(filePath string) (*scraper.Locators, error) {
	locators := scraper.DefaultLocators()
	if filePath == "" {
		return locators, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read locators file: %w", err)
	}

	var override scraper.Locators
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse locators YAML: %w", err)
	}

	merge(&locators.TitleTemplate, override.TitleTemplate)
	merge(&locators.DescriptionTemplate, override.DescriptionTemplate)
	merge(&locators.PictureTemplate, override.PictureTemplate)
	merge(&locators.ResultAmountXPath, override.ResultAmountXPath)
	merge(&locators.LoadMoreXPath, override.LoadMoreXPath)
	merge(&locators.CloseXPath, override.CloseXPath)
	if override.PictureIndexStride > 0 {
		locators.PictureIndexStride = override.PictureIndexStride
	}

	if err := validateLocators(locators); err != nil {
		return nil, err
	}

	return locators, nil
}

func merge(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// validateLocators checks that indexed templates carry exactly one %d
func validateLocators(l *scraper.Locators) error {
	indexed := map[string]string{
		"title":       l.TitleTemplate,
		"description": l.DescriptionTemplate,
		"picture":     l.PictureTemplate,
	}
	for name, tmpl := range indexed {
		if strings.Count(tmpl, "%d") != 1 {
			return fmt.Errorf("%s locator must contain exactly one %%d placeholder: %q", name, tmpl)
		}
	}
	fixed := map[string]string{
		"result_amount": l.ResultAmountXPath,
		"load_more":     l.LoadMoreXPath,
		"close":         l.CloseXPath,
	}
	for name, xp := range fixed {
		if strings.Contains(xp, "%") {
			return fmt.Errorf("%s locator takes no index: %q", name, xp)
		}
	}
	return nil
}
