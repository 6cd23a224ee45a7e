package scraper

import "fmt"

// Locators maps semantic element names of the search page to XPath
// templates. Indexed templates carry one %d for the 1-based result index.
type Locators struct {
	TitleTemplate       string `yaml:"title"`
	DescriptionTemplate string `yaml:"description"`
	PictureTemplate     string `yaml:"picture"`
	ResultAmountXPath   string `yaml:"result_amount"`
	LoadMoreXPath       string `yaml:"load_more"`
	CloseXPath          string `yaml:"close"`

	// PictureIndexStride multiplies the result index before it is
	// substituted into PictureTemplate: every card renders two matching images.
	PictureIndexStride int `yaml:"picture_index_stride"`
}

func DefaultLocators() *Locators {
	return &Locators{
		TitleTemplate:       `(//*[@class="h2"])[%d]`,
		DescriptionTemplate: `(//*[@class="desc"])[%d]`,
		PictureTemplate:     `(//*[@style="aspect-ratio: 3 / 2;"]/img[1])[%d]`,
		ResultAmountXPath:   `//div[@class="col"]/div[contains(@class,"search-page")]/span/strong`,
		LoadMoreXPath:       `(//*[@aria-label="Load More"])[last()]`,
		CloseXPath:          `(//*[contains(@class,"CloseButton__ButtonElement")])[last()]`,
		PictureIndexStride:  2,
	}
}

func (l *Locators) Title(index int) string {
	return fmt.Sprintf(l.TitleTemplate, index)
}

func (l *Locators) Description(index int) string {
	return fmt.Sprintf(l.DescriptionTemplate, index)
}

func (l *Locators) Picture(index int) string {
	stride := l.PictureIndexStride
	if stride <= 0 {
		stride = 1
	}
	return fmt.Sprintf(l.PictureTemplate, index*stride)
}

func (l *Locators) ResultAmount() string { return l.ResultAmountXPath }

// LoadMore resolves to the last "Load More" control on the page.
func (l *Locators) LoadMore() string { return l.LoadMoreXPath }

// Close resolves to the last popup close button on the page.
func (l *Locators) Close() string { return l.CloseXPath }
