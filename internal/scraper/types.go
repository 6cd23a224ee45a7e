package scraper

import "strconv"

// Article holds one search result. Extract fills the fields in order:
// title, description, picture, phrase count, cash flag.
type Article struct {
	Title        string
	Description  string
	PictureURL   string
	PhraseCount  int
	MentionsCash bool
}

// ResultRow is the flattened report row of one article. DownloadedImage
// repeats the title.
type ResultRow struct {
	Title           string
	Description     string
	PictureName     string
	PhrasesCount    int
	AboutCash       string
	DownloadedImage string
}

// Row flattens the article into a report row.
func (a *Article) Row() ResultRow {
	return ResultRow{
		Title:           a.Title,
		Description:     a.Description,
		PictureName:     a.PictureURL,
		PhrasesCount:    a.PhraseCount,
		AboutCash:       strconv.FormatBool(a.MentionsCash),
		DownloadedImage: a.Title,
	}
}

// ReportColumns is the fixed header of the Excel report.
var ReportColumns = []string{
	"Title",
	"Description",
	"Picture_Name",
	"Phrases Count",
	"About Cash",
	"Downloaded Image",
}

// Values returns the row in ReportColumns order.
func (r ResultRow) Values() []interface{} {
	return []interface{}{
		r.Title,
		r.Description,
		r.PictureName,
		r.PhrasesCount,
		r.AboutCash,
		r.DownloadedImage,
	}
}

// ResultSet is an append-only, scrape-ordered list of rows.
type ResultSet struct {
	rows []ResultRow
}

func (s *ResultSet) Append(row ResultRow) {
	s.rows = append(s.rows, row)
}

func (s *ResultSet) Len() int {
	return len(s.rows)
}

// Rows returns a copy of the collected rows.
func (s *ResultSet) Rows() []ResultRow {
	out := make([]ResultRow, len(s.rows))
	copy(out, s.rows)
	return out
}
