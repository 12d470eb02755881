package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Parser extracts structured resume content from uploaded files, LinkedIn
// profile pages, and LinkedIn data-export archives. Unlike the AI scorer
// there is no fallback: a parse failure fails the job.
type Parser interface {
	ParseTemplate(ctx context.Context, in domain.ParseTemplateInput) (*domain.ResumeContent, string, error)
	ParseLinkedInURL(ctx context.Context, in domain.ParseLinkedInURLInput) (*domain.ResumeContent, string, error)
	ParseLinkedInZip(ctx context.Context, in domain.ParseLinkedInZipInput) (*domain.ResumeContent, string, error)
}

// FileParser is the default Parser implementation. Uploaded files are read
// from the uploads directory; profile pages are fetched over HTTP.
type FileParser struct {
	uploadsDir string
	client     *resty.Client
}

// NewFileParser creates a FileParser rooted at the uploads directory.
func NewFileParser(uploadsDir string) *FileParser {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "careerforge/1.0")
	return &FileParser{uploadsDir: uploadsDir, client: client}
}

// resolve joins a stored file path against the uploads root, rejecting
// traversal outside it.
func (p *FileParser) resolve(path string) (string, error) {
	full := filepath.Join(p.uploadsDir, filepath.Clean("/"+path))
	if !strings.HasPrefix(full, filepath.Clean(p.uploadsDir)) {
		return "", fmt.Errorf("file path %q escapes uploads directory", path)
	}
	return full, nil
}

// ParseTemplate extracts text from an uploaded PDF, DOCX, or plain-text
// resume and derives a structured skeleton from it.
func (p *FileParser) ParseTemplate(ctx context.Context, in domain.ParseTemplateInput) (*domain.ResumeContent, string, error) {
	full, err := p.resolve(in.FilePath)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}

	text, err := extractText(in.MIMEType, in.FileName, data)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("no text could be extracted from %s", in.FileName)
	}

	return contentFromText(text), text, nil
}

// extractText pulls plain text out of a resume file by MIME type, falling
// back to the file extension.
func extractText(mimeType, fileName string, data []byte) (string, error) {
	kind := mimeType
	if kind == "" {
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".pdf":
			kind = "application/pdf"
		case ".docx":
			kind = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		default:
			kind = "text/plain"
		}
	}

	switch kind {
	case "application/pdf":
		return extractPDFText(data)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return extractDocxText(data)
	case "text/plain":
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported file type %q", kind)
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	var buf bytes.Buffer
	b, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	if _, err := io.Copy(&buf, b); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDocxText(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()
	content := r.Editable().GetContent()
	// Strip the raw XML tags down to text
	content = regexp.MustCompile(`<[^>]+>`).ReplaceAllString(content, "\n")
	return content, nil
}

var titleRe = regexp.MustCompile(`<title[^>]*>([^<]+)</title>`)
var metaDescRe = regexp.MustCompile(`<meta\s+name="description"\s+content="([^"]*)"`)
var tagRe = regexp.MustCompile(`<[^>]+>`)

// ParseLinkedInURL fetches a public profile page and extracts what the
// unauthenticated HTML exposes: the page title and description.
func (p *FileParser) ParseLinkedInURL(ctx context.Context, in domain.ParseLinkedInURLInput) (*domain.ResumeContent, string, error) {
	if !strings.HasPrefix(in.ProfileURL, "https://") {
		return nil, "", fmt.Errorf("profile url must be https")
	}

	resp, err := p.client.R().SetContext(ctx).Get(in.ProfileURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch profile: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("profile fetch returned status %d", resp.StatusCode())
	}

	html := resp.String()
	content := &domain.ResumeContent{
		Links: map[string]string{"linkedin": in.ProfileURL},
	}
	if m := titleRe.FindStringSubmatch(html); m != nil {
		title := strings.TrimSpace(m[1])
		// LinkedIn titles look like "Name - Headline | LinkedIn"
		title = strings.TrimSuffix(title, "| LinkedIn")
		if name, headline, ok := strings.Cut(title, " - "); ok {
			content.Name = strings.TrimSpace(name)
			content.Headline = strings.TrimSpace(headline)
		} else {
			content.Name = strings.TrimSpace(title)
		}
	}
	if m := metaDescRe.FindStringSubmatch(html); m != nil {
		content.Summary = strings.TrimSpace(m[1])
	}

	raw := strings.TrimSpace(tagRe.ReplaceAllString(html, " "))
	return content, raw, nil
}

// ParseLinkedInZip reads the CSV files inside a LinkedIn data-export archive.
func (p *FileParser) ParseLinkedInZip(ctx context.Context, in domain.ParseLinkedInZipInput) (*domain.ResumeContent, string, error) {
	full, err := p.resolve(in.FilePath)
	if err != nil {
		return nil, "", err
	}

	zr, err := zip.OpenReader(full)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	content := &domain.ResumeContent{}
	var raw strings.Builder

	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		switch name {
		case "Profile.csv":
			rows, err := readCSV(f)
			if err != nil {
				return nil, "", err
			}
			applyProfileCSV(content, rows)
		case "Positions.csv":
			rows, err := readCSV(f)
			if err != nil {
				return nil, "", err
			}
			content.Experience = entriesFromCSV(rows, "Title", "Company Name", "Started On", "Finished On", "Description")
		case "Education.csv":
			rows, err := readCSV(f)
			if err != nil {
				return nil, "", err
			}
			content.Education = entriesFromCSV(rows, "Degree Name", "School Name", "Start Date", "End Date", "Notes")
		case "Skills.csv":
			rows, err := readCSV(f)
			if err != nil {
				return nil, "", err
			}
			for _, row := range rows {
				if s := row["Name"]; s != "" {
					content.Skills = append(content.Skills, s)
				}
			}
		default:
			continue
		}
		raw.WriteString(name + "\n")
	}

	if content.Name == "" && len(content.Experience) == 0 {
		return nil, "", fmt.Errorf("archive contains no recognizable LinkedIn export files")
	}
	return content, raw.String(), nil
}

// readCSV parses a CSV file from the archive into header-keyed rows.
func readCSV(f *zip.File) ([]map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.Name, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := map[string]string{}
		for i, col := range header {
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func applyProfileCSV(content *domain.ResumeContent, rows []map[string]string) {
	if len(rows) == 0 {
		return
	}
	row := rows[0]
	content.Name = strings.TrimSpace(row["First Name"] + " " + row["Last Name"])
	content.Headline = row["Headline"]
	content.Summary = row["Summary"]
}

func entriesFromCSV(rows []map[string]string, titleCol, orgCol, startCol, endCol, descCol string) []domain.ResumeEntry {
	entries := make([]domain.ResumeEntry, 0, len(rows))
	for _, row := range rows {
		if row[titleCol] == "" && row[orgCol] == "" {
			continue
		}
		entries = append(entries, domain.ResumeEntry{
			Title:       row[titleCol],
			Org:         row[orgCol],
			Start:       row[startCol],
			End:         row[endCol],
			Description: row[descCol],
		})
	}
	return entries
}

// contentFromText derives a rough structure from extracted plain text: the
// first line as the name and a detected skills section.
func contentFromText(text string) *domain.ResumeContent {
	content := &domain.ResumeContent{}

	lines := strings.Split(text, "\n")
	inSkills := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if content.Name == "" {
			content.Name = line
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "skills") {
			inSkills = true
			continue
		}
		if inSkills {
			if strings.ContainsAny(line, ",;•") {
				for _, s := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ';' || r == '•' }) {
					if s = strings.TrimSpace(s); s != "" {
						content.Skills = append(content.Skills, s)
					}
				}
			} else {
				inSkills = false
			}
		}
	}

	summary := strings.TrimSpace(text)
	if len(summary) > 400 {
		summary = summary[:400]
	}
	content.Summary = summary
	return content
}
