package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joshuanoeldeke/RespectCircle/internal/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrPageNotFound = errors.New("page not found")

type Page struct {
	Title       string
	Slug        string
	Content     string
	LastUpdated string
}

// PageService serves markdown pages from <content>/pages. Pages are re-read
// on every request in development so edits show up without a restart.
type PageService struct {
	contentDir string
	reload     bool
	parser     *markdown.Parser

	mu    sync.RWMutex
	pages map[string]*Page
}

func NewPageService(contentDir string, reload bool) *PageService {
	return &PageService{
		contentDir: filepath.Join(contentDir, "pages"),
		reload:     reload,
		parser:     markdown.NewParser(),
		pages:      make(map[string]*Page),
	}
}

func (s *PageService) LoadPages() error {
	files, err := os.ReadDir(s.contentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read pages directory: %w", err)
	}

	pages := make(map[string]*Page, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}

		slug := strings.TrimSuffix(file.Name(), ".md")
		page, err := s.loadPage(slug)
		if err != nil {
			return fmt.Errorf("failed to load page %s: %w", slug, err)
		}
		pages[slug] = page
	}

	s.mu.Lock()
	s.pages = pages
	s.mu.Unlock()
	return nil
}

func (s *PageService) loadPage(slug string) (*Page, error) {
	filePath := filepath.Join(s.contentDir, slug+".md")
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := s.parser.Render(content)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	title := doc.Text("title")
	if title == "" {
		title = cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
	}

	lastUpdated := parseDate(doc.Meta["lastUpdated"])
	if lastUpdated == "" {
		lastUpdated = info.ModTime().Format("January 2, 2006")
	}

	return &Page{
		Title:       title,
		Slug:        slug,
		Content:     string(doc.HTML),
		LastUpdated: lastUpdated,
	}, nil
}

func (s *PageService) Page(slug string) (*Page, error) {
	if s.reload {
		err := s.LoadPages()
		if err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	page, ok := s.pages[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, slug)
	}

	return page, nil
}

func parseDate(value any) string {
	var dateStr string

	switch v := value.(type) {
	case string:
		dateStr = v
	case time.Time:
		return v.Format("January 2, 2006")
	default:
		return ""
	}

	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"02.01.2006",
		"Jan 2, 2006",
		"January 2, 2006",
		time.RFC3339,
	}

	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t.Format("January 2, 2006")
		}
	}

	return dateStr
}
