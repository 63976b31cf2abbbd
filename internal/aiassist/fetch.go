package aiassist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const maxFetchBytes = 50 << 20

var (
	imageURLPattern = regexp.MustCompile(`(?i)\.(png|jpe?g|webp|gif)$`)
	pdfURLPattern   = regexp.MustCompile(`(?i)\.pdf($|[?#])`)
)

// Fetcher downloads documents and turns them into plain text.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Fetcher{client: client}
}

// IsImageURL reports whether the URL path ends in a supported image extension.
func IsImageURL(u string) bool {
	return imageURLPattern.MatchString(u)
}

func (f *Fetcher) fetch(ctx context.Context, u string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("fetch failed (%d) %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// ExtractText fetches u and returns its text. PDFs are detected by content
// type or extension; everything else is decoded as UTF-8.
func (f *Fetcher) ExtractText(ctx context.Context, u string) (string, error) {
	body, contentType, err := f.fetch(ctx, u)
	if err != nil {
		return "", err
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/pdf") || pdfURLPattern.MatchString(u) {
		return pdfText(body)
	}
	if strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("unsupported content type %s", contentType)
	}
	return strings.ToValidUTF8(string(body), ""), nil
}

func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// Bundle is the assembled context for one completion request.
type Bundle struct {
	Text   string
	Images []string
}

func (b Bundle) Empty() bool {
	return strings.TrimSpace(b.Text) == "" && len(b.Images) == 0
}

// Collect processes urls in order. A failure on one URL becomes an inline
// note and processing continues. Collection stops once the text passes maxChars.
func (f *Fetcher) Collect(ctx context.Context, urls []string, maxChars int, splitImages bool) Bundle {
	var b strings.Builder
	var images []string
	chars := 0
	for i, u := range urls {
		if splitImages && IsImageURL(u) {
			images = append(images, u)
			continue
		}
		text, err := f.ExtractText(ctx, u)
		if err != nil {
			fmt.Fprintf(&b, "\n\n--- Document %d: %s (could not retrieve: %s) ---\n", i+1, u, err.Error())
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		header := fmt.Sprintf("\n\n--- Document %d: %s ---\n", i+1, u)
		b.WriteString(header)
		b.WriteString(text)
		chars += utf8.RuneCountInString(header) + utf8.RuneCountInString(text)
		if chars > maxChars {
			break
		}
	}
	return Bundle{Text: b.String(), Images: images}
}

// truncateChars cuts s to at most n characters without splitting a rune.
func truncateChars(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
