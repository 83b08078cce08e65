package fetch

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultMaxChars truncates page text handed to prompts.
const DefaultMaxChars = 1500

// Reader turns a URL into readable page text.
type Reader interface {
	ReadText(ctx context.Context, url string) (string, error)
}

// TextReader fetches over HTTP and, when Browser is set and the extracted
// text is too short, re-renders the page with a headless browser.
type TextReader struct {
	Options        *Options
	Selectors      []string
	Browser        bool
	BrowserTimeout time.Duration
	MaxChars       int
	Logger         *zap.Logger
}

// NewTextReader returns a reader with company-page selectors and no browser fallback.
func NewTextReader(logger *zap.Logger) *TextReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextReader{
		Options:        DefaultOptions(),
		Selectors:      CompanyPageSelectors(),
		BrowserTimeout: 30 * time.Second,
		MaxChars:       DefaultMaxChars,
		Logger:         logger,
	}
}

// ReadText implements Reader.
func (r *TextReader) ReadText(ctx context.Context, url string) (string, error) {
	selectors := r.Selectors
	if len(selectors) == 0 {
		selectors = DefaultTextSelectors()
	}

	result, err := URL(ctx, url, r.Options)
	if err != nil {
		return "", err
	}
	text, err := ExtractMainText(result.HTML, selectors)
	if err != nil {
		return "", &Error{URL: url, Message: "failed to extract text", Cause: err}
	}

	if r.Browser && ShouldUseBrowser(text) {
		html, berr := WithBrowser(ctx, url, r.BrowserTimeout, r.Logger)
		if berr != nil {
			r.logger().Debug("browser fallback failed", zap.String("url", url), zap.Error(berr))
		} else if rendered, xerr := ExtractMainText(html, selectors); xerr == nil && len(rendered) > len(text) {
			text = rendered
		}
	}

	return Truncate(text, r.MaxChars), nil
}

func (r *TextReader) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Truncate cuts s to at most n runes. A non-positive n leaves s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
