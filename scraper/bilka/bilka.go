// Package bilka scrapes category listing pages with a headless browser.
package bilka

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"price-monitor/config"
	"price-monitor/models"
	"price-monitor/utils"
)

const source = "bilka"

// Scraper renders each configured category page and parses its product tiles.
type Scraper struct {
	cfg       *config.Config
	logger    *utils.Logger
	selectors Selectors
	pool      *utils.WorkerPool
	seen      *utils.IDSet
	retry     *utils.RetryConfig

	mu       sync.Mutex
	products []*models.RawProduct
}

// New creates a ready-to-use Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:       cfg,
		logger:    logger,
		selectors: DefaultSelectors(),
		pool:      utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimit),
		seen:      utils.NewIDSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			MaxDelay:    20 * time.Second,
			Logger:      logger,
		},
	}
}

func (s *Scraper) Name() string { return source }

// Scrape visits every configured category. A failing category is logged and
// skipped; an error is returned only when nothing could be collected.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawProduct, error) {
	s.logger.Info("[bilka] Starting scrape: %d categories, up to %d products each",
		len(s.cfg.Categories), s.cfg.MaxProducts)

	chromeBin := s.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[bilka] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// Start the browser once so every category gets a tab in it.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("bilka: start browser: %w", err)
	}

	s.mu.Lock()
	s.products = nil
	s.seen = utils.NewIDSet()
	s.mu.Unlock()

	var (
		errMu  sync.Mutex
		failed []string
	)
	for _, category := range s.cfg.Categories {
		s.pool.Submit(ctx, func() {
			products, err := s.scrapeCategory(browserCtx, category)
			if err != nil {
				s.logger.Error("[bilka] Category %s failed: %v", category, err)
				errMu.Lock()
				failed = append(failed, category)
				errMu.Unlock()
				return
			}
			s.collect(products)
			s.logger.Info("[bilka] Category %s done: %d products", category, len(products))
		})
	}
	s.pool.Wait()

	s.logger.Info("[bilka] Scrape complete: %d raw products, %d unique ids", len(s.products), s.seen.Size())
	if len(s.products) == 0 && len(failed) > 0 {
		return nil, fmt.Errorf("bilka: all categories failed: %s", strings.Join(failed, ", "))
	}
	return s.products, ctx.Err()
}

func (s *Scraper) collect(products []*models.RawProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if s.seen.Add(p.ExternalID) {
			s.products = append(s.products, p)
		}
	}
}

func (s *Scraper) scrapeCategory(browserCtx context.Context, category string) ([]*models.RawProduct, error) {
	pageURL := strings.TrimRight(s.cfg.BaseURL, "/") + "/" + strings.Trim(category, "/") + "/"

	var products []*models.RawProduct
	err := s.retry.Do(browserCtx, "scrape "+category, func(ctx context.Context) error {
		html, err := s.render(ctx, pageURL)
		if err != nil {
			return err
		}
		products, err = ParseProducts(strings.NewReader(html), s.selectors, category, s.cfg.BaseURL, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parse %s: %w", pageURL, err)
		}
		if len(products) == 0 {
			return fmt.Errorf("no product tiles on %s", pageURL)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cfg.MaxProducts > 0 && len(products) > s.cfg.MaxProducts {
		products = products[:s.cfg.MaxProducts]
	}
	return products, nil
}

// render loads pageURL in a fresh tab, scrolls until enough tiles are loaded
// or the page stops growing, and returns the resulting markup.
func (s *Scraper) render(parent context.Context, pageURL string) (string, error) {
	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, s.cfg.PageLoadTimeout)
	defer cancelTimeout()

	container := strings.Split(s.selectors.Container, ",")[0]
	s.logger.Debug("[bilka] Loading %s", pageURL)
	if err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(container, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("chromedp load %s: %w", pageURL, err)
	}

	countJS := fmt.Sprintf(`document.querySelectorAll(%q).length`, s.selectors.Container)
	lastHeight, stalls := 0, 0
	for stalls < 3 {
		var height, count int
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`, &height),
			chromedp.Sleep(1500*time.Millisecond),
			chromedp.Evaluate(countJS, &count),
		); err != nil {
			return "", fmt.Errorf("chromedp scroll: %w", err)
		}
		if s.cfg.MaxProducts > 0 && count >= s.cfg.MaxProducts {
			break
		}
		if height == lastHeight {
			stalls++
		} else {
			stalls = 0
		}
		lastHeight = height
	}

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp read html: %w", err)
	}
	return html, nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
