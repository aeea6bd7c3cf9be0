// Package crawler fetches page titles for imported links that were saved
// without one.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/service"
)

const maxTitleLength = 1024

var (
	ErrNotRunning = errors.New("title service is not running")
	ErrQueueFull  = errors.New("title queue is full")
)

// Service is a bounded worker pool that replaces URL-only link titles with
// the page title.
type Service struct {
	db        *gorm.DB
	log       logger.Logger
	client    *http.Client
	userAgent string
	queue     chan uint
	workers   int
	timeout   time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
}

// Config holds crawler configuration
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	UserAgent string

	// AllowPrivateNetworks lets links on loopback and private ranges be
	// fetched. Off by default.
	AllowPrivateNetworks bool
}

// DefaultConfig returns default crawler configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:   5,
		QueueSize: 100,
		Timeout:   30 * time.Second,
		UserAgent: "Bookmarks-Importer/1.0",
	}
}

// NewService creates a new crawler service
func NewService(db *gorm.DB, log logger.Logger, config *Config) *Service {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		db:  db,
		log: log.With(logger.String("component", "crawler")),
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				DialContext:         newDialer(config.AllowPrivateNetworks).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: config.UserAgent,
		queue:     make(chan uint, config.QueueSize),
		workers:   config.Workers,
		timeout:   config.Timeout,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the crawler service
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("crawler service is already running")
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("crawler service was stopped and cannot be restarted")
	}

	s.isRunning = true

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.log.Info("Crawler service started", logger.Int("workers", s.workers))
	return nil
}

// Stop stops the crawler service gracefully. Queued links that were not
// picked up yet are dropped.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	s.cancel()
	close(s.queue)

	s.wg.Wait()
	s.client.CloseIdleConnections()

	s.log.Info("Crawler service stopped")
	return nil
}

// NotifyNewLink queues a link for title lookup. It never blocks.
func (s *Service) NotifyNewLink(id uint) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return ErrNotRunning
	}

	select {
	case s.queue <- id:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case linkID, ok := <-s.queue:
			if !ok {
				return
			}
			s.processLink(linkID)
		case <-s.ctx.Done():
			s.log.Debug("Worker shutting down", logger.Int("worker", id))
			return
		}
	}
}

func (s *Service) processLink(id uint) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	log := s.log.With(logger.Uint("link_id", id))

	link, err := service.GetLinkByID(ctx, s.db, id)
	if err != nil {
		log.Warn("Failed to load link", logger.Error(err))
		return
	}
	if link.Title != link.URL {
		return
	}

	title, err := s.fetchTitle(ctx, link.URL)
	if err != nil {
		log.Debug("Failed to fetch page title", logger.String("url", link.URL), logger.Error(err))
		return
	}
	if title == "" || title == link.URL {
		return
	}

	updated, err := service.UpdateDefaultTitle(ctx, s.db, id, title)
	if err != nil {
		log.Warn("Failed to update link title", logger.Error(err))
		return
	}
	if updated {
		log.Debug("Updated link title", logger.String("title", title))
	}
}

func (s *Service) fetchTitle(ctx context.Context, address string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	return ExtractTitle(doc), nil
}

// ExtractTitle prefers og:title and falls back to the first <title> element.
// Whitespace is collapsed and the result is cut to fit the title column.
func ExtractTitle(doc *goquery.Document) string {
	title, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	}
	return truncate(title, maxTitleLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
