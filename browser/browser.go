package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	rodstealth "github.com/go-rod/stealth"

	"typing-simulator/config"
	"typing-simulator/logger"
	"typing-simulator/stealth"
	"typing-simulator/utils"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Browser wraps the Rod browser instance
type Browser struct {
	RodBrowser *rod.Browser
	Page       *rod.Page
	Log        logger.Logger
	Cfg        *config.Config

	rng stealth.Rand

	mouseMu    sync.Mutex
	lastMouseX float64
	lastMouseY float64

	gateMu     sync.Mutex
	removeGate func() error
}

// New launches a browser and opens a stealth-patched page
func New(ctx context.Context, cfg *config.Config, log logger.Logger, rng stealth.Rand) (*Browser, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless)

	if cfg.UserDataDir != "" {
		l.UserDataDir(cfg.UserDataDir)
	}
	if cfg.ProxyURL != "" {
		l.Proxy(cfg.ProxyURL)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	// rod-stealth covers navigator.webdriver and the other common leaks
	if _, err := page.EvalOnNewDocument(rodstealth.JS); err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to install stealth script: %w", err)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}

	// Random desktop viewport
	width := 1024 + rng.Intn(1920-1024)
	height := 768 + rng.Intn(1080-768)
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	log.Info("Browser initialized", "width", width, "height", height, "headless", cfg.Headless, "input", cfg.Input)

	return &Browser{
		RodBrowser: browser,
		Page:       page,
		Log:        log,
		Cfg:        cfg,
		rng:        rng,
	}, nil
}

// Close cleans up the browser resources
func (b *Browser) Close() error {
	return b.RodBrowser.Close()
}

// NavigateTo goes to a URL with retry logic
func (b *Browser) NavigateTo(ctx context.Context, url string) error {
	b.Log.Info("Navigating to", "url", url)

	op := func() error {
		page := b.Page.Context(ctx)
		if err := page.Navigate(url); err != nil {
			return err
		}
		return page.WaitLoad()
	}

	// 2s -> 4s -> 8s
	return utils.RetryWithBackoff(ctx, op, 3, 2*time.Second, 10*time.Second)
}
