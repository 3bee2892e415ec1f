package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/mpetrov/marvin/pkg/logger"
)

// Browser drives a visible Chromium instance for web searches so results
// land in a window the user can see. The browser is launched on first use
// and reused for subsequent searches.
type Browser struct {
	mu      sync.Mutex
	browser *rod.Browser
}

func NewBrowser() *Browser {
	return &Browser{}
}

func (b *Browser) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	u, err := launcher.New().Headless(false).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	b.browser = browser
	return browser, nil
}

func (b *Browser) Search(ctx context.Context, target string) error {
	browser, err := b.ensure()
	if err != nil {
		return err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return fmt.Errorf("opening search page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		logger.DebugCF("automation", "Search page still loading", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}
