package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/expensebot/mailledger/internal/common"
	"github.com/expensebot/mailledger/internal/entity"
	"github.com/expensebot/mailledger/internal/pipeline"
)

// MessageSink is the pipeline boundary the poller drives.
type MessageSink interface {
	Process(ctx context.Context, msg *entity.RawMessage) (pipeline.Result, error)
}

// Poller fetches unread messages over IMAP and feeds them to the pipeline one
// at a time. A message is marked \Seen only after the pipeline consumed it;
// ledger write failures leave it unread so the next cycle retries it.
type Poller struct {
	cfg    common.MailboxConfig
	sink   MessageSink
	logger *slog.Logger
}

func NewPoller(cfg common.MailboxConfig, sink MessageSink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{cfg: cfg, sink: sink, logger: logger}
}

// Run polls until the context is cancelled. Each cycle opens a fresh
// connection; mailbox servers drop idle sessions faster than our poll
// interval anyway.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.logger.Info("poller.start",
		"server", p.cfg.Server,
		"folder", p.cfg.Folder,
		"interval", p.cfg.PollInterval.String(),
	)

	for {
		if err := p.pollOnce(ctx); err != nil {
			p.logger.Error("poller.cycle.failed", "error", err)
		}
		select {
		case <-ctx.Done():
			p.logger.Info("poller.stop")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	c, err := imapclient.DialTLS(p.cfg.Server, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.cfg.Server, err)
	}
	defer func() {
		if err := c.Logout().Wait(); err != nil {
			p.logger.Debug("poller.logout.failed", "error", err)
		}
	}()

	if err := c.Login(p.cfg.Username, p.cfg.Password).Wait(); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if _, err := c.Select(p.cfg.Folder, nil).Wait(); err != nil {
		return fmt.Errorf("select %s: %w", p.cfg.Folder, err)
	}

	search, err := c.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return fmt.Errorf("search unseen: %w", err)
	}
	uids := search.AllUIDs()
	if len(uids) == 0 {
		p.logger.Debug("poller.cycle.empty")
		return nil
	}
	p.logger.Info("poller.cycle.found", "count", len(uids))

	for _, uid := range uids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.handleUID(ctx, c, uid); err != nil {
			p.logger.Error("poller.message.failed", "uid", uint32(uid), "error", err)
		}
	}
	return nil
}

// handleUID fetches, parses, and processes one message. Unparsable messages
// are marked seen so they don't wedge the mailbox.
func (p *Poller) handleUID(ctx context.Context, c *imapclient.Client, uid imap.UID) error {
	uidSet := imap.UIDSetNum(uid)
	section := &imap.FetchItemBodySection{}
	msgs, err := c.Fetch(uidSet, &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if len(msgs) == 0 {
		return fmt.Errorf("fetch: uid %d not returned", uid)
	}

	raw := msgs[0].FindBodySection(section)
	if len(raw) == 0 {
		return fmt.Errorf("fetch: uid %d empty body", uid)
	}

	msg, err := ParseMessage(bytes.NewReader(raw))
	if err != nil {
		p.logger.Warn("poller.message.unparsable", "uid", uint32(uid), "error", err)
		return p.markSeen(c, uidSet)
	}

	_, procErr := p.sink.Process(ctx, msg)
	if procErr != nil {
		// ledger write failure: leave unread for the next cycle
		return fmt.Errorf("process %s: %w", msg.ID, procErr)
	}
	return p.markSeen(c, uidSet)
}

func (p *Poller) markSeen(c *imapclient.Client, uidSet imap.UIDSet) error {
	err := c.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}
